package session

import (
	"context"
	"sync/atomic"
	"time"

	expirable "github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore is an in-memory LRU session store implementing Store.
type MemoryStore struct {
	lru       *expirable.LRU[string, map[string][]byte]
	evictions atomic.Int64
	maxSize   int
}

// NewMemoryStore creates a store holding at most maxSize sessions, each
// expiring idle after the given timeout.
func NewMemoryStore(maxSize int, idle time.Duration) *MemoryStore {
	if maxSize <= 0 {
		maxSize = 10000
	}
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	s := &MemoryStore{maxSize: maxSize}
	s.lru = expirable.NewLRU[string, map[string][]byte](maxSize, func(string, map[string][]byte) {
		s.evictions.Add(1)
	}, idle)
	return s
}

func (s *MemoryStore) Load(_ context.Context, id string) (map[string][]byte, bool, error) {
	values, ok := s.lru.Get(id)
	if !ok {
		return nil, false, nil
	}
	return copyValues(values), true, nil
}

// Save stores values and restarts the idle timer.
func (s *MemoryStore) Save(_ context.Context, id string, values map[string][]byte) error {
	s.lru.Add(id, copyValues(values))
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) {
	s.lru.Remove(id)
}

func (s *MemoryStore) Stats() StoreStats {
	return StoreStats{
		Size:      s.lru.Len(),
		MaxSize:   s.maxSize,
		Evictions: s.evictions.Load(),
	}
}

func copyValues(values map[string][]byte) map[string][]byte {
	out := make(map[string][]byte, len(values))
	for k, v := range values {
		out[k] = append([]byte(nil), v...)
	}
	return out
}
