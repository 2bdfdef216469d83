package session

import "context"

// StoreStats contains storage-level statistics.
type StoreStats struct {
	Size      int   `json:"size"`
	MaxSize   int   `json:"max_size"`  // 0 if N/A (e.g., Redis)
	Evictions int64 `json:"evictions"` // 0 if not tracked (e.g., Redis)
}

// Store persists session values by session ID. A saved session expires once
// it has not been saved again for the store's idle timeout.
//
// Load reports a missing or expired session as ok=false with a nil error;
// a non-nil error means the store could not answer.
type Store interface {
	Load(ctx context.Context, id string) (values map[string][]byte, ok bool, err error)
	Save(ctx context.Context, id string, values map[string][]byte) error
	Delete(ctx context.Context, id string)
	Stats() StoreStats
}
