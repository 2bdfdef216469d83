package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/wudi/pagecount/internal/logging"
)

const redisOpTimeout = 100 * time.Millisecond

// RedisStore keeps each session in a Redis hash whose TTL is reset on save.
type RedisStore struct {
	client *redis.Client
	prefix string
	idle   time.Duration
}

// NewRedisStore creates a new Redis-backed store.
// prefix is prepended to session IDs, e.g. "pagecount:session:".
func NewRedisStore(client *redis.Client, prefix string, idle time.Duration) *RedisStore {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		idle:   idle,
	}
}

func (s *RedisStore) Load(ctx context.Context, id string) (map[string][]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	fields, err := s.client.HGetAll(ctx, s.prefix+id).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis session load: %w", err)
	}
	if len(fields) == 0 {
		return nil, false, nil
	}
	values := make(map[string][]byte, len(fields))
	for k, v := range fields {
		values[k] = []byte(v)
	}
	return values, true, nil
}

func (s *RedisStore) Save(ctx context.Context, id string, values map[string][]byte) error {
	if len(values) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	args := make([]any, 0, len(values)*2)
	for k, v := range values {
		args = append(args, k, v)
	}
	key := s.prefix + id
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, args...)
		pipe.Expire(ctx, key, s.idle)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis session save: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	if err := s.client.Del(ctx, s.prefix+id).Err(); err != nil {
		logging.Warn("Redis session delete failed", zap.Error(err))
	}
}

func (s *RedisStore) Stats() StoreStats {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	var count int
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 100).Result()
		if err != nil {
			logging.Warn("Redis session stats scan failed", zap.Error(err))
			return StoreStats{}
		}
		count += len(keys)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return StoreStats{Size: count}
}
