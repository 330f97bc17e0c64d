package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var _ Store = (*RedisStore)(nil)

// RedisStore implements Store on top of a shared Redis client. Expiry is
// delegated entirely to Redis TTLs.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an already-configured Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[RedisStore.Get] client.Get")
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.Errorf("[RedisStore.Set] non-positive ttl for key %q", key)
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return errors.Wrap(err, "[RedisStore.Set] client.Set")
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return errors.Wrap(err, "[RedisStore.Delete] client.Del")
	}
	return nil
}
