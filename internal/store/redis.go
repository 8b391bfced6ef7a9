package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/voyagen/guidevault/internal/cache"
)

// keyPrefix namespaces store keys inside a shared Redis database.
const keyPrefix = "guidevault:kv:"

// RedisStore implements Store on plain Redis strings without expiry.
type RedisStore struct {
	r *cache.Redis
}

// NewRedisStore returns a Store backed by r.
func NewRedisStore(r *cache.Redis) *RedisStore {
	return &RedisStore{r: r}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.r.Client().Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	if err := s.r.Client().Set(ctx, keyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Ping checks the connection to Redis.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.r.Ping(ctx)
}
