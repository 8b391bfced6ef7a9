package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/voyagen/guidevault/internal/cache"
)

// DefaultCacheTTL is how long a value stays in the read-through cache.
const DefaultCacheTTL = 5 * time.Minute

const cachePrefix = "guidevault:cache:"

// CachedStore wraps a Store with a Redis caching layer.
// Reads are served from cache when possible; writes go to the inner
// store first and then invalidate the cached copy.
type CachedStore struct {
	inner Store
	cache *cache.Redis
	ttl   time.Duration
}

// NewCachedStore creates a CachedStore that wraps inner with Redis caching.
func NewCachedStore(inner Store, c *cache.Redis, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedStore{inner: inner, cache: c, ttl: ttl}
}

func (c *CachedStore) Get(ctx context.Context, key string) ([]byte, error) {
	ck := cachePrefix + key
	if v, err := cache.Get[json.RawMessage](ctx, c.cache, ck); err == nil {
		return v, nil
	} else if !errors.Is(err, redis.Nil) {
		log.Warn().Err(err).Str("key", ck).Msg("cache: get")
	}
	v, err := c.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := cache.Set(ctx, c.cache, ck, json.RawMessage(v), c.ttl); err != nil {
		log.Warn().Err(err).Str("key", ck).Msg("cache: set")
	}
	return v, nil
}

func (c *CachedStore) Put(ctx context.Context, key string, value []byte) error {
	if err := c.inner.Put(ctx, key, value); err != nil {
		return err
	}
	c.invalidate(ctx, cachePrefix+key)
	return nil
}

// Ping checks both the cache and, when it supports it, the inner store.
func (c *CachedStore) Ping(ctx context.Context) error {
	if err := c.cache.Ping(ctx); err != nil {
		return err
	}
	if p, ok := c.inner.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Flush drops every cached value.
func (c *CachedStore) Flush(ctx context.Context) {
	if err := cache.DelPattern(ctx, c.cache, cachePrefix+"*"); err != nil {
		log.Warn().Err(err).Msg("cache: flush")
	}
}

// invalidate deletes exact cache keys, logging any errors.
func (c *CachedStore) invalidate(ctx context.Context, keys ...string) {
	if err := cache.Del(ctx, c.cache, keys...); err != nil && !errors.Is(err, redis.Nil) {
		log.Warn().Err(err).Strs("keys", keys).Msg("cache: del")
	}
}
