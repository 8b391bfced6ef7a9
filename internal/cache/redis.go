// Package cache wraps Redis for the guide service: JSON values, a
// distributed lock and the import job queue.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps a go-redis client with JSON helpers.
type Redis struct {
	client *redis.Client
}

// New parses a Redis URL (e.g. "redis://host:6379/0") and returns a
// client. Call Ping to verify the connection.
func New(rawURL string) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Redis{client: redis.NewClient(opts)}, nil
}

// Connect is New followed by Ping; the client is closed if Ping fails.
func Connect(ctx context.Context, rawURL string) (*Redis, error) {
	r, err := New(rawURL)
	if err != nil {
		return nil, err
	}
	if err := r.Ping(ctx); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return r, nil
}

// Ping checks the connection to Redis.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close shuts down the Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Client returns the underlying go-redis client.
func (r *Redis) Client() *redis.Client {
	return r.client
}

// Get fetches key and JSON-decodes it. Returns redis.Nil when the key
// does not exist.
func Get[T any](ctx context.Context, r *Redis, key string) (T, error) {
	var v T
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		var zero T
		return zero, fmt.Errorf("cache unmarshal %s: %w", key, err)
	}
	return v, nil
}

// Set JSON-encodes v under key with the given TTL (0 keeps it forever).
func Set(ctx context.Context, r *Redis, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache marshal %s: %w", key, err)
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

// Del deletes one or more exact keys.
func Del(ctx context.Context, r *Redis, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

// DelPattern deletes every key matching a glob pattern using SCAN.
func DelPattern(ctx context.Context, r *Redis, pattern string) error {
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("cache del pattern %s: %w", pattern, err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan %s: %w", pattern, err)
	}
	return Del(ctx, r, batch...)
}
