//go:build integration

package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *Redis {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("redis container: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := c.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatal(err)
	}
	r, err := Connect(ctx, fmt.Sprintf("redis://%s:%s/0", host, port.Port()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRedisIntegration(t *testing.T) {
	r := startRedis(t)
	ctx := context.Background()

	t.Run("json", func(t *testing.T) {
		if _, err := Get[string](ctx, r, "nope"); !errors.Is(err, redis.Nil) {
			t.Errorf("missing err = %v", err)
		}
		if err := Set(ctx, r, "k:1", map[string]int{"n": 1}, time.Minute); err != nil {
			t.Fatal(err)
		}
		got, err := Get[map[string]int](ctx, r, "k:1")
		if err != nil || got["n"] != 1 {
			t.Errorf("Get = %v, %v", got, err)
		}
		for i := 0; i < 250; i++ {
			_ = Set(ctx, r, fmt.Sprintf("k:%d", i), i, time.Minute)
		}
		if err := DelPattern(ctx, r, "k:*"); err != nil {
			t.Fatal(err)
		}
		if n, _ := r.Client().Exists(ctx, "k:1", "k:200").Result(); n != 0 {
			t.Errorf("%d keys survived DelPattern", n)
		}
	})

	t.Run("lock", func(t *testing.T) {
		unlock, err := TryLock(ctx, r, ImportLockKey, time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := TryLock(ctx, r, ImportLockKey, time.Minute); !errors.Is(err, ErrLocked) {
			t.Errorf("second TryLock err = %v", err)
		}
		if !IsLocked(ctx, r, ImportLockKey) {
			t.Error("IsLocked = false while held")
		}
		unlock()
		if IsLocked(ctx, r, ImportLockKey) {
			t.Error("lock still held after unlock")
		}
	})

	t.Run("queue", func(t *testing.T) {
		for _, kind := range []string{JobPlaylist, JobGuide} {
			if err := Enqueue(ctx, r, DefaultQueue, ImportJob{ID: kind, Kind: kind, URL: "http://x/" + kind}); err != nil {
				t.Fatal(err)
			}
		}
		if n, _ := QueueLength(ctx, r, DefaultQueue); n != 2 {
			t.Errorf("length = %d", n)
		}
		first, err := Dequeue(ctx, r, DefaultQueue, time.Second)
		if err != nil || first == nil || first.Kind != JobPlaylist {
			t.Fatalf("first = %+v, %v", first, err)
		}
		second, _ := Dequeue(ctx, r, DefaultQueue, time.Second)
		if second == nil || second.Kind != JobGuide {
			t.Fatalf("second = %+v", second)
		}
		empty, err := Dequeue(ctx, r, DefaultQueue, time.Second)
		if empty != nil || err != nil {
			t.Errorf("empty queue = %+v, %v", empty, err)
		}
	})
}
