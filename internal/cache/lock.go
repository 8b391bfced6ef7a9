package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ErrLocked is returned by TryLock when the lock is already held.
var ErrLocked = errors.New("lock is already held")

// ImportLockKey guards guide and playlist imports across instances.
const ImportLockKey = "guidevault:lock:import"

// unlockScript deletes the key only while it still holds our token.
var unlockScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`)

// TryLock acquires a distributed lock with SET NX EX. On success the
// returned unlock function must be called to release it. ErrLocked is
// returned when another holder has it.
func TryLock(ctx context.Context, r *Redis, key string, ttl time.Duration) (unlock func(), err error) {
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("cache lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	return func() {
		// the request context may already be cancelled
		if err := unlockScript.Run(context.Background(), r.client, []string{key}, token).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache: unlock")
		}
	}, nil
}

// IsLocked reports whether the lock key exists.
func IsLocked(ctx context.Context, r *Redis, key string) bool {
	n, _ := r.client.Exists(ctx, key).Result()
	return n > 0
}
