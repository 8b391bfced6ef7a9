package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Import job kinds.
const (
	JobPlaylist = "playlist"
	JobGuide    = "guide"
)

// ImportJob asks a worker to fetch and import a remote document.
type ImportJob struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	URL        string    `json:"url"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// DefaultQueue is the Redis list key used for import jobs.
const DefaultQueue = "guidevault:jobs:imports"

// Enqueue pushes a job onto the left side of a Redis list.
func Enqueue(ctx context.Context, r *Redis, queue string, job ImportJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue marshal: %w", err)
	}
	return r.client.LPush(ctx, queue, data).Err()
}

// Dequeue blocks until a job is available on the right side of the list
// or the timeout expires. On timeout or cancellation (nil, nil) is
// returned so the caller can loop and check for shutdown.
func Dequeue(ctx context.Context, r *Redis, queue string, timeout time.Duration) (*ImportJob, error) {
	result, err := r.client.BRPop(ctx, timeout, queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || ctx.Err() != nil {
			return nil, nil
		}
		return nil, fmt.Errorf("queue dequeue: %w", err)
	}
	// BRPop returns [key, value].
	if len(result) < 2 {
		return nil, nil
	}
	var job ImportJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("queue unmarshal: %w", err)
	}
	return &job, nil
}

// QueueLength returns the number of jobs waiting on queue.
func QueueLength(ctx context.Context, r *Redis, queue string) (int64, error) {
	return r.client.LLen(ctx, queue).Result()
}
