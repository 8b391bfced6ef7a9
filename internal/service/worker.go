package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/voyagen/guidevault/internal/cache"
)

// ErrNoQueue is returned by EnqueueImport when Redis is not configured.
var ErrNoQueue = errors.New("import queue requires redis")

// QueueStatus describes the shared import queue.
type QueueStatus struct {
	Pending int64 `json:"pending"`
	Locked  bool  `json:"locked"`
}

// ImportQueue reports how many jobs wait on the queue and whether an import
// currently holds the import lock.
func (g *Guide) ImportQueue(ctx context.Context) (QueueStatus, error) {
	if g.deps.Redis == nil {
		return QueueStatus{}, ErrNoQueue
	}
	n, err := cache.QueueLength(ctx, g.deps.Redis, cache.DefaultQueue)
	if err != nil {
		return QueueStatus{}, fmt.Errorf("queue length: %w", err)
	}
	return QueueStatus{Pending: n, Locked: cache.IsLocked(ctx, g.deps.Redis, cache.ImportLockKey)}, nil
}

// EnqueueImport queues a remote import for the background worker.
func (g *Guide) EnqueueImport(ctx context.Context, kind, url string) (cache.ImportJob, error) {
	if g.deps.Redis == nil {
		return cache.ImportJob{}, ErrNoQueue
	}
	if kind != cache.JobPlaylist && kind != cache.JobGuide {
		return cache.ImportJob{}, fmt.Errorf("unknown import kind %q", kind)
	}
	job := cache.ImportJob{ID: uuid.NewString(), Kind: kind, URL: url, EnqueuedAt: g.opts.Now().UTC()}
	if err := cache.Enqueue(ctx, g.deps.Redis, cache.DefaultQueue, job); err != nil {
		return cache.ImportJob{}, err
	}
	log.Info().Str("job", job.ID).Str("kind", kind).Str("url", url).Msg("import queued")
	return job, nil
}

// RunImportWorker dequeues import jobs until ctx is cancelled.
func (g *Guide) RunImportWorker(ctx context.Context) {
	if g.deps.Redis == nil {
		return
	}
	log.Info().Msg("import worker started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("import worker stopping")
			return
		default:
		}

		job, err := cache.Dequeue(ctx, g.deps.Redis, cache.DefaultQueue, 5*time.Second)
		if err != nil {
			log.Error().Err(err).Msg("import worker: dequeue")
			select {
			case <-ctx.Done():
			case <-time.After(2 * time.Second):
			}
			continue
		}
		if job == nil {
			continue // timeout, loop back to check ctx
		}
		g.runJob(ctx, *job)
	}
}

func (g *Guide) runJob(ctx context.Context, job cache.ImportJob) {
	logger := log.With().Str("job", job.ID).Str("kind", job.Kind).Str("url", job.URL).Logger()
	logger.Info().Dur("waited", g.opts.Now().Sub(job.EnqueuedAt)).Msg("import worker: processing job")

	_, err := g.ImportFromURL(ctx, job.Kind, job.URL)
	if errors.Is(err, ErrImportInProgress) {
		// another instance is importing; try again later
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
		if err := cache.Enqueue(ctx, g.deps.Redis, cache.DefaultQueue, job); err != nil {
			logger.Error().Err(err).Msg("import worker: requeue")
		}
		return
	}
	if err != nil {
		logger.Error().Err(err).Msg("import worker: job failed")
	}
}
