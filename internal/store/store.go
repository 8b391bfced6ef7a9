package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/voyagen/guidevault/internal/models"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("key not found")

// Store is a flat key-value persistence backend. Values are JSON documents.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put replaces the value stored under key.
	Put(ctx context.Context, key string, value []byte) error
}

// Pinger is implemented by backends that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Flusher is implemented by caching backends. Flush drops cached values so
// the next read goes to the underlying store.
type Flusher interface {
	Flush(ctx context.Context)
}

// SaveGuide writes the whole guide under key.
func SaveGuide(ctx context.Context, s Store, key string, guide []models.EPGChannel) error {
	if guide == nil {
		guide = []models.EPGChannel{}
	}
	return save(ctx, s, key, guide)
}

// LoadGuide reads the guide stored under key. A missing or unreadable value
// yields an empty guide; only backend failures are returned as errors.
func LoadGuide(ctx context.Context, s Store, key string) ([]models.EPGChannel, error) {
	guide, err := load[[]models.EPGChannel](ctx, s, key)
	if err != nil || guide == nil {
		return []models.EPGChannel{}, err
	}
	return guide, nil
}

// SaveRoster writes the channel roster under key.
func SaveRoster(ctx context.Context, s Store, key string, roster []models.Channel) error {
	if roster == nil {
		roster = []models.Channel{}
	}
	return save(ctx, s, key, roster)
}

// LoadRoster reads the roster stored under key with the same recovery rules
// as LoadGuide.
func LoadRoster(ctx context.Context, s Store, key string) ([]models.Channel, error) {
	roster, err := load[[]models.Channel](ctx, s, key)
	if err != nil || roster == nil {
		return []models.Channel{}, err
	}
	return roster, nil
}

func save(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.Put(ctx, key, data); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func load[T any](ctx context.Context, s Store, key string) (T, error) {
	var zero T
	raw, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return zero, nil
	}
	if err != nil {
		return zero, fmt.Errorf("get %s: %w", key, err)
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("store: discarding unreadable value")
		return zero, nil
	}
	return v, nil
}
