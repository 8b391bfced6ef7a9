package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/voyagen/guidevault/internal/cache"
	"github.com/voyagen/guidevault/internal/epg"
	"github.com/voyagen/guidevault/internal/m3u"
	"github.com/voyagen/guidevault/internal/models"
	"github.com/voyagen/guidevault/internal/store"
	"github.com/voyagen/guidevault/internal/xmltv"
)

// PlaylistResult summarises a playlist import.
type PlaylistResult struct {
	Channels   int      `json:"channels"`
	Categories int      `json:"categories"`
	GuideURLs  []string `json:"guideUrls,omitempty"`
}

// GuideResult summarises a guide import.
type GuideResult struct {
	Channels     int `json:"channels"`
	Events       int `json:"events"`
	Dropped      int `json:"dropped"`
	Placeholders int `json:"placeholders"`
}

// ImportPlaylist replaces the roster with the channels of an M3U playlist.
// Existing guide data is reconciled against the new roster so schedules of
// channels that dropped out are kept.
func (g *Guide) ImportPlaylist(ctx context.Context, r io.Reader) (res PlaylistResult, err error) {
	start := time.Now()
	defer func() { g.deps.Metrics.ObserveImport("playlist", time.Since(start), err) }()

	pl, err := m3u.ParsePlaylist(r, m3u.Options{
		PreferTvgName: g.opts.PreferTvgName,
		StableIDs:     g.opts.StableIDs,
		NewID:         g.opts.NewID,
	})
	if err != nil {
		return res, fmt.Errorf("parse playlist: %w", err)
	}

	unlock, err := g.lock(ctx)
	if err != nil {
		return res, err
	}
	defer unlock()

	prev := g.current()
	guide, placeholders, err := g.reconcile(prev.guide, pl.Channels)
	if err != nil {
		return res, err
	}
	if err := store.SaveRoster(ctx, g.deps.Store, g.opts.RosterKey, pl.Channels); err != nil {
		return res, err
	}
	if err := store.SaveGuide(ctx, g.deps.Store, g.opts.GuideKey, guide); err != nil {
		return res, err
	}
	g.publish(&snapshot{roster: pl.Channels, guide: guide, guideURLs: pl.GuideURLs})

	res = PlaylistResult{Channels: len(pl.Channels), GuideURLs: pl.GuideURLs}
	res.Categories = len(g.Categories())
	log.Info().
		Int("channels", res.Channels).
		Int("categories", res.Categories).
		Int("placeholders", placeholders).
		Msg("playlist imported")
	return res, nil
}

// ImportGuide replaces the guide with an XMLTV document. A document that is
// not well-formed leaves the stored guide untouched and returns an error
// wrapping xmltv.ErrMalformedDocument.
func (g *Guide) ImportGuide(ctx context.Context, r io.Reader) (res GuideResult, err error) {
	start := time.Now()
	defer func() { g.deps.Metrics.ObserveImport("guide", time.Since(start), err) }()

	parsed, err := xmltv.Parse(r)
	if err != nil {
		return res, err
	}
	normalized := epg.Normalize(parsed)
	res.Dropped = epg.EventCount(parsed) - epg.EventCount(normalized)
	g.deps.Metrics.AddDropped(res.Dropped)

	unlock, err := g.lock(ctx)
	if err != nil {
		return res, err
	}
	defer unlock()

	prev := g.current()
	guide, placeholders, err := g.reconcile(normalized, prev.roster)
	if err != nil {
		return res, err
	}
	if err := store.SaveGuide(ctx, g.deps.Store, g.opts.GuideKey, guide); err != nil {
		return res, err
	}
	g.publish(&snapshot{roster: prev.roster, guide: guide, guideURLs: prev.guideURLs})

	res.Channels = len(guide)
	res.Events = epg.EventCount(guide)
	res.Placeholders = placeholders
	log.Info().
		Int("channels", res.Channels).
		Int("events", res.Events).
		Int("dropped", res.Dropped).
		Int("placeholders", placeholders).
		Msg("guide imported")
	return res, nil
}

// ImportFromURL fetches url and imports it as kind (cache.JobPlaylist or
// cache.JobGuide).
func (g *Guide) ImportFromURL(ctx context.Context, kind, url string) (any, error) {
	if g.deps.Fetcher == nil {
		return nil, errors.New("no fetcher configured")
	}
	if kind != cache.JobPlaylist && kind != cache.JobGuide {
		return nil, fmt.Errorf("unknown import kind %q", kind)
	}
	body, err := g.deps.Fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	log.Debug().Str("kind", kind).Str("url", url).Int("bytes", len(body)).Msg("document fetched")
	if kind == cache.JobPlaylist {
		return g.ImportPlaylist(ctx, bytes.NewReader(body))
	}
	return g.ImportGuide(ctx, bytes.NewReader(body))
}

// reconcile merges guide with roster and fills channels that have no
// events with placeholders. It returns the number of channels filled.
func (g *Guide) reconcile(guide []models.EPGChannel, roster []models.Channel) ([]models.EPGChannel, int, error) {
	merged := epg.Merge(guide, roster, epg.MergeOptions{SkipPlaceholderShells: g.opts.SkipPlaceholders})
	if g.opts.SkipPlaceholders {
		return merged, 0, nil
	}
	empty := 0
	for _, ch := range merged {
		if len(ch.Events) == 0 {
			empty++
		}
	}
	if empty == 0 {
		return merged, 0, nil
	}
	policy := g.opts.Placeholder
	if policy.BaseDay.IsZero() {
		policy.BaseDay = g.opts.Now()
	}
	filled, err := epg.FillEmpty(merged, roster, policy, g.opts.NewID)
	if err != nil {
		return nil, 0, err
	}
	n := 0
	for i := range filled {
		if len(merged[i].Events) == 0 && len(filled[i].Events) > 0 {
			n++
		}
	}
	return filled, n, nil
}

// lock serializes writers in this process and, with Redis, across
// instances.
func (g *Guide) lock(ctx context.Context) (func(), error) {
	g.mu.Lock()
	if g.deps.Redis == nil {
		return g.mu.Unlock, nil
	}
	release, err := cache.TryLock(ctx, g.deps.Redis, cache.ImportLockKey, g.opts.LockTTL)
	if errors.Is(err, cache.ErrLocked) {
		g.mu.Unlock()
		return nil, ErrImportInProgress
	}
	if err != nil {
		g.mu.Unlock()
		return nil, err
	}
	return func() {
		release()
		g.mu.Unlock()
	}, nil
}
