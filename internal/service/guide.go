// Package service orchestrates the guide engine: it parses imports,
// reconciles them with the roster, persists the result and serves reads
// from an immutable in-memory snapshot.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/voyagen/guidevault/internal/cache"
	"github.com/voyagen/guidevault/internal/epg"
	"github.com/voyagen/guidevault/internal/metrics"
	"github.com/voyagen/guidevault/internal/models"
	"github.com/voyagen/guidevault/internal/reminder"
	"github.com/voyagen/guidevault/internal/store"
)

var (
	// ErrChannelNotFound is returned for an unknown guide channel id.
	ErrChannelNotFound = errors.New("channel not found")
	// ErrEventNotFound is returned for an unknown event id.
	ErrEventNotFound = errors.New("event not found")
	// ErrImportInProgress is returned when another instance holds the import lock.
	ErrImportInProgress = errors.New("an import is already in progress")
	// ErrNoUpcomingEvent is returned when a reminder target has nothing left to air.
	ErrNoUpcomingEvent = errors.New("no upcoming event")
	// ErrNoReminders is returned when the service runs without a reminder scheduler.
	ErrNoReminders = errors.New("reminders are not enabled")
)

// Fetcher downloads a remote document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Deps are the collaborators of a Guide. Only Store is required.
type Deps struct {
	Store     store.Store
	Fetcher   Fetcher
	Metrics   *metrics.Metrics
	Redis     *cache.Redis
	Reminders *reminder.Scheduler
}

// Options tunes the Guide.
type Options struct {
	GuideKey      string
	RosterKey     string
	Placeholder   epg.PlaceholderPolicy
	StableIDs     bool
	PreferTvgName bool
	// SkipPlaceholders leaves roster channels without guide data empty
	// instead of synthesizing a schedule for them.
	SkipPlaceholders bool
	LockTTL          time.Duration
	NewID            epg.IDFunc
	Now              func() time.Time
}

// snapshot is never modified after it is published.
type snapshot struct {
	roster    []models.Channel
	guide     []models.EPGChannel
	guideURLs []string
	updatedAt time.Time
}

// Guide is the authoritative guide of the process.
type Guide struct {
	deps Deps
	opts Options

	// mu serializes writers; readers only load snap.
	mu   sync.Mutex
	snap atomic.Pointer[snapshot]
}

// New returns a Guide with an empty snapshot. Call Reload to read the store.
func New(deps Deps, opts Options) *Guide {
	if opts.GuideKey == "" {
		opts.GuideKey = models.GuideKey
	}
	if opts.RosterKey == "" {
		opts.RosterKey = models.RosterKey
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 5 * time.Minute
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	g := &Guide{deps: deps, opts: opts}
	g.snap.Store(&snapshot{roster: []models.Channel{}, guide: []models.EPGChannel{}})
	return g
}

func (g *Guide) current() *snapshot {
	return g.snap.Load()
}

func (g *Guide) publish(s *snapshot) {
	s.updatedAt = g.opts.Now()
	g.snap.Store(s)
	g.deps.Metrics.SetGuideSize(len(s.roster), len(s.guide), epg.EventCount(s.guide))
}

// Reload replaces the snapshot with what the store holds. A caching store
// is flushed first so writes made behind the cache are picked up.
func (g *Guide) Reload(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if f, ok := g.deps.Store.(store.Flusher); ok {
		f.Flush(ctx)
	}

	roster, err := store.LoadRoster(ctx, g.deps.Store, g.opts.RosterKey)
	if err != nil {
		return fmt.Errorf("load roster: %w", err)
	}
	guide, err := store.LoadGuide(ctx, g.deps.Store, g.opts.GuideKey)
	if err != nil {
		return fmt.Errorf("load guide: %w", err)
	}
	prev := g.current()
	g.publish(&snapshot{roster: roster, guide: epg.Normalize(guide), guideURLs: prev.guideURLs})
	log.Info().Int("channels", len(roster)).Int("guide_channels", len(guide)).Msg("guide loaded")
	return nil
}

// Guide returns the current guide. The slice must not be modified.
func (g *Guide) Guide() []models.EPGChannel {
	return g.current().guide
}

// Roster returns the current channel roster. The slice must not be modified.
func (g *Guide) Roster() []models.Channel {
	return g.current().roster
}

// GuideURLs returns the guide URLs advertised by the last playlist.
func (g *Guide) GuideURLs() []string {
	return g.current().guideURLs
}

// UpdatedAt returns when the snapshot was last replaced.
func (g *Guide) UpdatedAt() time.Time {
	return g.current().updatedAt
}

// Categories summarises the roster by category, sorted by name.
func (g *Guide) Categories() []models.Category {
	counts := make(map[string]int)
	for _, ch := range g.current().roster {
		name := ch.Category
		if name == "" {
			name = models.DefaultCategory
		}
		counts[name]++
	}
	out := make([]models.Category, 0, len(counts))
	for name, n := range counts {
		out = append(out, models.Category{Name: name, ChannelCount: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Channels returns roster channels, optionally restricted to one category.
func (g *Guide) Channels(category string) []models.Channel {
	roster := g.current().roster
	if category == "" {
		return roster
	}
	out := make([]models.Channel, 0)
	for _, ch := range roster {
		c := ch.Category
		if c == "" {
			c = models.DefaultCategory
		}
		if c == category {
			out = append(out, ch)
		}
	}
	return out
}

// Channel returns the guide entry for id.
func (g *Guide) Channel(id string) (models.EPGChannel, error) {
	ch, ok := epg.Find(g.current().guide, id)
	if !ok {
		return models.EPGChannel{}, fmt.Errorf("%w: %s", ErrChannelNotFound, id)
	}
	return ch, nil
}

// NowNext answers the now/next query for one channel at the given instant.
func (g *Guide) NowNext(id string, at time.Time) (models.NowPlaying, error) {
	ch, ok := epg.Find(g.current().guide, id)
	if !ok {
		return models.NowPlaying{}, fmt.Errorf("%w: %s", ErrChannelNotFound, id)
	}
	g.deps.Metrics.IncNowNext()
	cur, next := epg.NowNext([]models.EPGChannel{ch}, id, at)
	return models.NowPlaying{ChannelID: ch.ID, ChannelName: ch.Name, Current: cur, Next: next}, nil
}

// WhatsOn answers the now/next query for every guide channel.
func (g *Guide) WhatsOn(at time.Time) []models.NowPlaying {
	g.deps.Metrics.IncNowNext()
	return epg.NowNextAll(g.current().guide, at)
}

// AdjustOffset shifts one channel's schedule and persists the guide.
func (g *Guide) AdjustOffset(ctx context.Context, id string, minutes int) (models.EPGChannel, error) {
	unlock, err := g.lock(ctx)
	if err != nil {
		return models.EPGChannel{}, err
	}
	defer unlock()

	prev := g.current()
	guide, ok := epg.AdjustChannelOffset(prev.guide, id, minutes)
	if !ok {
		return models.EPGChannel{}, fmt.Errorf("%w: %s", ErrChannelNotFound, id)
	}
	if err := store.SaveGuide(ctx, g.deps.Store, g.opts.GuideKey, guide); err != nil {
		return models.EPGChannel{}, err
	}
	g.publish(&snapshot{roster: prev.roster, guide: guide, guideURLs: prev.guideURLs})
	ch, _ := epg.Find(guide, id)
	log.Info().Str("channel", id).Int("minutes", minutes).Int("offset", ch.OffsetMinutes).Msg("channel offset adjusted")
	return ch, nil
}

// Remap renames guide channels and persists the result.
func (g *Guide) Remap(ctx context.Context, mapping map[string]epg.Remapping) error {
	unlock, err := g.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	prev := g.current()
	guide := epg.Remap(prev.guide, mapping)
	if err := store.SaveGuide(ctx, g.deps.Store, g.opts.GuideKey, guide); err != nil {
		return err
	}
	g.publish(&snapshot{roster: prev.roster, guide: guide, guideURLs: prev.guideURLs})
	return nil
}
