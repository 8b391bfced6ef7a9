package cmds

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/voyagen/guidevault/internal/cache"
	"github.com/voyagen/guidevault/internal/fetcher"
	"github.com/voyagen/guidevault/internal/metrics"
	"github.com/voyagen/guidevault/internal/reminder"
	"github.com/voyagen/guidevault/internal/service"
	"github.com/voyagen/guidevault/internal/store"
)

// ErrEphemeralStore is returned by one-shot commands that write to the store
// when the memory driver is configured.
var ErrEphemeralStore = errors.New("the memory store is discarded when the command exits; use STORE_DRIVER=file, postgres or redis")

// requirePersistentStore guards commands whose only effect is a store write.
func requirePersistentStore() error {
	if conf.Ephemeral() {
		return ErrEphemeralStore
	}
	return nil
}

// warnEphemeral flags one-shot reads that can only see an empty store.
func warnEphemeral() {
	if conf.Ephemeral() {
		log.Warn().Str("driver", conf.StoreDriver).Msg("store is empty at start and discarded on exit")
	}
}

// app is the wired process shared by every command.
type app struct {
	guide     *service.Guide
	store     store.Store
	redis     *cache.Redis
	reminders *reminder.Scheduler
	closers   []func()
}

// newApp opens the configured store, connects Redis when REDIS_URL is set
// and loads the persisted guide.
func newApp(ctx context.Context, n reminder.Notifier, m *metrics.Metrics) (*app, error) {
	a := &app{}

	if conf.RedisURL != "" {
		rds, err := cache.Connect(ctx, conf.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.redis = rds
		a.closers = append(a.closers, func() { _ = rds.Close() })
		log.Info().Msg("redis connected")
	} else {
		log.Info().Msg("redis disabled (REDIS_URL not set)")
	}

	s, closeStore, err := store.Open(ctx, store.Options{
		Driver:         conf.StoreDriver,
		DataDir:        conf.DataDir,
		DatabaseURL:    conf.DatabaseURL,
		MigrationsPath: resolveMigrations(conf.MigrationsPath),
		CacheTTL:       conf.CacheTTL,
		Redis:          a.redis,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("store: %w", err)
	}
	a.store = s
	a.closers = append(a.closers, closeStore)

	a.reminders = reminder.New(n, conf.ReminderLead)
	a.reminders.OnError(func(title string, err error) {
		log.Error().Err(err).Str("title", title).Msg("reminder notification failed")
	})
	a.closers = append(a.closers, a.reminders.Stop)

	a.guide = service.New(service.Deps{
		Store:     s,
		Fetcher:   fetcher.New(conf.UserAgent, conf.Timeout),
		Metrics:   m,
		Redis:     a.redis,
		Reminders: a.reminders,
	}, service.Options{
		GuideKey:      conf.GuideKey,
		RosterKey:     conf.RosterKey,
		Placeholder:   conf.Placeholder,
		StableIDs:     conf.StableIDs,
		PreferTvgName: conf.PreferTvgName,
	})
	if err := a.guide.Reload(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("load guide: %w", err)
	}
	log.Info().Str("driver", conf.StoreDriver).Int("channels", len(a.guide.Guide())).Msg("guide loaded")
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// resolveMigrations makes a relative file:// migrations path absolute,
// falling back to the directory of the executable when the working
// directory has no migrations.
func resolveMigrations(p string) string {
	const scheme = "file://"
	if !strings.HasPrefix(p, scheme) {
		return p
	}
	dir := strings.TrimPrefix(p, scheme)
	if filepath.IsAbs(dir) {
		return p
	}
	if abs, err := filepath.Abs(dir); err == nil {
		if _, err := os.Stat(abs); err == nil {
			return scheme + abs
		}
	}
	if exe, err := os.Executable(); err == nil {
		return scheme + filepath.Join(filepath.Dir(exe), dir)
	}
	return p
}

func isRemote(arg string) bool {
	return strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://")
}
