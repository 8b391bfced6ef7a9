package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/voyagen/guidevault/internal/cache"
)

// Drivers accepted by Open.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Driver         string
	DataDir        string
	DatabaseURL    string
	MigrationsPath string
	CacheTTL       time.Duration
	// Redis is used by the redis driver and, for the file and postgres
	// drivers, as a read-through cache when non-nil.
	Redis *cache.Redis
}

// Open builds the Store described by opts. The returned close function
// releases backend resources and is never nil.
func Open(ctx context.Context, opts Options) (Store, func(), error) {
	noop := func() {}
	var (
		s       Store
		closeFn = noop
	)

	switch opts.Driver {
	case DriverMemory, "":
		s = NewMemory()
	case DriverFile:
		f, err := NewFile(opts.DataDir)
		if err != nil {
			return nil, noop, err
		}
		s = f
	case DriverPostgres:
		waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := WaitForDatabase(waitCtx, opts.DatabaseURL, time.Second)
		cancel()
		if err != nil {
			return nil, noop, err
		}
		if opts.MigrationsPath != "" {
			if err := RunMigrations(opts.DatabaseURL, opts.MigrationsPath); err != nil {
				return nil, noop, err
			}
			log.Info().Str("path", opts.MigrationsPath).Msg("migrations applied")
		}
		pg, err := NewPostgres(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		s, closeFn = pg, pg.Close
	case DriverRedis:
		if opts.Redis == nil {
			return nil, noop, fmt.Errorf("store driver %q requires a redis connection", opts.Driver)
		}
		return NewRedisStore(opts.Redis), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown store driver %q", opts.Driver)
	}

	if opts.Redis != nil && opts.Driver != DriverMemory && opts.Driver != "" {
		s = NewCachedStore(s, opts.Redis, opts.CacheTTL)
	}
	return s, closeFn, nil
}
