package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// WaitForDatabase pings the database until it answers or ctx is done.
// Freshly started containers often refuse connections for a few seconds.
func WaitForDatabase(ctx context.Context, dsn string, interval time.Duration) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer db.Close()

	for attempt := 1; ; attempt++ {
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}
		log.Debug().Err(err).Int("attempt", attempt).Msg("database not ready")
		select {
		case <-ctx.Done():
			return fmt.Errorf("database not ready after %d attempts: %w", attempt, err)
		case <-time.After(interval):
		}
	}
}

// RunMigrations runs SQL migrations from the given directory (e.g. "file://migrations") against the DSN.
func RunMigrations(dsn string, migrationsPath string) error {
	m, err := migrate.New(migrationsPath, dsn)
	if err != nil {
		return fmt.Errorf("migrate.New: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migrate.Up: %w", err)
	}
	return nil
}
