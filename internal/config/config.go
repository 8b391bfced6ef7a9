package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/voyagen/guidevault/internal/epg"
	"github.com/voyagen/guidevault/internal/models"
	"github.com/voyagen/guidevault/internal/reminder"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config holds application configuration.
type Config struct {
	StoreDriver    string `yaml:"store_driver" env:"STORE_DRIVER"`
	DatabaseURL    string `yaml:"database_url" env:"DATABASE_URL"`
	RedisURL       string `yaml:"redis_url" env:"REDIS_URL"`
	DataDir        string `yaml:"data_dir" env:"DATA_DIR"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH"`
	ServerPort     string `yaml:"server_port" env:"SERVER_PORT"`
	LogLevel       string `yaml:"log_level" env:"LOG_LEVEL"`

	UserAgent string        `yaml:"user_agent" env:"FETCHER_USER_AGENT"`
	Timeout   time.Duration `yaml:"timeout" env:"FETCHER_TIMEOUT"`

	GuideKey      string `yaml:"guide_key" env:"GUIDE_KEY"`
	RosterKey     string `yaml:"roster_key" env:"ROSTER_KEY"`
	StableIDs     bool   `yaml:"stable_ids" env:"STABLE_IDS"`
	PreferTvgName bool   `yaml:"prefer_tvg_name" env:"PREFER_TVG_NAME"`

	Placeholder     epg.PlaceholderPolicy `yaml:"placeholder"`
	ReminderLead    time.Duration         `yaml:"reminder_lead" env:"REMINDER_LEAD"`
	RefreshInterval time.Duration         `yaml:"refresh_interval" env:"REFRESH_INTERVAL"`
	CacheTTL        time.Duration         `yaml:"cache_ttl" env:"CACHE_TTL"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		StoreDriver:     DriverFile,
		DataDir:         "./data",
		MigrationsPath:  "file://migrations",
		ServerPort:      "8080",
		LogLevel:        "info",
		UserAgent:       "GuideVault/1.0",
		Timeout:         30 * time.Second,
		GuideKey:        models.GuideKey,
		RosterKey:       models.RosterKey,
		Placeholder:     epg.DefaultPlaceholderPolicy(),
		ReminderLead:    reminder.DefaultLead,
		RefreshInterval: time.Minute,
		CacheTTL:        5 * time.Minute,
	}
}

// Load builds config from environment variables on top of Default.
// If DATABASE_URL is not set, Load first tries .env.local and .env from the
// current directory. The store driver defaults to postgres when a database
// URL is present and to file otherwise.
func Load() (*Config, error) {
	if os.Getenv("DATABASE_URL") == "" {
		loadEnvFiles()
	}
	c := Default()
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if os.Getenv("STORE_DRIVER") == "" && c.DatabaseURL != "" {
		c.StoreDriver = DriverPostgres
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("STORE_DRIVER", &c.StoreDriver)
	str("DATABASE_URL", &c.DatabaseURL)
	str("REDIS_URL", &c.RedisURL)
	str("DATA_DIR", &c.DataDir)
	str("MIGRATIONS_PATH", &c.MigrationsPath)
	str("SERVER_PORT", &c.ServerPort)
	str("LOG_LEVEL", &c.LogLevel)
	str("FETCHER_USER_AGENT", &c.UserAgent)
	str("GUIDE_KEY", &c.GuideKey)
	str("ROSTER_KEY", &c.RosterKey)

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"FETCHER_TIMEOUT", &c.Timeout},
		{"REMINDER_LEAD", &c.ReminderLead},
		{"REFRESH_INTERVAL", &c.RefreshInterval},
		{"CACHE_TTL", &c.CacheTTL},
	}
	for _, d := range durations {
		if v := getenv(d.key); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalid, d.key, err)
			}
			*d.dst = parsed
		}
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"STABLE_IDS", &c.StableIDs},
		{"PREFER_TVG_NAME", &c.PreferTvgName},
	}
	for _, b := range bools {
		if v := getenv(b.key); v != "" {
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalid, b.key, err)
			}
			*b.dst = parsed
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"PLACEHOLDER_START_HOUR", &c.Placeholder.StartHour},
		{"PLACEHOLDER_SLOTS", &c.Placeholder.SlotCount},
		{"PLACEHOLDER_SLOT_MINUTES", &c.Placeholder.SlotDurationMinutes},
	}
	for _, n := range ints {
		if v := getenv(n.key); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalid, n.key, err)
			}
			*n.dst = parsed
		}
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverMemory:
	case DriverFile:
		if c.DataDir == "" {
			return fmt.Errorf("%w: data_dir is required for the file store", ErrInvalid)
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
	case DriverRedis:
		if c.RedisURL == "" {
			return ErrMissingRedisURL
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.StoreDriver)
	}
	if c.GuideKey == "" || c.RosterKey == "" {
		return fmt.Errorf("%w: guide and roster keys must be set", ErrInvalid)
	}
	if c.GuideKey == c.RosterKey {
		return fmt.Errorf("%w: guide and roster keys must differ", ErrInvalid)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalid)
	}
	if c.ReminderLead < 0 {
		return fmt.Errorf("%w: reminder_lead must not be negative", ErrInvalid)
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("%w: refresh_interval must be positive", ErrInvalid)
	}
	if err := c.Placeholder.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Ephemeral reports whether the configured store is lost when the process
// exits.
func (c *Config) Ephemeral() bool {
	return c.StoreDriver == DriverMemory
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return ":" + c.ServerPort
}
