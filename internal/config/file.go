package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	StoreDriver     string `yaml:"store_driver"`
	DatabaseURL     string `yaml:"database_url"`
	RedisURL        string `yaml:"redis_url"`
	DataDir         string `yaml:"data_dir"`
	MigrationsPath  string `yaml:"migrations_path"`
	ServerPort      string `yaml:"server_port"`
	LogLevel        string `yaml:"log_level"`
	UserAgent       string `yaml:"user_agent"`
	Timeout         string `yaml:"timeout"`
	GuideKey        string `yaml:"guide_key"`
	RosterKey       string `yaml:"roster_key"`
	StableIDs       bool   `yaml:"stable_ids"`
	PreferTvgName   bool   `yaml:"prefer_tvg_name"`
	ReminderLead    string `yaml:"reminder_lead"`
	RefreshInterval string `yaml:"refresh_interval"`
	CacheTTL        string `yaml:"cache_ttl"`
	Placeholder     struct {
		StartHour           *int `yaml:"start_hour"`
		SlotCount           int  `yaml:"slot_count"`
		SlotDurationMinutes int  `yaml:"slot_duration_minutes"`
	} `yaml:"placeholder"`
}

// LoadFromFile loads config from a YAML file on top of Default.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	c := Default()
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.StoreDriver, f.StoreDriver)
	set(&c.DatabaseURL, f.DatabaseURL)
	set(&c.RedisURL, f.RedisURL)
	set(&c.DataDir, f.DataDir)
	set(&c.MigrationsPath, f.MigrationsPath)
	set(&c.ServerPort, f.ServerPort)
	set(&c.LogLevel, f.LogLevel)
	set(&c.UserAgent, f.UserAgent)
	set(&c.GuideKey, f.GuideKey)
	set(&c.RosterKey, f.RosterKey)
	c.StableIDs = f.StableIDs
	c.PreferTvgName = f.PreferTvgName
	if f.StoreDriver == "" && f.DatabaseURL != "" {
		c.StoreDriver = DriverPostgres
	}

	for _, d := range []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"timeout", f.Timeout, &c.Timeout},
		{"reminder_lead", f.ReminderLead, &c.ReminderLead},
		{"refresh_interval", f.RefreshInterval, &c.RefreshInterval},
		{"cache_ttl", f.CacheTTL, &c.CacheTTL},
	} {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, d.name, err)
		}
		*d.dst = parsed
	}

	if f.Placeholder.StartHour != nil {
		c.Placeholder.StartHour = *f.Placeholder.StartHour
	}
	if f.Placeholder.SlotCount != 0 {
		c.Placeholder.SlotCount = f.Placeholder.SlotCount
	}
	if f.Placeholder.SlotDurationMinutes != 0 {
		c.Placeholder.SlotDurationMinutes = f.Placeholder.SlotDurationMinutes
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
