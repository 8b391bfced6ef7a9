package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"STORE_DRIVER", "DATABASE_URL", "REDIS_URL", "DATA_DIR", "MIGRATIONS_PATH",
		"SERVER_PORT", "LOG_LEVEL", "FETCHER_USER_AGENT", "FETCHER_TIMEOUT",
		"GUIDE_KEY", "ROSTER_KEY", "STABLE_IDS", "PREFER_TVG_NAME",
		"REMINDER_LEAD", "REFRESH_INTERVAL", "CACHE_TTL",
		"PLACEHOLDER_START_HOUR", "PLACEHOLDER_SLOTS", "PLACEHOLDER_SLOT_MINUTES",
	} {
		t.Setenv(k, "")
	}
	// keep .env files of the developer's checkout out of the test
	t.Chdir(t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.StoreDriver != DriverFile || c.DataDir != "./data" || c.Ephemeral() {
		t.Errorf("driver = %q, data dir = %q", c.StoreDriver, c.DataDir)
	}
	if c.GuideKey != "app:epg_v1" || c.RosterKey != "app:channels_v1" {
		t.Errorf("keys = %q, %q", c.GuideKey, c.RosterKey)
	}
	if c.Placeholder.StartHour != 6 || c.Placeholder.SlotCount != 12 || c.Placeholder.SlotDurationMinutes != 60 {
		t.Errorf("placeholder = %+v", c.Placeholder)
	}
	if c.ReminderLead != 2*time.Minute || c.RefreshInterval != time.Minute {
		t.Errorf("lead = %v, refresh = %v", c.ReminderLead, c.RefreshInterval)
	}
	if c.Addr() != ":8080" {
		t.Errorf("addr = %q", c.Addr())
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://u:p@db/guide")
	t.Setenv("FETCHER_TIMEOUT", "5s")
	t.Setenv("STABLE_IDS", "true")
	t.Setenv("PLACEHOLDER_START_HOUR", "0")
	t.Setenv("PLACEHOLDER_SLOTS", "24")
	t.Setenv("SERVER_PORT", "9090")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.StoreDriver != DriverPostgres {
		t.Errorf("driver = %q, want postgres inferred from DATABASE_URL", c.StoreDriver)
	}
	if c.Timeout != 5*time.Second || !c.StableIDs || c.ServerPort != "9090" {
		t.Errorf("config = %+v", c)
	}
	if c.Placeholder.StartHour != 0 || c.Placeholder.SlotCount != 24 {
		t.Errorf("placeholder = %+v", c.Placeholder)
	}
}

func TestEphemeral(t *testing.T) {
	for driver, want := range map[string]bool{
		DriverMemory:   true,
		DriverFile:     false,
		DriverPostgres: false,
		DriverRedis:    false,
	} {
		c := Default()
		c.StoreDriver = driver
		if got := c.Ephemeral(); got != want {
			t.Errorf("%s: Ephemeral = %v, want %v", driver, got, want)
		}
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want error
	}{
		{"postgres without dsn", map[string]string{"STORE_DRIVER": "postgres"}, ErrMissingDatabaseURL},
		{"redis without url", map[string]string{"STORE_DRIVER": "redis"}, ErrMissingRedisURL},
		{"unknown driver", map[string]string{"STORE_DRIVER": "bolt"}, ErrUnknownDriver},
		{"bad duration", map[string]string{"FETCHER_TIMEOUT": "soon"}, ErrInvalid},
		{"bad bool", map[string]string{"STABLE_IDS": "maybe"}, ErrInvalid},
		{"bad hour", map[string]string{"PLACEHOLDER_START_HOUR": "25"}, ErrInvalid},
		{"same keys", map[string]string{"GUIDE_KEY": "k", "ROSTER_KEY": "k"}, ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	dir, _ := os.Getwd()
	content := "# comment\nSTORE_DRIVER=file\nDATA_DIR='/var/lib/guide'\nLOG_LEVEL=\"debug\"\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("STORE_DRIVER")
		os.Unsetenv("DATA_DIR")
		os.Unsetenv("LOG_LEVEL")
	})

	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.StoreDriver != DriverFile || c.DataDir != "/var/lib/guide" || c.LogLevel != "debug" {
		t.Errorf("config = %+v", c)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `store_driver: file
data_dir: /tmp/guide
server_port: "7000"
timeout: 10s
reminder_lead: 5m
stable_ids: true
placeholder:
  start_hour: 0
  slot_count: 6
  slot_duration_minutes: 30
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if c.StoreDriver != DriverFile || c.DataDir != "/tmp/guide" || c.ServerPort != "7000" {
		t.Errorf("config = %+v", c)
	}
	if c.Timeout != 10*time.Second || c.ReminderLead != 5*time.Minute || !c.StableIDs {
		t.Errorf("durations = %v, %v", c.Timeout, c.ReminderLead)
	}
	if c.Placeholder.StartHour != 0 || c.Placeholder.SlotCount != 6 || c.Placeholder.SlotDurationMinutes != 30 {
		t.Errorf("placeholder = %+v", c.Placeholder)
	}
	if c.GuideKey != "app:epg_v1" {
		t.Errorf("guide key default lost: %q", c.GuideKey)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadFromFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file: expected error")
	}

	bad := filepath.Join(dir, "bad.yaml")
	_ = os.WriteFile(bad, []byte("store_driver: postgres\n"), 0o644)
	if _, err := LoadFromFile(bad); !errors.Is(err, ErrMissingDatabaseURL) {
		t.Errorf("err = %v, want ErrMissingDatabaseURL", err)
	}

	garbled := filepath.Join(dir, "garbled.yaml")
	_ = os.WriteFile(garbled, []byte("store_driver: [unterminated\n"), 0o644)
	if _, err := LoadFromFile(garbled); err == nil {
		t.Error("garbled yaml: expected error")
	}
}

func TestParseEnvFile(t *testing.T) {
	got := parseEnvFile([]byte(`
# header
export REDIS_URL=redis://cache:6379/0
USER_AGENT="Guide Vault/2"
DATA_DIR=/data # trailing comment
EMPTY=
=novalue
broken line
DATA_DIR=/ignored
`))
	want := map[string]string{
		"REDIS_URL":  "redis://cache:6379/0",
		"USER_AGENT": "Guide Vault/2",
		"DATA_DIR":   "/data",
		"EMPTY":      "",
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
}
