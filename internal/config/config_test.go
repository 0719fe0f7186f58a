package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Storage.Driver != DriverSQLite || cfg.Storage.SQLitePath != ".rightontime.db" {
		t.Fatalf("unexpected storage defaults: %+v", cfg.Storage)
	}
	if cfg.Storage.RedisAddr != "127.0.0.1:6379" || cfg.Storage.RedisPrefix != "rightontime:" {
		t.Fatalf("unexpected redis defaults: %+v", cfg.Storage)
	}
	if got := cfg.AllowedOffsets().String(); got != "90,60,30" {
		t.Fatalf("unexpected allowed offsets: %s", got)
	}
	if got := cfg.DefaultOffsets().String(); got != "90,60,30" {
		t.Fatalf("unexpected default offsets: %s", got)
	}
	if cfg.Scheduler.Buffer != 64 || cfg.Scheduler.SyncInterval != time.Minute {
		t.Fatalf("unexpected scheduler defaults: %+v", cfg.Scheduler)
	}
	if cfg.Notifications.Desktop {
		t.Fatal("desktop notifications should default to off")
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "console" {
		t.Fatalf("unexpected log defaults: %+v", cfg.Log)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RIGHTONTIME_STORAGE_DRIVER", "Redis")
	t.Setenv("RIGHTONTIME_STORAGE_REDIS_ADDR", "cache:6380")
	t.Setenv("RIGHTONTIME_REMINDERS_DEFAULT_OFFSETS", "30")
	t.Setenv("RIGHTONTIME_SCHEDULER_BUFFER", "128")
	t.Setenv("RIGHTONTIME_SCHEDULER_SYNC_INTERVAL", "30s")
	t.Setenv("RIGHTONTIME_NOTIFICATIONS_DESKTOP", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != DriverRedis || cfg.Storage.RedisAddr != "cache:6380" {
		t.Fatalf("unexpected storage config: %+v", cfg.Storage)
	}
	if got := cfg.DefaultOffsets().String(); got != "30" {
		t.Fatalf("unexpected default offsets: %s", got)
	}
	if cfg.Scheduler.Buffer != 128 || cfg.Scheduler.SyncInterval != 30*time.Second {
		t.Fatalf("unexpected scheduler config: %+v", cfg.Scheduler)
	}
	if !cfg.Notifications.Desktop {
		t.Fatal("expected desktop notifications from env")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rightontime.yaml")
	body := []byte(`storage:
  driver: memory
reminders:
  allowed_offsets: [120, 90, 60, 30, 7]
  default_offsets: [120, 7]
log:
  level: debug
  format: json
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != DriverMemory {
		t.Fatalf("unexpected driver %q", cfg.Storage.Driver)
	}
	if got := cfg.AllowedOffsets().String(); got != "120,90,60,30,7" {
		t.Fatalf("unexpected allowed offsets: %s", got)
	}
	if got := cfg.DefaultOffsets().String(); got != "120,7" {
		t.Fatalf("unexpected default offsets: %s", got)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Fatalf("unexpected log config: %+v", cfg.Log)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"unknown driver":        func(c *Config) { c.Storage.Driver = "postgres" },
		"empty sqlite path":     func(c *Config) { c.Storage.SQLitePath = " " },
		"empty redis addr":      func(c *Config) { c.Storage.Driver = DriverRedis; c.Storage.RedisAddr = "" },
		"no allowed offsets":    func(c *Config) { c.Reminders.AllowedOffsets = nil },
		"negative offset":       func(c *Config) { c.Reminders.AllowedOffsets = []int{90, -1} },
		"default not allowed":   func(c *Config) { c.Reminders.DefaultOffsets = []int{14} },
		"zero buffer":           func(c *Config) { c.Scheduler.Buffer = 0 },
		"non-positive interval": func(c *Config) { c.Scheduler.SyncInterval = 0 },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
}
