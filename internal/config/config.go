// Package config loads runtime settings from an optional YAML file and
// RIGHTONTIME_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/rightontime/internal/logging"
	"github.com/sandeepkv93/rightontime/internal/model"
	"github.com/spf13/viper"
)

const envPrefix = "RIGHTONTIME"

const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type StorageConfig struct {
	Driver        string `mapstructure:"driver"`
	SQLitePath    string `mapstructure:"sqlite_path"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisPrefix   string `mapstructure:"redis_prefix"`
}

type RemindersConfig struct {
	AllowedOffsets []int `mapstructure:"allowed_offsets"`
	DefaultOffsets []int `mapstructure:"default_offsets"`
}

type SchedulerConfig struct {
	Buffer       int           `mapstructure:"buffer"`
	SyncInterval time.Duration `mapstructure:"sync_interval"`
}

type NotificationsConfig struct {
	Desktop bool `mapstructure:"desktop"`
}

type Config struct {
	Storage       StorageConfig       `mapstructure:"storage"`
	Reminders     RemindersConfig     `mapstructure:"reminders"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Log           logging.LogConfig   `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.sqlite_path", ".rightontime.db")
	v.SetDefault("storage.redis_addr", "127.0.0.1:6379")
	v.SetDefault("storage.redis_password", "")
	v.SetDefault("storage.redis_db", 0)
	v.SetDefault("storage.redis_prefix", "rightontime:")
	v.SetDefault("reminders.allowed_offsets", []int(model.DefaultOffsets))
	v.SetDefault("reminders.default_offsets", []int(model.DefaultOffsets))
	v.SetDefault("scheduler.buffer", 64)
	v.SetDefault("scheduler.sync_interval", time.Minute)
	v.SetDefault("notifications.desktop", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output_paths", []string{"stderr"})
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// Load reads path when it is non-empty, then applies environment overrides.
func Load(path string) (Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %q: %w", path, err)
		}
	}
	return unmarshalAndValidate(v)
}

func Default() Config {
	cfg, err := unmarshalAndValidate(withoutEnv())
	if err != nil {
		panic(err)
	}
	return cfg
}

func withoutEnv() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func unmarshalAndValidate(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Storage.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Storage.SQLitePath) == "" {
			return fmt.Errorf("%w: storage.sqlite_path is required", ErrInvalidConfig)
		}
	case DriverRedis:
		if strings.TrimSpace(c.Storage.RedisAddr) == "" {
			return fmt.Errorf("%w: storage.redis_addr is required", ErrInvalidConfig)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("%w: unknown storage.driver %q", ErrInvalidConfig, c.Storage.Driver)
	}

	allowed := c.AllowedOffsets()
	if len(allowed) == 0 {
		return fmt.Errorf("%w: reminders.allowed_offsets is empty", ErrInvalidConfig)
	}
	if err := allowed.Validate(nil); err != nil {
		return fmt.Errorf("%w: reminders.allowed_offsets: %v", ErrInvalidConfig, err)
	}
	if err := c.DefaultOffsets().Validate(allowed); err != nil {
		return fmt.Errorf("%w: reminders.default_offsets: %v", ErrInvalidConfig, err)
	}
	if c.Scheduler.Buffer <= 0 {
		return fmt.Errorf("%w: scheduler.buffer must be positive", ErrInvalidConfig)
	}
	if c.Scheduler.SyncInterval <= 0 {
		return fmt.Errorf("%w: scheduler.sync_interval must be positive", ErrInvalidConfig)
	}
	return nil
}

func (c Config) AllowedOffsets() model.OffsetSet {
	return model.NewOffsetSet(c.Reminders.AllowedOffsets...)
}

func (c Config) DefaultOffsets() model.OffsetSet {
	return model.NewOffsetSet(c.Reminders.DefaultOffsets...)
}
