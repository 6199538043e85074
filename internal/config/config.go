// Package config loads the service configuration and the restaurant layout.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when TABLEBOOK_CONFIG_PATH is unset.
const DefaultPath = "configs/config.yaml"

// StaffConfig seeds a staff member allowed to override opening hours and blocks.
type StaffConfig struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
	Role string `yaml:"role"`
}

type Config struct {
	LogLevel string `yaml:"log_level"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	HTTP struct {
		Port                int     `yaml:"port"`
		APIKey              string  `yaml:"api_key"`
		RateLimitRPS        float64 `yaml:"rate_limit_rps"`
		RateLimitBurst      int     `yaml:"rate_limit_burst"`
		ReadTimeoutSeconds  int     `yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds int     `yaml:"write_timeout_seconds"`
	} `yaml:"http"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Booking struct {
		DefaultDurationMinutes int   `yaml:"default_duration_minutes"`
		SlotStepMinutes        int   `yaml:"slot_step_minutes"`
		LockTimeoutMillis      int   `yaml:"lock_timeout_ms"`
		LockTTLSeconds         int   `yaml:"lock_ttl_seconds"`
		OverrideRequiresStaff  *bool `yaml:"override_requires_staff"`
	} `yaml:"booking"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Layout struct {
		Path         string `yaml:"path"`
		WatchSeconds int    `yaml:"watch_seconds"`
	} `yaml:"layout"`

	Staff []StaffConfig `yaml:"staff"`
}

// Load reads the YAML config at path. ${ENV_VAR} placeholders are expanded.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/tablebook.db"
	}
	if cfg.Layout.Path == "" {
		cfg.Layout.Path = DefaultLayoutPath
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	return &cfg, nil
}

func (c *Config) HTTPPort() int {
	if c.HTTP.Port <= 0 {
		return 8080
	}
	return c.HTTP.Port
}

func (c *Config) HealthCheckPort() int {
	if c.Monitoring.HealthCheckPort <= 0 {
		return 8090
	}
	return c.Monitoring.HealthCheckPort
}

func (c *Config) PrometheusPort() int {
	if c.Monitoring.PrometheusPort <= 0 {
		return 9090
	}
	return c.Monitoring.PrometheusPort
}

func (c *Config) ReadTimeout() time.Duration {
	if c.HTTP.ReadTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.HTTP.ReadTimeoutSeconds) * time.Second
}

func (c *Config) WriteTimeout() time.Duration {
	if c.HTTP.WriteTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.HTTP.WriteTimeoutSeconds) * time.Second
}

// DefaultDuration is the reservation length assumed when a request omits it.
func (c *Config) DefaultDuration() int {
	if c.Booking.DefaultDurationMinutes <= 0 {
		return 60
	}
	return c.Booking.DefaultDurationMinutes
}

func (c *Config) SlotStep() int {
	if c.Booking.SlotStepMinutes <= 0 {
		return 30
	}
	return c.Booking.SlotStepMinutes
}

func (c *Config) LockTimeout() time.Duration {
	if c.Booking.LockTimeoutMillis <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Booking.LockTimeoutMillis) * time.Millisecond
}

func (c *Config) LockTTL() time.Duration {
	if c.Booking.LockTTLSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Booking.LockTTLSeconds) * time.Second
}

// OverrideRequiresStaff defaults to true.
func (c *Config) OverrideRequiresStaff() bool {
	if c.Booking.OverrideRequiresStaff == nil {
		return true
	}
	return *c.Booking.OverrideRequiresStaff
}

func (c *Config) LayoutWatchInterval() time.Duration {
	if c.Layout.WatchSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Layout.WatchSeconds) * time.Second
}

func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

func (c *Config) BackupRetention() time.Duration {
	if c.Backup.RetentionDays <= 0 {
		return 14 * 24 * time.Hour
	}
	return time.Duration(c.Backup.RetentionDays) * 24 * time.Hour
}

func (c *Config) BackupPath() string {
	if c.Backup.Path == "" {
		return "backups"
	}
	return c.Backup.Path
}
