// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and environment variables over the defaults.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
)

// Storage drivers understood by the service.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address of the local UI adapter.
	Addr string `koanf:"addr"`

	// StorageDriver selects the key/value backend: memory or sqlite.
	StorageDriver string `koanf:"storage_driver"`

	// SQLitePath is the database file used by the sqlite driver.
	SQLitePath string `koanf:"sqlite_path"`

	// MutationQueueSize bounds the single-writer mutation queue.
	MutationQueueSize int `koanf:"mutation_queue_size"`

	// DedupeSize sets how many register request ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// RecentLimit is the default size of GET /events/recent.
	RecentLimit int `koanf:"recent_limit"`

	// MaxRecentLimit caps GET /events/recent?limit.
	MaxRecentLimit int `koanf:"max_recent_limit"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              "127.0.0.1:9080",
		StorageDriver:     DriverMemory,
		SQLitePath:        "recicla.db",
		MutationQueueSize: 256,
		DedupeSize:        1024,
		RecentLimit:       5,
		MaxRecentLimit:    100,
	}
}

// Validate checks field ranges and driver names.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.StorageDriver {
	case DriverMemory:
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("%w: sqlite_path must not be empty for the sqlite driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage_driver %q", ErrInvalidConfig, c.StorageDriver)
	}
	if c.MutationQueueSize <= 0 {
		return fmt.Errorf("%w: mutation_queue_size must be positive", ErrInvalidConfig)
	}
	if c.DedupeSize < 0 {
		return fmt.Errorf("%w: dedupe_size must not be negative", ErrInvalidConfig)
	}
	if c.RecentLimit < 0 || c.MaxRecentLimit <= 0 || c.RecentLimit > c.MaxRecentLimit {
		return fmt.Errorf("%w: recent_limit must be within [0, max_recent_limit]", ErrInvalidConfig)
	}
	return nil
}
