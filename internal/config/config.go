// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load layers file and env on top.
// - External errors are wrapped with this package's sentinel errors.
package config

import "time"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DatabaseURL is the PostgreSQL DSN of the primary store. Empty means file storage only.
	DatabaseURL string `koanf:"database_url"`

	// DatabaseMaxConns bounds the primary connection pool.
	DatabaseMaxConns int `koanf:"database_max_conns"`

	// DatabaseConnectTimeoutMS bounds each connection attempt to the primary.
	DatabaseConnectTimeoutMS int `koanf:"database_connect_timeout_ms"`

	// AutoMigrate applies the embedded schema migrations at startup.
	AutoMigrate bool `koanf:"auto_migrate"`

	// FileStorePath is the local JSON file used when the primary fails.
	FileStorePath string `koanf:"file_store_path"`

	// RequestTimeoutMS bounds each HTTP request, including both store attempts.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                 "info",
		LogFormat:                "text",
		Addr:                     ":9080",
		DatabaseURL:              "",
		DatabaseMaxConns:         10,
		DatabaseConnectTimeoutMS: 5_000,
		AutoMigrate:              false,
		FileStorePath:            "data/leaderboard.json",
		RequestTimeoutMS:         15_000,
	}
}

// ConnectTimeout returns DatabaseConnectTimeoutMS as a duration.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.DatabaseConnectTimeoutMS) * time.Millisecond
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}
