// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64

	// MigrateOnStart applies the embedded migrations before serving.
	MigrateOnStart bool

	// Sync controls how itinerary writes are retried before rollback.
	Sync Sync
}

// Sync is the remote-write policy of the itinerary planner.
type Sync struct {
	// MaxRetries is the number of retries after the first failed attempt.
	MaxRetries uint64
	// Backoff is the base of the exponential backoff between attempts.
	Backoff time.Duration
	// Timeout bounds one write including its retries. Zero disables it.
	Timeout time.Duration
	// IdleTimeout evicts a trip's cached session after this long unused.
	// Zero keeps sessions until shutdown.
	IdleTimeout time.Duration
}

// Load reads configuration from environment variables and returns a Config.
// Missing required variables and malformed values are all reported in a
// single error.
func Load() (Config, error) {
	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
	}

	var errs error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		errs = multierr.Append(errs, fmt.Errorf("required environment variable not set: DATABASE_URL"))
	}

	var err error
	if cfg.MaxBodyBytes, err = strconv.ParseInt(getEnv("MAX_BODY_BYTES", "1048576"), 10, 64); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("MAX_BODY_BYTES: %w", err))
	}
	if cfg.MigrateOnStart, err = strconv.ParseBool(getEnv("MIGRATE_ON_START", "false")); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("MIGRATE_ON_START: %w", err))
	}
	if cfg.Sync.MaxRetries, err = strconv.ParseUint(getEnv("SYNC_MAX_RETRIES", "2"), 10, 64); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("SYNC_MAX_RETRIES: %w", err))
	}
	if cfg.Sync.Backoff, err = positiveDuration("SYNC_BACKOFF", "100ms"); err != nil {
		errs = multierr.Append(errs, err)
	}
	if cfg.Sync.Timeout, err = time.ParseDuration(getEnv("SYNC_TIMEOUT", "10s")); err != nil || cfg.Sync.Timeout < 0 {
		errs = multierr.Append(errs, fmt.Errorf("SYNC_TIMEOUT: must be a non-negative duration"))
	}
	if cfg.Sync.IdleTimeout, err = time.ParseDuration(getEnv("SESSION_IDLE_TIMEOUT", "30m")); err != nil || cfg.Sync.IdleTimeout < 0 {
		errs = multierr.Append(errs, fmt.Errorf("SESSION_IDLE_TIMEOUT: must be a non-negative duration"))
	}

	if errs != nil {
		return Config{}, fmt.Errorf("config.Load: %w", errs)
	}
	return cfg, nil
}

// positiveDuration parses the duration in key and rejects values <= 0.
func positiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive", key)
	}
	return d, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
