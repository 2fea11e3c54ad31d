// Package config defines process configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// WarningLimit is the number of inactivity strikes tolerated before an
	// owner escalates to proxy.
	WarningLimit int `koanf:"warning_limit"`

	// EventLogCap bounds the per-session in-memory event log.
	EventLogCap int `koanf:"event_log_cap"`

	// StaleThresholdMS excludes queue entries not updated within this many
	// milliseconds from matching. Zero disables staleness checks.
	StaleThresholdMS int64 `koanf:"stale_threshold_ms"`

	// SafeFallback retries failed matching runs with the exact-fit strategy.
	SafeFallback bool `koanf:"safe_fallback"`

	// DefaultMode is the session mode used when callers do not pick one:
	// realtime or async.
	DefaultMode string `koanf:"default_mode"`

	// EventQueueSize bounds the in-memory event queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of persistence workers.
	WorkerCount int `koanf:"worker_count"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		WarningLimit:     2,
		EventLogCap:      50,
		StaleThresholdMS: 0,
		SafeFallback:     true,
		DefaultMode:      "realtime",
		EventQueueSize:   4096,
		WorkerCount:      runtime.NumCPU(),
	}
}
