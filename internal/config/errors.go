package config

import (
	"errors"
)

// Sentinel error kinds for this package, matchable with errors.Is from callers.
var (
	// ErrInvalidConfig wraps validation failures: negative limits, a zero
	// queue size, or an unknown default_mode / log_level value.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrLoadConfig wraps failures reading the MUSTER_CONFIG file or
	// unmarshalling the merged MUSTER_* layers.
	ErrLoadConfig = errors.New("load config failed")
)
