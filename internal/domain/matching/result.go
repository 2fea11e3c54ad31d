// Package matching assigns queue entries to role slots. Strategies are
// pluggable by mode; the exact-fit strategy doubles as the safe fallback.
package matching

import model "github.com/musterhq/muster/internal/domain/model"

// ErrorType tags a match failure value. Failures are in-band results, never
// panics or Go errors, so callers can persist them like any other outcome.
type ErrorType string

// Failure kinds reported by the engine.
const (
	ErrorUnsupportedMode ErrorType = "unsupported_mode"
	ErrorNoActiveSlots   ErrorType = "no_active_slots"
)

// ResultError describes why a match could not be produced.
type ResultError struct {
	Type ErrorType `json:"type"`
}

// Result is the outcome of one matching run.
type Result struct {
	Ready       bool               `json:"ready"`
	Assignments []model.Assignment `json:"assignments"`
	TotalSlots  int                `json:"total_slots"`
	Error       *ResultError       `json:"error,omitempty"`
	// FellBack reports that the exact-fit fallback produced this result after
	// the primary strategy came up short.
	FellBack bool `json:"fell_back,omitempty"`
}

func failure(kind ErrorType) Result {
	return Result{Ready: false, Error: &ResultError{Type: kind}}
}
