package matching

import (
	"context"
	"time"

	model "github.com/musterhq/muster/internal/domain/model"
)

// ModeExactFit is the mode the built-in strategy registers under.
const ModeExactFit = "exact_fit"

// Strategy produces assignments for one mode. Implementations must be
// deterministic: identical (roles, queue) input yields identical output.
type Strategy interface {
	Match(ctx context.Context, roles []model.RoleSlot, queue []model.QueueEntry) Result
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithStrategy registers a strategy under a mode name, replacing any previous
// registration for that mode.
func WithStrategy(mode string, s Strategy) Option {
	return func(e *Engine) {
		if mode != "" && s != nil {
			e.strategies[mode] = s
		}
	}
}

// WithSafeFallback controls whether a not-ready primary result is retried
// with the exact-fit strategy. The flag is explicit configuration decided by
// the caller; the engine never consults the environment.
func WithSafeFallback(enabled bool) Option {
	return func(e *Engine) {
		e.safeFallback = enabled
	}
}

// WithClock overrides the clock used to default unparseable join times.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine dispatches matching runs to the strategy registered for the mode.
type Engine struct {
	strategies   map[string]Strategy
	fallback     *ExactFit
	safeFallback bool
	now          func() time.Time
}

// New creates an Engine with the exact-fit strategy pre-registered.
func New(opts ...Option) *Engine {
	e := &Engine{
		strategies: make(map[string]Strategy),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.fallback = NewExactFit(WithExactFitClock(e.now))
	if _, ok := e.strategies[ModeExactFit]; !ok {
		e.strategies[ModeExactFit] = e.fallback
	}
	return e
}

// Run selects the strategy for mode and returns its result. An unknown mode
// is an unsupported_mode failure value. When the primary strategy reports
// ready=false and safe fallback is enabled, the exact-fit strategy is run
// over the same input and its result returned instead.
func (e *Engine) Run(ctx context.Context, mode string, roles []model.RoleSlot, queue []model.QueueEntry) Result {
	s, ok := e.strategies[mode]
	if !ok {
		return failure(ErrorUnsupportedMode)
	}
	res := s.Match(ctx, roles, queue)
	if !res.Ready && e.safeFallback && s != Strategy(e.fallback) {
		res = e.fallback.Match(ctx, roles, queue)
		res.FellBack = true
	}
	return res
}
