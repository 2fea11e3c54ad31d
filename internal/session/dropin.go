package session

import (
	"context"
	"fmt"
	"time"

	model "github.com/musterhq/muster/internal/domain/model"
)

// Mode distinguishes realtime sessions from async (play-by-post) ones. The
// mode only changes the reason vocabulary of drop-in events.
type Mode string

// Session modes.
const (
	ModeRealtime Mode = "realtime"
	ModeAsync    Mode = "async"
)

// Drop-in reasons by mode.
const (
	ReasonAsyncQueueEntry    = "async_queue_entry"
	ReasonAsyncProxyRotation = "async_proxy_rotation"
	ReasonAsyncPending       = "async_pending"
	ReasonAsyncSubstitution  = "async_substitution"
	ReasonRealtimeJoined     = "realtime_joined"
	ReasonRealtimeProxy      = "realtime_proxy"
	ReasonRealtimeDropIn     = "realtime_drop_in"
	ReasonRoleDefeated       = "role_defeated"
	ReasonRoleSpectating     = "role_spectating"
)

// ReplacedParticipant is the occupant a drop-in arrival displaced, with the
// last status the seat provider knew for them.
type ReplacedParticipant struct {
	OwnerID string `json:"owner_id"`
	Status  string `json:"status"`
}

// ArrivalStats carries provider-side bookkeeping about an arrival.
type ArrivalStats struct {
	LastDepartureCause string `json:"last_departure_cause,omitempty"`
}

// Arrival describes one newly seated participant.
type Arrival struct {
	OwnerID   string               `json:"owner_id"`
	HeroID    string               `json:"hero_id,omitempty"`
	Role      string               `json:"role,omitempty"`
	SlotIndex int                  `json:"slot_index"`
	Replaced  *ReplacedParticipant `json:"replaced,omitempty"`
	Stats     ArrivalStats         `json:"stats"`
}

// SeatResult is what the injected drop-in queue service returns.
type SeatResult struct {
	Arrivals []Arrival      `json:"arrivals"`
	Snapshot map[string]any `json:"snapshot,omitempty"`
}

// SeatProvider is the external drop-in queue service. Implementations may do
// I/O; the manager only reasons over the returned value.
type SeatProvider interface {
	Seat(ctx context.Context, participants []model.Participant) (SeatResult, error)
}

// SeatOutcome pairs the provider result with the timeline events the manager
// derived from it.
type SeatOutcome struct {
	Arrivals []Arrival             `json:"arrivals"`
	Snapshot map[string]any        `json:"snapshot,omitempty"`
	Events   []model.TimelineEvent `json:"events"`
}

// DropInOption applies a configuration option to the DropInManager.
type DropInOption func(*DropInManager)

// WithDropInClock overrides the clock used to stamp drop-in events.
func WithDropInClock(now func() time.Time) DropInOption {
	return func(m *DropInManager) {
		if now != nil {
			m.now = now
		}
	}
}

// DropInManager wraps a seat provider for non-realtime sessions. Its only
// owned logic is reason inference: every arrival becomes a drop_in_joined
// event whose reason explains the substitution.
type DropInManager struct {
	provider SeatProvider
	mode     Mode
	now      func() time.Time
}

// NewDropInManager creates a manager over the given provider.
func NewDropInManager(provider SeatProvider, mode Mode, opts ...DropInOption) *DropInManager {
	m := &DropInManager{
		provider: provider,
		mode:     mode,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Seat forwards the participant list to the provider and derives one
// drop_in_joined event per arrival, tagged with the current turn.
func (m *DropInManager) Seat(ctx context.Context, participants []model.Participant, turn int) (SeatOutcome, error) {
	if m.provider == nil {
		return SeatOutcome{}, ErrNoSeatProvider
	}
	result, err := m.provider.Seat(ctx, participants)
	if err != nil {
		return SeatOutcome{}, fmt.Errorf("seat provider: %w", err)
	}

	nowMS := m.now().UnixMilli()
	events := make([]model.TimelineEvent, 0, len(result.Arrivals))
	for _, a := range result.Arrivals {
		events = append(events, model.TimelineEvent{
			Type:      model.EventDropInJoined,
			OwnerID:   a.OwnerID,
			Reason:    m.reasonFor(a),
			Turn:      turn,
			Timestamp: nowMS,
			Context:   arrivalContext(a, m.mode),
		})
	}
	return SeatOutcome{
		Arrivals: result.Arrivals,
		Snapshot: result.Snapshot,
		Events:   events,
	}, nil
}

// reasonFor derives the substitution reason: an explicit departure cause
// wins, a fresh seat means a plain join, otherwise the replaced occupant's
// normalized status decides.
func (m *DropInManager) reasonFor(a Arrival) string {
	if cause := a.Stats.LastDepartureCause; cause != "" {
		return cause
	}
	realtime := m.mode == ModeRealtime
	if a.Replaced == nil {
		if realtime {
			return ReasonRealtimeJoined
		}
		return ReasonAsyncQueueEntry
	}
	switch model.NormalizeStatus(a.Replaced.Status) {
	case model.StatusDefeated:
		return ReasonRoleDefeated
	case model.StatusSpectating:
		return ReasonRoleSpectating
	case model.StatusProxy:
		if realtime {
			return ReasonRealtimeProxy
		}
		return ReasonAsyncProxyRotation
	case model.StatusPending:
		return ReasonAsyncPending
	default:
		if realtime {
			return ReasonRealtimeDropIn
		}
		return ReasonAsyncSubstitution
	}
}

func arrivalContext(a Arrival, mode Mode) map[string]any {
	ctx := map[string]any{
		"mode":       string(mode),
		"role":       a.Role,
		"hero_id":    a.HeroID,
		"slot_index": a.SlotIndex,
	}
	if a.Replaced != nil {
		ctx["replaced_owner_id"] = a.Replaced.OwnerID
		ctx["replaced_status"] = string(model.NormalizeStatus(a.Replaced.Status))
	}
	return ctx
}
