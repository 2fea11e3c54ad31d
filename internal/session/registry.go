package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	model "github.com/musterhq/muster/internal/domain/model"
)

// RegistryOption applies a configuration option to the Registry.
type RegistryOption func(*Registry)

// WithTrackerOptions sets the options applied to every tracker the registry
// creates.
func WithTrackerOptions(opts ...TrackerOption) RegistryOption {
	return func(r *Registry) {
		r.trackerOpts = opts
	}
}

// WithSeatProvider sets the drop-in seat provider shared by all sessions.
func WithSeatProvider(p SeatProvider) RegistryOption {
	return func(r *Registry) {
		r.seatProvider = p
	}
}

// WithDropInOptions sets the options applied to every drop-in manager the
// registry creates.
func WithDropInOptions(opts ...DropInOption) RegistryOption {
	return func(r *Registry) {
		r.dropInOpts = opts
	}
}

// Registry owns all live sessions, keyed by session id. It replaces the
// ambient per-process maps of earlier designs: each session instance owns its
// own state and is reached only through its methods.
type Registry struct {
	mu           sync.RWMutex
	sessions     map[string]*Session
	trackerOpts  []TrackerOption
	dropInOpts   []DropInOption
	seatProvider SeatProvider
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{sessions: make(map[string]*Session)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open returns the session with the given id, creating it on first use. An
// empty id gets a generated one; the assigned id is on the returned session.
func (r *Registry) Open(id string, mode Mode) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	if mode == "" {
		mode = ModeRealtime
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s
	}
	s := &Session{
		id:      id,
		mode:    mode,
		tracker: NewTracker(r.trackerOpts...),
		dropIn:  NewDropInManager(r.seatProvider, mode, r.dropInOpts...),
	}
	r.sessions[id] = s
	return s
}

// Get returns an existing session or ErrSessionNotFound.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close removes a session from the registry.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len reports how many sessions are live.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Session pairs a tracker and a drop-in manager under one mutex, enforcing
// the single-writer discipline the tracker requires.
type Session struct {
	id      string
	mode    Mode
	mu      sync.Mutex
	tracker *Tracker
	dropIn  *DropInManager
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Mode returns the session mode.
func (s *Session) Mode() Mode { return s.mode }

// SyncParticipants serializes Tracker.SyncParticipants.
func (s *Session) SyncParticipants(participants []model.Participant) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.SyncParticipants(participants)
}

// SetManagedOwners serializes Tracker.SetManagedOwners.
func (s *Session) SetManagedOwners(ownerIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracker.SetManagedOwners(ownerIDs)
}

// BeginTurn serializes Tracker.BeginTurn.
func (s *Session) BeginTurn(turnNumber int, eligibleOwnerIDs []string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.BeginTurn(turnNumber, eligibleOwnerIDs)
}

// RecordParticipation serializes Tracker.RecordParticipation.
func (s *Session) RecordParticipation(ownerID string, turn int, participationType string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.RecordParticipation(ownerID, turn, participationType)
}

// CompleteTurn serializes Tracker.CompleteTurn.
func (s *Session) CompleteTurn(turnNumber int, reason string, eligibleOwnerIDs []string) TurnReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.CompleteTurn(turnNumber, reason, eligibleOwnerIDs)
}

// Snapshot serializes Tracker.Snapshot.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Snapshot()
}

// RecordEvents serializes Tracker.RecordEvents.
func (s *Session) RecordEvents(events []model.TimelineEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracker.RecordEvents(events)
}

// SeatDropIns runs the drop-in manager at the session's current turn and
// records the derived events into the session log.
func (s *Session) SeatDropIns(ctx context.Context, participants []model.Participant) (SeatOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	outcome, err := s.dropIn.Seat(ctx, participants, s.tracker.CurrentTurn())
	if err != nil {
		return SeatOutcome{}, err
	}
	s.tracker.RecordEvents(outcome.Events)
	return outcome, nil
}
