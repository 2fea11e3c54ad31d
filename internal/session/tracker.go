// Package session holds the per-session mutable state of the core: the
// realtime turn tracker with its strike/warning ladder, the async drop-in
// manager, and the registry that serializes access to both.
package session

import (
	"sort"
	"strings"
	"time"

	model "github.com/musterhq/muster/internal/domain/model"
)

// Default tracker configuration constants.
const (
	DefaultWarningLimit = 2
	DefaultEventLogCap  = 50
)

// OwnerTurnEntry is the tracked state for one owner inside a session.
// Turn fields use zero as "never".
type OwnerTurnEntry struct {
	OwnerID               string       `json:"owner_id"`
	Status                model.Status `json:"status"`
	InactivityStrikes     int          `json:"inactivity_strikes"`
	LastParticipationTurn int          `json:"last_participation_turn"`
	LastParticipationType string       `json:"last_participation_type,omitempty"`
	LastWarningTurn       int          `json:"last_warning_turn"`
	LastWarningReason     string       `json:"last_warning_reason,omitempty"`
	ProxiedAtTurn         int          `json:"proxied_at_turn"`
}

// Snapshot is a fully reconstructable view of a tracker. Slices are copies
// in deterministic (owner-sorted) order.
type Snapshot struct {
	Turn          int                   `json:"turn"`
	PendingOwners []string              `json:"pending_owners"`
	Entries       []OwnerTurnEntry      `json:"entries"`
	WarningLimit  int                   `json:"warning_limit"`
	Events        []model.TimelineEvent `json:"events"`
}

// TurnReport is the outcome of CompleteTurn.
type TurnReport struct {
	Snapshot  Snapshot              `json:"snapshot"`
	Warnings  []string              `json:"warnings"`
	Escalated []string              `json:"escalated"`
	Events    []model.TimelineEvent `json:"events"`
}

// TrackerOption applies a configuration option to the Tracker.
type TrackerOption func(*Tracker)

// WithWarningLimit sets how many strikes an owner may accumulate before the
// next one escalates to proxy.
func WithWarningLimit(limit int) TrackerOption {
	return func(t *Tracker) {
		if limit > 0 {
			t.warningLimit = limit
		}
	}
}

// WithEventLogCap bounds the in-session event log.
func WithEventLogCap(capacity int) TrackerOption {
	return func(t *Tracker) {
		if capacity > 0 {
			t.eventLogCap = capacity
		}
	}
}

// WithTrackerClock overrides the clock used to stamp emitted events.
func WithTrackerClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// Tracker is the per-session turn state machine. It tracks which owners are
// actively engaged, accumulates inactivity strikes, and escalates an owner to
// proxy exactly once when strikes exceed the warning limit. Proxy status is
// sticky: participation clears strikes but never reverts proxy; only an
// external SyncParticipants can impose a different status.
//
// Tracker is not internally synchronized. All calls for one session must be
// serialized by the caller; Registry provides that discipline.
type Tracker struct {
	warningLimit int
	eventLogCap  int
	now          func() time.Time

	currentTurn   int
	entries       map[string]*OwnerTurnEntry
	pendingOwners map[string]struct{}
	managedOwners map[string]struct{}
	events        []model.TimelineEvent
}

// NewTracker creates a tracker with default limits.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		warningLimit:  DefaultWarningLimit,
		eventLogCap:   DefaultEventLogCap,
		now:           time.Now,
		entries:       make(map[string]*OwnerTurnEntry),
		pendingOwners: make(map[string]struct{}),
		managedOwners: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SyncParticipants upserts one entry per listed owner and deletes owners that
// disappeared from the list, including their pending and managed membership.
// Statuses are normalized; a participant arriving as proxy gets its
// ProxiedAtTurn stamped if unset.
func (t *Tracker) SyncParticipants(participants []model.Participant) Snapshot {
	seen := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		ownerID := normalizeOwnerID(p.OwnerID)
		if ownerID == "" {
			continue
		}
		seen[ownerID] = struct{}{}
		entry := t.upsert(ownerID)
		entry.Status = model.NormalizeStatus(p.Status)
		if entry.Status == model.StatusProxy && entry.ProxiedAtTurn == 0 {
			entry.ProxiedAtTurn = t.currentTurn
		}
	}
	for ownerID := range t.entries {
		if _, ok := seen[ownerID]; !ok {
			delete(t.entries, ownerID)
			delete(t.pendingOwners, ownerID)
			delete(t.managedOwners, ownerID)
		}
	}
	return t.Snapshot()
}

// SetManagedOwners restricts strike accounting to the given owners. An empty
// set means every eligible owner is managed.
func (t *Tracker) SetManagedOwners(ownerIDs []string) {
	t.managedOwners = make(map[string]struct{}, len(ownerIDs))
	for _, id := range ownerIDs {
		if ownerID := normalizeOwnerID(id); ownerID != "" {
			t.managedOwners[ownerID] = struct{}{}
		}
	}
}

// BeginTurn starts a turn: sets the current turn number and replaces the
// pending set with the eligible owners. Owners first sighted here get a
// tracker entry with unknown status until a sync imposes one.
func (t *Tracker) BeginTurn(turnNumber int, eligibleOwnerIDs []string) Snapshot {
	t.currentTurn = turnNumber
	t.pendingOwners = make(map[string]struct{}, len(eligibleOwnerIDs))
	for _, id := range eligibleOwnerIDs {
		ownerID := normalizeOwnerID(id)
		if ownerID == "" {
			continue
		}
		t.pendingOwners[ownerID] = struct{}{}
		t.upsert(ownerID)
	}
	return t.Snapshot()
}

// RecordParticipation marks an owner as engaged this turn: the owner leaves
// the pending set, strikes reset to zero and warnings clear. Status becomes
// active unless the owner is already proxy, which stays proxy until an
// external resync says otherwise.
func (t *Tracker) RecordParticipation(ownerID string, turn int, participationType string) Snapshot {
	id := normalizeOwnerID(ownerID)
	if id == "" {
		return t.Snapshot()
	}
	delete(t.pendingOwners, id)
	entry := t.upsert(id)
	entry.InactivityStrikes = 0
	entry.LastParticipationTurn = turn
	entry.LastParticipationType = participationType
	entry.LastWarningTurn = 0
	entry.LastWarningReason = ""
	if entry.Status != model.StatusProxy {
		entry.Status = model.StatusActive
	}
	return t.Snapshot()
}

// CompleteTurn closes a turn: every eligible owner still pending takes a
// strike (unless unmanaged), and an owner whose strikes exceed the warning
// limit escalates to proxy exactly once. Each strike emits a warning or
// proxy_escalated event into the bounded session log.
func (t *Tracker) CompleteTurn(turnNumber int, reason string, eligibleOwnerIDs []string) TurnReport {
	report := TurnReport{
		Warnings:  []string{},
		Escalated: []string{},
		Events:    []model.TimelineEvent{},
	}
	nowMS := t.now().UnixMilli()

	for _, id := range eligibleOwnerIDs {
		ownerID := normalizeOwnerID(id)
		if ownerID == "" {
			continue
		}
		if _, pending := t.pendingOwners[ownerID]; !pending {
			continue
		}
		delete(t.pendingOwners, ownerID)
		if len(t.managedOwners) > 0 {
			if _, managed := t.managedOwners[ownerID]; !managed {
				continue
			}
		}

		entry := t.upsert(ownerID)
		entry.InactivityStrikes++
		entry.LastWarningTurn = turnNumber
		entry.LastWarningReason = reason

		if entry.InactivityStrikes > t.warningLimit && entry.Status != model.StatusProxy {
			entry.Status = model.StatusProxy
			entry.ProxiedAtTurn = turnNumber
			e := model.TimelineEvent{
				Type:      model.EventProxyEscalated,
				OwnerID:   ownerID,
				Strike:    entry.InactivityStrikes,
				Remaining: 0,
				Limit:     t.warningLimit,
				Reason:    reason,
				Turn:      turnNumber,
				Timestamp: nowMS,
				Status:    model.StatusProxy,
			}
			t.appendEvent(e)
			report.Escalated = append(report.Escalated, ownerID)
			report.Events = append(report.Events, e)
			continue
		}

		remaining := t.warningLimit - entry.InactivityStrikes + 1
		if remaining < 0 {
			remaining = 0
		}
		e := model.TimelineEvent{
			Type:      model.EventWarning,
			OwnerID:   ownerID,
			Strike:    entry.InactivityStrikes,
			Remaining: remaining,
			Limit:     t.warningLimit,
			Reason:    reason,
			Turn:      turnNumber,
			Timestamp: nowMS,
			Status:    entry.Status,
		}
		t.appendEvent(e)
		report.Warnings = append(report.Warnings, ownerID)
		report.Events = append(report.Events, e)
	}

	report.Snapshot = t.Snapshot()
	return report
}

// RecordEvents appends externally produced events (drop-ins, replays) to the
// bounded session log.
func (t *Tracker) RecordEvents(events []model.TimelineEvent) {
	for _, e := range events {
		if e.Type == "" {
			continue
		}
		t.appendEvent(e)
	}
}

// WarningLimit reports the configured strike limit.
func (t *Tracker) WarningLimit() int { return t.warningLimit }

// CurrentTurn reports the turn set by the last BeginTurn.
func (t *Tracker) CurrentTurn() int { return t.currentTurn }

// Snapshot returns a deep copy of the tracker state.
func (t *Tracker) Snapshot() Snapshot {
	s := Snapshot{
		Turn:          t.currentTurn,
		WarningLimit:  t.warningLimit,
		PendingOwners: make([]string, 0, len(t.pendingOwners)),
		Entries:       make([]OwnerTurnEntry, 0, len(t.entries)),
		Events:        append([]model.TimelineEvent(nil), t.events...),
	}
	for id := range t.pendingOwners {
		s.PendingOwners = append(s.PendingOwners, id)
	}
	sort.Strings(s.PendingOwners)
	ids := make([]string, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		s.Entries = append(s.Entries, *t.entries[id])
	}
	return s
}

func (t *Tracker) upsert(ownerID string) *OwnerTurnEntry {
	if entry, ok := t.entries[ownerID]; ok {
		return entry
	}
	entry := &OwnerTurnEntry{OwnerID: ownerID, Status: model.StatusUnknown}
	t.entries[ownerID] = entry
	return entry
}

// appendEvent keeps the log a bounded FIFO: oldest entries go first once the
// cap is exceeded.
func (t *Tracker) appendEvent(e model.TimelineEvent) {
	t.events = append(t.events, e)
	if over := len(t.events) - t.eventLogCap; over > 0 {
		t.events = append([]model.TimelineEvent(nil), t.events[over:]...)
	}
}

func normalizeOwnerID(raw string) string {
	return strings.TrimSpace(raw)
}
