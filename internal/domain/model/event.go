package model

import (
	"fmt"
	"strconv"
)

// Timeline event types emitted by the session managers.
const (
	EventWarning        = "warning"
	EventProxyEscalated = "proxy_escalated"
	EventDropInJoined   = "drop_in_joined"
)

// TimelineEvent is a canonical, deduplicable record of a session state change
// (warning, escalation, drop-in) used for audit and replay. Immutable once
// created; later duplicates with the same identity are merged field-by-field.
type TimelineEvent struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	OwnerID   string         `json:"owner_id"`
	Strike    int            `json:"strike,omitempty"`
	Remaining int            `json:"remaining,omitempty"`
	Limit     int            `json:"limit,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Turn      int            `json:"turn"`
	Timestamp int64          `json:"timestamp"` // epoch milliseconds
	Status    Status         `json:"status,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Key returns the event identity: the explicit ID when present, otherwise the
// synthesized form type:owner:turn:timestamp.
func (e TimelineEvent) Key() string {
	if e.ID != "" {
		return e.ID
	}
	return SynthesizeEventID(e.Type, e.OwnerID, e.Turn, e.Timestamp)
}

// SynthesizeEventID builds the deterministic fallback identity for events
// persisted without an explicit id.
func SynthesizeEventID(eventType, ownerID string, turn int, timestamp int64) string {
	return fmt.Sprintf("%s:%s:%s:%s",
		eventType, ownerID, strconv.Itoa(turn), strconv.FormatInt(timestamp, 10))
}
