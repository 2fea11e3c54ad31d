package timeline

import (
	"encoding/json"

	model "github.com/musterhq/muster/internal/domain/model"
)

// Row is the timeline event persistence shape. Context and metadata stay
// opaque JSON; the codec round trip is bit-exact on canonical fields.
type Row struct {
	EventID        string          `json:"event_id"`
	EventType      string          `json:"event_type"`
	OwnerID        string          `json:"owner_id"`
	Reason         string          `json:"reason,omitempty"`
	Strike         int             `json:"strike,omitempty"`
	Remaining      int             `json:"remaining,omitempty"`
	Limit          int             `json:"limit,omitempty"`
	Status         string          `json:"status,omitempty"`
	Turn           int             `json:"turn"`
	EventTimestamp string          `json:"event_timestamp"`
	Context        json.RawMessage `json:"context,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
}

// EventToRow encodes a canonical event for persistence. Events without an
// explicit id are stamped with their synthesized identity so the row keeps
// the same key the in-memory log used.
func EventToRow(e model.TimelineEvent) Row {
	return Row{
		EventID:        e.Key(),
		EventType:      e.Type,
		OwnerID:        e.OwnerID,
		Reason:         e.Reason,
		Strike:         e.Strike,
		Remaining:      e.Remaining,
		Limit:          e.Limit,
		Status:         string(e.Status),
		Turn:           e.Turn,
		EventTimestamp: model.FormatTimestamp(e.Timestamp),
		Context:        marshalOpaque(e.Context),
		Metadata:       marshalOpaque(e.Metadata),
	}
}

// RowToEvent decodes a persisted row back into the canonical shape. Rows
// without a usable event type are rejected; unreadable opaque payloads decode
// to nil rather than failing the row.
func RowToEvent(r Row) (model.TimelineEvent, bool) {
	if r.EventType == "" {
		return model.TimelineEvent{}, false
	}
	ts, _ := model.ParseTimestamp(r.EventTimestamp)
	e := model.TimelineEvent{
		ID:        r.EventID,
		Type:      r.EventType,
		OwnerID:   r.OwnerID,
		Reason:    r.Reason,
		Strike:    r.Strike,
		Remaining: r.Remaining,
		Limit:     r.Limit,
		Turn:      r.Turn,
		Timestamp: ts,
		Context:   unmarshalOpaque(r.Context),
		Metadata:  unmarshalOpaque(r.Metadata),
	}
	if r.Status != "" {
		e.Status = model.Status(r.Status)
	}
	return e, true
}

// RowsToEvents decodes and merges persisted rows, dropping undecodable ones.
func RowsToEvents(rows []Row, order Order) []model.TimelineEvent {
	events := make([]model.TimelineEvent, 0, len(rows))
	for _, r := range rows {
		if e, ok := RowToEvent(r); ok {
			events = append(events, e)
		}
	}
	return Merge(nil, events, order)
}

func marshalOpaque(m map[string]any) json.RawMessage {
	if len(m) == 0 {
		return nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return b
}

func unmarshalOpaque(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}
