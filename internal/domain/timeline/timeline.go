// Package timeline canonicalizes, deduplicates and orders heterogeneous
// session event records. All functions are pure; malformed records are
// skipped, never errors.
package timeline

import (
	"sort"

	model "github.com/musterhq/muster/internal/domain/model"
)

// Order selects the timestamp sort direction of merged output.
type Order string

// Sort directions.
const (
	Ascending  Order = "asc"
	Descending Order = "desc"
)

// NormalizeOptions supplies defaults for records missing a turn or type.
type NormalizeOptions struct {
	DefaultTurn int
	DefaultType string
}

// Field aliases accepted at the deserialization boundary. Alias resolution
// lives here and nowhere else; the canonical model has one name per field.
var (
	typeAliases      = []string{"type", "event_type", "eventType", "action"}
	idAliases        = []string{"id", "event_id", "eventId"}
	ownerAliases     = []string{"owner_id", "ownerId", "ownerID", "owner"}
	timestampAliases = []string{"timestamp", "event_timestamp", "ts", "created_at"}
	reasonAliases    = []string{"reason"}
	strikeAliases    = []string{"strike", "strikes"}
	remainingAliases = []string{"remaining"}
	limitAliases     = []string{"limit", "warning_limit"}
	turnAliases      = []string{"turn", "turn_number", "turnNumber"}
	statusAliases    = []string{"status"}
	contextAliases   = []string{"context"}
	metadataAliases  = []string{"metadata", "meta"}
)

// Normalize converts one heterogeneous record into the canonical event shape.
// The second return is false when no usable type can be determined.
func Normalize(raw map[string]any, opts NormalizeOptions) (model.TimelineEvent, bool) {
	if raw == nil {
		return model.TimelineEvent{}, false
	}

	eventType := stringField(raw, typeAliases)
	if eventType == "" {
		eventType = opts.DefaultType
	}
	if eventType == "" {
		return model.TimelineEvent{}, false
	}

	e := model.TimelineEvent{
		ID:        stringField(raw, idAliases),
		Type:      eventType,
		OwnerID:   stringField(raw, ownerAliases),
		Reason:    stringField(raw, reasonAliases),
		Strike:    intField(raw, strikeAliases),
		Remaining: intField(raw, remainingAliases),
		Limit:     intField(raw, limitAliases),
		Turn:      intField(raw, turnAliases),
		Timestamp: timestampField(raw, timestampAliases),
		Context:   mapField(raw, contextAliases),
		Metadata:  mapField(raw, metadataAliases),
	}
	if status := stringField(raw, statusAliases); status != "" {
		e.Status = model.NormalizeStatus(status)
	}
	if e.Turn == 0 {
		e.Turn = opts.DefaultTurn
	}
	return e, true
}

// Merge combines two event lists keyed by event identity. A later record's
// populated fields win over an earlier record with the same key; fields the
// later record leaves zero survive from the earlier one. Output is sorted by
// timestamp in the requested order, ties keeping first-seen order.
func Merge(existing, incoming []model.TimelineEvent, order Order) []model.TimelineEvent {
	byKey := make(map[string]model.TimelineEvent)
	keys := make([]string, 0, len(existing)+len(incoming))

	absorb := func(events []model.TimelineEvent) {
		for _, e := range events {
			if e.Type == "" {
				continue
			}
			k := e.Key()
			prev, seen := byKey[k]
			if !seen {
				byKey[k] = e
				keys = append(keys, k)
				continue
			}
			byKey[k] = overlay(prev, e)
		}
	}
	absorb(existing)
	absorb(incoming)

	out := make([]model.TimelineEvent, 0, len(keys))
	for _, k := range keys {
		out = append(out, byKey[k])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if order == Descending {
			return out[i].Timestamp > out[j].Timestamp
		}
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}

// NormalizeEvents deduplicates and orders a single list ascending.
func NormalizeEvents(events []model.TimelineEvent) []model.TimelineEvent {
	return Merge(nil, events, Ascending)
}

// overlay applies the later record over the earlier one field by field.
// Populated fields of the later record win; zero fields keep the earlier
// value. Strike/Remaining/Limit/Turn/Timestamp count as populated when
// non-zero, which is the explicit precedence replacing object-spread
// semantics of loosely typed event bags.
func overlay(earlier, later model.TimelineEvent) model.TimelineEvent {
	out := earlier
	if later.ID != "" {
		out.ID = later.ID
	}
	if later.Type != "" {
		out.Type = later.Type
	}
	if later.OwnerID != "" {
		out.OwnerID = later.OwnerID
	}
	if later.Reason != "" {
		out.Reason = later.Reason
	}
	if later.Status != "" {
		out.Status = later.Status
	}
	if later.Strike != 0 {
		out.Strike = later.Strike
	}
	if later.Remaining != 0 {
		out.Remaining = later.Remaining
	}
	if later.Limit != 0 {
		out.Limit = later.Limit
	}
	if later.Turn != 0 {
		out.Turn = later.Turn
	}
	if later.Timestamp != 0 {
		out.Timestamp = later.Timestamp
	}
	if later.Context != nil {
		out.Context = later.Context
	}
	if later.Metadata != nil {
		out.Metadata = later.Metadata
	}
	return out
}

func stringField(raw map[string]any, aliases []string) string {
	for _, k := range aliases {
		if v, ok := raw[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func intField(raw map[string]any, aliases []string) int {
	for _, k := range aliases {
		v, ok := raw[k]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return 0
}

func timestampField(raw map[string]any, aliases []string) int64 {
	for _, k := range aliases {
		v, ok := raw[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
			if ms, ok := model.ParseTimestamp(t); ok {
				return ms
			}
		case int64:
			return t
		case int:
			return int64(t)
		case float64:
			return int64(t)
		}
	}
	return 0
}

func mapField(raw map[string]any, aliases []string) map[string]any {
	for _, k := range aliases {
		if v, ok := raw[k]; ok {
			if m, ok := v.(map[string]any); ok {
				return m
			}
		}
	}
	return nil
}
