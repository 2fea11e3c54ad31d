package timeline_test

import (
	"testing"

	model "github.com/musterhq/muster/internal/domain/model"
	timeline "github.com/musterhq/muster/internal/domain/timeline"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalize(t *testing.T) {
	Convey("Given heterogeneous raw records", t, func() {
		Convey("When the record uses snake_case keys", func() {
			e, ok := timeline.Normalize(map[string]any{
				"event_type":      "warning",
				"owner_id":        "o1",
				"strike":          float64(2),
				"remaining":       float64(1),
				"limit":           float64(2),
				"turn":            float64(4),
				"event_timestamp": "2024-05-01T10:00:00Z",
				"status":          "ALIVE",
			}, timeline.NormalizeOptions{})

			Convey("Then it canonicalizes every field", func() {
				So(ok, ShouldBeTrue)
				So(e.Type, ShouldEqual, "warning")
				So(e.OwnerID, ShouldEqual, "o1")
				So(e.Strike, ShouldEqual, 2)
				So(e.Remaining, ShouldEqual, 1)
				So(e.Turn, ShouldEqual, 4)
				So(e.Status, ShouldEqual, model.StatusActive)
				So(e.Timestamp, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When the record uses camelCase aliases and epoch millis", func() {
			e, ok := timeline.Normalize(map[string]any{
				"eventType": "proxy_escalated",
				"ownerId":   "o2",
				"ts":        float64(1700000000000),
			}, timeline.NormalizeOptions{DefaultTurn: 7})

			Convey("Then aliases resolve and defaults fill the gaps", func() {
				So(ok, ShouldBeTrue)
				So(e.Type, ShouldEqual, "proxy_escalated")
				So(e.OwnerID, ShouldEqual, "o2")
				So(e.Timestamp, ShouldEqual, 1700000000000)
				So(e.Turn, ShouldEqual, 7)
			})
		})

		Convey("When no type can be determined", func() {
			_, ok := timeline.Normalize(map[string]any{"owner_id": "o1"}, timeline.NormalizeOptions{})

			Convey("Then the record is rejected", func() {
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When a default type is supplied", func() {
			e, ok := timeline.Normalize(map[string]any{"owner_id": "o1"}, timeline.NormalizeOptions{DefaultType: "warning"})

			Convey("Then the default applies", func() {
				So(ok, ShouldBeTrue)
				So(e.Type, ShouldEqual, "warning")
			})
		})

		Convey("When the record is nil", func() {
			_, ok := timeline.Normalize(nil, timeline.NormalizeOptions{DefaultType: "warning"})

			Convey("Then it is rejected without panicking", func() {
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestMerge(t *testing.T) {
	Convey("Given two records with the same identity", t, func() {
		earlier := model.TimelineEvent{
			ID: "evt-1", Type: "warning", OwnerID: "o1",
			Reason: "timeout", Strike: 1, Timestamp: 1000,
		}
		later := model.TimelineEvent{
			ID: "evt-1", Type: "warning", OwnerID: "o1",
			Strike: 2, Timestamp: 2000,
		}

		Convey("When merged", func() {
			out := timeline.Merge([]model.TimelineEvent{earlier}, []model.TimelineEvent{later}, timeline.Ascending)

			Convey("Then the later populated fields win", func() {
				So(len(out), ShouldEqual, 1)
				So(out[0].Strike, ShouldEqual, 2)
				So(out[0].Timestamp, ShouldEqual, 2000)
			})

			Convey("Then fields absent in the later record survive", func() {
				So(out[0].Reason, ShouldEqual, "timeout")
			})
		})
	})

	Convey("Given a list merged with itself", t, func() {
		events := []model.TimelineEvent{
			{Type: "warning", OwnerID: "o1", Turn: 1, Timestamp: 1000},
			{Type: "warning", OwnerID: "o2", Turn: 1, Timestamp: 2000},
			{Type: "proxy_escalated", OwnerID: "o1", Turn: 3, Timestamp: 3000},
		}

		Convey("When merged and when normalized once", func() {
			merged := timeline.Merge(events, events, timeline.Ascending)
			normalized := timeline.NormalizeEvents(events)

			Convey("Then both have the same cardinality", func() {
				So(len(merged), ShouldEqual, len(normalized))
				So(len(merged), ShouldEqual, 3)
			})
		})
	})

	Convey("Given out-of-order timestamps", t, func() {
		events := []model.TimelineEvent{
			{ID: "b", Type: "warning", Timestamp: 2000},
			{ID: "a", Type: "warning", Timestamp: 1000},
			{ID: "c", Type: "warning", Timestamp: 3000},
		}

		Convey("When merged ascending", func() {
			out := timeline.Merge(nil, events, timeline.Ascending)

			Convey("Then output is sorted by timestamp", func() {
				So(out[0].ID, ShouldEqual, "a")
				So(out[2].ID, ShouldEqual, "c")
			})
		})

		Convey("When merged descending", func() {
			out := timeline.Merge(nil, events, timeline.Descending)

			Convey("Then the newest record comes first", func() {
				So(out[0].ID, ShouldEqual, "c")
				So(out[2].ID, ShouldEqual, "a")
			})
		})
	})

	Convey("Given records without explicit ids", t, func() {
		a := model.TimelineEvent{Type: "warning", OwnerID: "o1", Turn: 2, Timestamp: 1000}
		b := model.TimelineEvent{Type: "warning", OwnerID: "o1", Turn: 2, Timestamp: 1000, Reason: "timeout"}

		Convey("When merged", func() {
			out := timeline.Merge([]model.TimelineEvent{a}, []model.TimelineEvent{b}, timeline.Ascending)

			Convey("Then the synthesized key dedupes them", func() {
				So(len(out), ShouldEqual, 1)
				So(out[0].Reason, ShouldEqual, "timeout")
			})
		})
	})

	Convey("Given an untyped record", t, func() {
		events := []model.TimelineEvent{{OwnerID: "o1", Timestamp: 1000}}

		Convey("When merged", func() {
			out := timeline.Merge(nil, events, timeline.Ascending)

			Convey("Then it is skipped silently", func() {
				So(len(out), ShouldEqual, 0)
			})
		})
	})
}

func TestRowCodec(t *testing.T) {
	Convey("Given a canonical event with opaque payloads", t, func() {
		e := model.TimelineEvent{
			ID:        "evt-9",
			Type:      "drop_in_joined",
			OwnerID:   "o5",
			Reason:    "role_defeated",
			Strike:    1,
			Remaining: 2,
			Limit:     2,
			Turn:      6,
			Timestamp: 1700000000123,
			Status:    model.StatusActive,
			Context:   map[string]any{"role": "tank", "slot_index": float64(2)},
			Metadata:  map[string]any{"mode": "async"},
		}

		Convey("When encoded to a row and decoded back", func() {
			row := timeline.EventToRow(e)
			back, ok := timeline.RowToEvent(row)

			Convey("Then the round trip reproduces every canonical field", func() {
				So(ok, ShouldBeTrue)
				So(back, ShouldResemble, e)
			})

			Convey("Then the row carries the ISO8601 timestamp", func() {
				So(row.EventTimestamp, ShouldEqual, model.FormatTimestamp(e.Timestamp))
			})
		})

		Convey("When the event has no explicit id", func() {
			e.ID = ""
			row := timeline.EventToRow(e)

			Convey("Then the row is stamped with the synthesized identity", func() {
				So(row.EventID, ShouldEqual, model.SynthesizeEventID(e.Type, e.OwnerID, e.Turn, e.Timestamp))
			})
		})
	})

	Convey("Given persisted rows with one undecodable entry", t, func() {
		rows := []timeline.Row{
			{EventID: "a", EventType: "warning", OwnerID: "o1", EventTimestamp: "2024-05-01T10:00:00Z"},
			{EventID: "broken", EventType: "", OwnerID: "o2"},
			{EventID: "a", EventType: "warning", OwnerID: "o1", Reason: "timeout", EventTimestamp: "2024-05-01T10:00:00Z"},
		}

		Convey("When decoded and merged", func() {
			events := timeline.RowsToEvents(rows, timeline.Ascending)

			Convey("Then the broken row is dropped and duplicates merge", func() {
				So(len(events), ShouldEqual, 1)
				So(events[0].Reason, ShouldEqual, "timeout")
			})
		})
	})
}
