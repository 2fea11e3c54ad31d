// Package heartbeat classifies queue entries as fresh or stale by the age of
// their last update. Pure functions; callers supply the clock reading.
package heartbeat

import (
	model "github.com/musterhq/muster/internal/domain/model"
)

// Params configures one partition call.
type Params struct {
	// NowMS is the caller's clock reading in epoch milliseconds.
	NowMS int64
	// StaleThresholdMS is the maximum allowed age before an entry counts as
	// abandoned. Zero or negative disables staleness entirely.
	StaleThresholdMS int64
}

// StaleEntry pairs a stale queue entry with the reference timestamp the
// classification used (parsed updated_at, falling back to joined_at).
type StaleEntry struct {
	Entry       model.QueueEntry
	ReferenceMS int64
}

// Report is the outcome of a partition. The multiset union of Fresh and the
// entries inside Stale always equals the input, in input order.
type Report struct {
	Fresh []model.QueueEntry
	Stale []StaleEntry
}

// Partition splits entries into fresh and stale. An entry is stale only when
// a positive threshold is configured and its reference timestamp is older
// than NowMS by more than the threshold. Entries with no parseable
// updated_at or joined_at are never stale.
func Partition(entries []model.QueueEntry, p Params) Report {
	r := Report{
		Fresh: make([]model.QueueEntry, 0, len(entries)),
	}
	for _, e := range entries {
		ref, ok := reference(e)
		if !ok || p.StaleThresholdMS <= 0 {
			r.Fresh = append(r.Fresh, e)
			continue
		}
		if p.NowMS-ref > p.StaleThresholdMS {
			r.Stale = append(r.Stale, StaleEntry{Entry: e, ReferenceMS: ref})
			continue
		}
		r.Fresh = append(r.Fresh, e)
	}
	return r
}

// reference resolves the entry timestamp used for age checks: the first
// parseable of updated_at then joined_at.
func reference(e model.QueueEntry) (int64, bool) {
	if ms, ok := model.ParseTimestamp(e.UpdatedAt); ok {
		return ms, true
	}
	return model.ParseTimestamp(e.JoinedAt)
}
