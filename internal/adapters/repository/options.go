package repository

import (
	model "github.com/musterhq/muster/internal/domain/model"
	timeline "github.com/musterhq/muster/internal/domain/timeline"
)

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithSeedEvents preloads the store with an existing history, merged the same
// way Append merges. Untyped seed events are dropped.
func WithSeedEvents(events []model.TimelineEvent) Option {
	return func(s *MemoryStore) {
		var typed []model.TimelineEvent
		for _, e := range events {
			if e.Type == "" {
				continue
			}
			typed = append(typed, e)
			s.keys[e.Key()] = struct{}{}
		}
		s.events = timeline.Merge(s.events, typed, timeline.Ascending)
	}
}
