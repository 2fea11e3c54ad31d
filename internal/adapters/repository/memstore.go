package repository

import (
	"context"
	"strings"
	"sync"

	model "github.com/musterhq/muster/internal/domain/model"
	timeline "github.com/musterhq/muster/internal/domain/timeline"
)

// MemoryStore is an in-memory Store keyed by event identity. Writes merge
// through the timeline overlay so replays and partial updates converge on the
// same history a fresh ingest would produce.
type MemoryStore struct {
	mu     sync.RWMutex
	events []model.TimelineEvent
	keys   map[string]struct{}
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory event store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{keys: make(map[string]struct{})}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append merges events into the stored history. Events without a type are
// rejected with ErrInvalidEvent; earlier events in the same call still apply.
func (s *MemoryStore) Append(_ context.Context, events ...model.TimelineEvent) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied := 0
	for _, e := range events {
		if strings.TrimSpace(e.Type) == "" {
			return applied, ErrInvalidEvent
		}
		s.events = timeline.Merge(s.events, []model.TimelineEvent{e}, timeline.Ascending)
		s.keys[e.Key()] = struct{}{}
		applied++
	}
	return applied, nil
}

// Get returns the stored event with the given key.
func (s *MemoryStore) Get(_ context.Context, key string) (model.TimelineEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.keys[key]; !ok {
		return model.TimelineEvent{}, ErrNotFound
	}
	for _, e := range s.events {
		if e.Key() == key {
			return e, nil
		}
	}
	return model.TimelineEvent{}, ErrNotFound
}

// List returns the merged history in the requested order.
func (s *MemoryStore) List(_ context.Context, order timeline.Order) ([]model.TimelineEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return timeline.Merge(nil, s.events, order), nil
}

// ByOwner returns the merged history for one owner in the requested order.
func (s *MemoryStore) ByOwner(_ context.Context, ownerID string, order timeline.Order) ([]model.TimelineEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.TimelineEvent
	for _, e := range s.events {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	return timeline.Merge(nil, out, order), nil
}

// Count returns the number of distinct events stored.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
