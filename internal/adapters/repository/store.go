// Package repository defines the timeline event store interface and errors.
package repository

import (
	"context"

	model "github.com/musterhq/muster/internal/domain/model"
	timeline "github.com/musterhq/muster/internal/domain/timeline"
)

// Store provides durable access to the merged timeline history.
type Store interface {
	// Append stores events, merging by event identity: a later write for an
	// existing key overlays the stored event field by field. Returns the
	// number of events applied.
	Append(ctx context.Context, events ...model.TimelineEvent) (int, error)

	// Get returns the stored event with the given key.
	// Returns ErrNotFound if the key is unknown.
	Get(ctx context.Context, key string) (model.TimelineEvent, error)

	// List returns the full merged history in the requested order.
	List(ctx context.Context, order timeline.Order) ([]model.TimelineEvent, error)

	// ByOwner returns the merged history for one owner in the requested order.
	ByOwner(ctx context.Context, ownerID string, order timeline.Order) ([]model.TimelineEvent, error)

	// Count returns the number of distinct events stored.
	Count(ctx context.Context) int
}
