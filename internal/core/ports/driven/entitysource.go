package driven

import (
	"context"

	"github.com/custodia-labs/anchor/internal/core/domain"
)

// EntitySource supplies snapshots of the user's content tree.
// The core only reads snapshots; entity lifecycle belongs to the source.
type EntitySource interface {
	// Snapshot returns the current entity tree.
	Snapshot(ctx context.Context) (*domain.EntityTree, error)
}

// WatchableEntitySource is an EntitySource that can report changes.
type WatchableEntitySource interface {
	EntitySource

	// Watch emits a value each time the underlying content changes.
	// The channel is closed when ctx is cancelled.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
