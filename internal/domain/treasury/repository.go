package treasury

import (
	"context"
)

// Repository defines the persistence interface for the treasury allocator.
// The allocator is a singleton aggregate; its strategy registry is loaded
// and saved with it, ordered by insertion position.
type Repository interface {
	// Get loads the allocator with its strategies, locking for update
	// inside a transaction
	Get(ctx context.Context) (*Allocator, error)

	// Save persists the allocator and its strategy registry with
	// optimistic locking
	Save(ctx context.Context, a *Allocator) error
}
