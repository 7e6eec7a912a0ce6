package pool

import (
	"context"

	"github.com/google/uuid"
	"github.com/payflow/backend/internal/domain/shared"
)

// ShareHolderFilter defines filtering options for share holder queries
type ShareHolderFilter struct {
	shared.Filter
	Holder *uuid.UUID // Filter by holder account
}

// Repository defines the persistence interface for the capital pool.
// The pool itself is a singleton row; Get must acquire a row-level lock when
// called inside a transaction so that concurrent mutations serialize.
type Repository interface {
	// Get loads the capital pool, locking it for update inside a transaction
	Get(ctx context.Context) (*CapitalPool, error)

	// Save creates or updates the capital pool with optimistic locking
	Save(ctx context.Context, p *CapitalPool) error

	// FindShareHolder finds a share holder by account; returns ErrNotFound when absent
	FindShareHolder(ctx context.Context, holder uuid.UUID) (*ShareHolder, error)

	// SaveShareHolder creates or updates a share holder balance
	SaveShareHolder(ctx context.Context, h *ShareHolder) error

	// DeleteShareHolder removes a holder whose balance reached zero
	DeleteShareHolder(ctx context.Context, id uuid.UUID) error

	// ListShareHolders lists holders with pagination
	ListShareHolders(ctx context.Context, filter ShareHolderFilter) ([]ShareHolder, int64, error)
}
