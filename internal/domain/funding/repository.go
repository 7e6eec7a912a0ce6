package funding

import (
	"context"

	"github.com/google/uuid"
	"github.com/payflow/backend/internal/domain/shared"
)

// RecordFilter defines filtering options for funding record queries
type RecordFilter struct {
	shared.Filter
	Supplier *uuid.UUID // Filter by supplier
	Settled  *bool      // Filter by settlement state
}

// Repository defines the persistence interface for the execution ledger
type Repository interface {
	// FindByInvoice finds the funding record for an invoice; returns
	// ErrNotFound when the invoice was never funded
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) (*FundingRecord, error)

	// SaveRecord creates or updates a funding record with optimistic locking
	SaveRecord(ctx context.Context, r *FundingRecord) error

	// ListRecords lists funding records with filtering and pagination
	ListRecords(ctx context.Context, filter RecordFilter) ([]FundingRecord, int64, error)

	// GetLedger loads the singleton counter row, locking for update inside
	// a transaction
	GetLedger(ctx context.Context) (*Ledger, error)

	// SaveLedger persists the counter row with optimistic locking
	SaveLedger(ctx context.Context, l *Ledger) error
}
