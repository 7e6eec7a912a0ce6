package invoice

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/payflow/backend/internal/domain/shared"
)

// Filter defines filtering options for invoice queries
type Filter struct {
	shared.Filter
	Buyer        *uuid.UUID // Filter by buyer
	Supplier     *uuid.UUID // Filter by supplier
	Status       *Status    // Filter by lifecycle state
	MaturedBy    *time.Time // Filter by maturity date upper bound
	OverdueAsOf  *time.Time // Filter funded invoices past maturity at this instant
	CreatedAfter *time.Time // Filter by creation date lower bound
}

// Repository defines the persistence interface for invoices
type Repository interface {
	// FindByID finds an invoice by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByNumber finds an invoice by its invoice number
	FindByNumber(ctx context.Context, invoiceNumber string) (*Invoice, error)

	// FindAll lists invoices with filtering and pagination
	FindAll(ctx context.Context, filter Filter) ([]Invoice, int64, error)

	// FindOverdue lists funded invoices past maturity at the given instant
	FindOverdue(ctx context.Context, asOf time.Time) ([]Invoice, error)

	// Save creates or updates an invoice with optimistic locking
	Save(ctx context.Context, inv *Invoice) error

	// CountByStatus counts invoices in a lifecycle state
	CountByStatus(ctx context.Context, status Status) (int64, error)
}
