package domain

import (
	"context"

	"github.com/payflow/backend/internal/domain/funding"
	"github.com/payflow/backend/internal/domain/invoice"
	"github.com/payflow/backend/internal/domain/pool"
	"github.com/payflow/backend/internal/domain/shared"
	"github.com/payflow/backend/internal/domain/treasury"
)

// UnitOfWork exposes transaction-scoped repositories. Every repository
// obtained from the same unit of work operates inside the same database
// transaction, so multi-aggregate mutations commit or roll back together.
type UnitOfWork interface {
	// Pools returns the capital pool repository bound to this transaction
	Pools() pool.Repository

	// Treasury returns the treasury allocator repository bound to this transaction
	Treasury() treasury.Repository

	// Invoices returns the invoice repository bound to this transaction
	Invoices() invoice.Repository

	// Funding returns the execution ledger repository bound to this transaction
	Funding() funding.Repository

	// SaveEvents writes domain events to the outbox within this transaction
	SaveEvents(ctx context.Context, events ...shared.DomainEvent) error
}

// UnitOfWorkRunner opens a transaction, hands a UnitOfWork to fn, and
// commits when fn returns nil. Any error rolls the transaction back.
type UnitOfWorkRunner interface {
	Execute(ctx context.Context, fn func(uow UnitOfWork) error) error
}
