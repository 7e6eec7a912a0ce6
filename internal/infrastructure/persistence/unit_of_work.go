package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/payflow/backend/internal/domain"
	"github.com/payflow/backend/internal/domain/funding"
	"github.com/payflow/backend/internal/domain/invoice"
	"github.com/payflow/backend/internal/domain/pool"
	"github.com/payflow/backend/internal/domain/shared"
	"github.com/payflow/backend/internal/domain/treasury"
)

// GormUnitOfWork binds the repositories to a single gorm transaction
type GormUnitOfWork struct {
	tx     *gorm.DB
	outbox shared.OutboxEventSaver
}

// Pools returns a pool repository scoped to the transaction
func (u *GormUnitOfWork) Pools() pool.Repository {
	return NewGormPoolRepository(u.tx)
}

// Treasury returns a treasury repository scoped to the transaction
func (u *GormUnitOfWork) Treasury() treasury.Repository {
	return NewGormTreasuryRepository(u.tx)
}

// Invoices returns an invoice repository scoped to the transaction
func (u *GormUnitOfWork) Invoices() invoice.Repository {
	return NewGormInvoiceRepository(u.tx)
}

// Funding returns a funding repository scoped to the transaction
func (u *GormUnitOfWork) Funding() funding.Repository {
	return NewGormFundingRepository(u.tx)
}

// SaveEvents writes domain events to the outbox inside the transaction
func (u *GormUnitOfWork) SaveEvents(ctx context.Context, events ...shared.DomainEvent) error {
	if u.outbox == nil || len(events) == 0 {
		return nil
	}
	return u.outbox.SaveEvents(ctx, u.tx, events...)
}

// GormUnitOfWorkRunner creates transaction-scoped units of work
type GormUnitOfWorkRunner struct {
	db     *Database
	outbox shared.OutboxEventSaver
}

// NewGormUnitOfWorkRunner creates a unit of work runner over the database.
// The outbox saver may be nil when transactional event publishing is not
// wired, for example in tests.
func NewGormUnitOfWorkRunner(db *Database, outbox shared.OutboxEventSaver) *GormUnitOfWorkRunner {
	return &GormUnitOfWorkRunner{db: db, outbox: outbox}
}

// Execute runs fn inside a database transaction
func (r *GormUnitOfWorkRunner) Execute(ctx context.Context, fn func(uow domain.UnitOfWork) error) error {
	return r.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormUnitOfWork{tx: tx, outbox: r.outbox})
	})
}

// compile-time interface checks
var (
	_ domain.UnitOfWork       = (*GormUnitOfWork)(nil)
	_ domain.UnitOfWorkRunner = (*GormUnitOfWorkRunner)(nil)
)
