// Package testutil provides in-memory test doubles shared across package
// tests: an in-memory unit of work with repositories for every aggregate,
// and helpers for driving service-level scenarios without a database.
package testutil

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/payflow/backend/internal/domain"
	"github.com/payflow/backend/internal/domain/funding"
	"github.com/payflow/backend/internal/domain/invoice"
	"github.com/payflow/backend/internal/domain/pool"
	"github.com/payflow/backend/internal/domain/shared"
	"github.com/payflow/backend/internal/domain/treasury"
)

// MemoryUnitOfWork is an in-memory domain.UnitOfWork and UnitOfWorkRunner.
// It has no transactional isolation: mutations apply immediately and are not
// rolled back when the executed function fails, which is sufficient for
// asserting service success paths and pre-mutation validation errors.
type MemoryUnitOfWork struct {
	PoolRepo     *MemoryPoolRepository
	TreasuryRepo *MemoryTreasuryRepository
	InvoiceRepo  *MemoryInvoiceRepository
	FundingRepo  *MemoryFundingRepository

	// Events collects everything saved through SaveEvents
	Events []shared.DomainEvent
}

// NewMemoryUnitOfWork creates an empty in-memory unit of work
func NewMemoryUnitOfWork() *MemoryUnitOfWork {
	return &MemoryUnitOfWork{
		PoolRepo:     &MemoryPoolRepository{holders: make(map[uuid.UUID]*pool.ShareHolder)},
		TreasuryRepo: &MemoryTreasuryRepository{},
		InvoiceRepo:  &MemoryInvoiceRepository{invoices: make(map[uuid.UUID]*invoice.Invoice)},
		FundingRepo:  &MemoryFundingRepository{records: make(map[uuid.UUID]*funding.FundingRecord)},
	}
}

// Pools returns the in-memory pool repository
func (u *MemoryUnitOfWork) Pools() pool.Repository { return u.PoolRepo }

// Treasury returns the in-memory treasury repository
func (u *MemoryUnitOfWork) Treasury() treasury.Repository { return u.TreasuryRepo }

// Invoices returns the in-memory invoice repository
func (u *MemoryUnitOfWork) Invoices() invoice.Repository { return u.InvoiceRepo }

// Funding returns the in-memory funding repository
func (u *MemoryUnitOfWork) Funding() funding.Repository { return u.FundingRepo }

// SaveEvents collects the events
func (u *MemoryUnitOfWork) SaveEvents(_ context.Context, events ...shared.DomainEvent) error {
	u.Events = append(u.Events, events...)
	return nil
}

// Execute runs fn against the same in-memory state
func (u *MemoryUnitOfWork) Execute(_ context.Context, fn func(uow domain.UnitOfWork) error) error {
	return fn(u)
}

// EventTypes returns the types of all collected events in order
func (u *MemoryUnitOfWork) EventTypes() []string {
	types := make([]string, len(u.Events))
	for i, e := range u.Events {
		types[i] = e.EventType()
	}
	return types
}

var (
	_ domain.UnitOfWork       = (*MemoryUnitOfWork)(nil)
	_ domain.UnitOfWorkRunner = (*MemoryUnitOfWork)(nil)
)

// ===================== Pool =====================

// MemoryPoolRepository is an in-memory pool.Repository
type MemoryPoolRepository struct {
	Pool    *pool.CapitalPool
	holders map[uuid.UUID]*pool.ShareHolder
}

func (r *MemoryPoolRepository) Get(context.Context) (*pool.CapitalPool, error) {
	if r.Pool == nil {
		return nil, shared.ErrNotFound
	}
	return r.Pool, nil
}

func (r *MemoryPoolRepository) Save(_ context.Context, p *pool.CapitalPool) error {
	r.Pool = p
	return nil
}

func (r *MemoryPoolRepository) FindShareHolder(_ context.Context, holder uuid.UUID) (*pool.ShareHolder, error) {
	h, ok := r.holders[holder]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return h, nil
}

func (r *MemoryPoolRepository) SaveShareHolder(_ context.Context, h *pool.ShareHolder) error {
	r.holders[h.Holder] = h
	return nil
}

func (r *MemoryPoolRepository) DeleteShareHolder(_ context.Context, id uuid.UUID) error {
	for holder, h := range r.holders {
		if h.ID == id {
			delete(r.holders, holder)
			return nil
		}
	}
	return shared.ErrNotFound
}

func (r *MemoryPoolRepository) ListShareHolders(_ context.Context, filter pool.ShareHolderFilter) ([]pool.ShareHolder, int64, error) {
	var out []pool.ShareHolder
	for _, h := range r.holders {
		if filter.Holder != nil && h.Holder != *filter.Holder {
			continue
		}
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

// HolderCount returns the number of stored holders
func (r *MemoryPoolRepository) HolderCount() int { return len(r.holders) }

// ===================== Treasury =====================

// MemoryTreasuryRepository is an in-memory treasury.Repository
type MemoryTreasuryRepository struct {
	Allocator *treasury.Allocator
}

func (r *MemoryTreasuryRepository) Get(context.Context) (*treasury.Allocator, error) {
	if r.Allocator == nil {
		return nil, shared.ErrNotFound
	}
	return r.Allocator, nil
}

func (r *MemoryTreasuryRepository) Save(_ context.Context, a *treasury.Allocator) error {
	r.Allocator = a
	return nil
}

// ===================== Invoice =====================

// MemoryInvoiceRepository is an in-memory invoice.Repository
type MemoryInvoiceRepository struct {
	invoices map[uuid.UUID]*invoice.Invoice
}

func (r *MemoryInvoiceRepository) FindByID(_ context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return inv, nil
}

func (r *MemoryInvoiceRepository) FindByNumber(_ context.Context, number string) (*invoice.Invoice, error) {
	for _, inv := range r.invoices {
		if inv.InvoiceNumber == number {
			return inv, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *MemoryInvoiceRepository) FindAll(_ context.Context, filter invoice.Filter) ([]invoice.Invoice, int64, error) {
	var out []invoice.Invoice
	for _, inv := range r.invoices {
		if filter.Buyer != nil && inv.Buyer != *filter.Buyer {
			continue
		}
		if filter.Supplier != nil && inv.Supplier != *filter.Supplier {
			continue
		}
		if filter.Status != nil && inv.Status != *filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(inv.InvoiceNumber, filter.Search) {
			continue
		}
		if filter.OverdueAsOf != nil && !inv.IsOverdue(*filter.OverdueAsOf) {
			continue
		}
		out = append(out, *inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

func (r *MemoryInvoiceRepository) FindOverdue(_ context.Context, asOf time.Time) ([]invoice.Invoice, error) {
	var out []invoice.Invoice
	for _, inv := range r.invoices {
		if inv.IsOverdue(asOf) {
			out = append(out, *inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MaturityDate.Before(out[j].MaturityDate) })
	return out, nil
}

func (r *MemoryInvoiceRepository) Save(_ context.Context, inv *invoice.Invoice) error {
	r.invoices[inv.ID] = inv
	return nil
}

func (r *MemoryInvoiceRepository) CountByStatus(_ context.Context, status invoice.Status) (int64, error) {
	var n int64
	for _, inv := range r.invoices {
		if inv.Status == status {
			n++
		}
	}
	return n, nil
}

// ===================== Funding =====================

// MemoryFundingRepository is an in-memory funding.Repository
type MemoryFundingRepository struct {
	records map[uuid.UUID]*funding.FundingRecord
	Ledger  *funding.Ledger
}

func (r *MemoryFundingRepository) FindByInvoice(_ context.Context, invoiceID uuid.UUID) (*funding.FundingRecord, error) {
	rec, ok := r.records[invoiceID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return rec, nil
}

func (r *MemoryFundingRepository) SaveRecord(_ context.Context, rec *funding.FundingRecord) error {
	r.records[rec.InvoiceID] = rec
	return nil
}

func (r *MemoryFundingRepository) ListRecords(_ context.Context, filter funding.RecordFilter) ([]funding.FundingRecord, int64, error) {
	var out []funding.FundingRecord
	for _, rec := range r.records {
		if filter.Supplier != nil && rec.Supplier != *filter.Supplier {
			continue
		}
		if filter.Settled != nil && rec.IsSettled() != *filter.Settled {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FundedAt.Before(out[j].FundedAt) })
	return out, int64(len(out)), nil
}

func (r *MemoryFundingRepository) GetLedger(context.Context) (*funding.Ledger, error) {
	if r.Ledger == nil {
		return nil, shared.ErrNotFound
	}
	return r.Ledger, nil
}

func (r *MemoryFundingRepository) SaveLedger(_ context.Context, l *funding.Ledger) error {
	r.Ledger = l
	return nil
}
