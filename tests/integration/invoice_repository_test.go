package integration

import (
	"context"
	"testing"
	"time"

	"github.com/payflow/backend/internal/domain/invoice"
	"github.com/payflow/backend/internal/domain/pool"
	"github.com/payflow/backend/internal/domain/shared"
	"github.com/payflow/backend/internal/domain/shared/valueobject"
	"github.com/payflow/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInvoice(t *testing.T, number string, supplier shared.Actor, buyerID uuid.UUID, maturity time.Time) *invoice.Invoice {
	t.Helper()
	inv, err := invoice.NewInvoice(
		number,
		buyerID,
		supplier.ID,
		supplier,
		valueobject.NewMoneyUSD(decimal.NewFromInt(10_000)),
		500,
		maturity,
	)
	require.NoError(t, err)
	inv.ClearDomainEvents()
	return inv
}

// TestInvoiceRepository_Integration exercises the invoice repository against
// a real PostgreSQL database.
func TestInvoiceRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	repo := persistence.NewGormInvoiceRepository(testDB.DB)
	ctx := context.Background()

	buyerID := uuid.New()
	supplier := shared.Actor{ID: uuid.New(), Role: shared.RoleSupplier}
	maturity := time.Now().Add(30 * 24 * time.Hour)

	t.Run("Save and FindByID", func(t *testing.T) {
		inv := newTestInvoice(t, "INV-0001", supplier, buyerID, maturity)
		require.NoError(t, repo.Save(ctx, inv))

		found, err := repo.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, inv.ID, found.ID)
		assert.Equal(t, "INV-0001", found.InvoiceNumber)
		assert.Equal(t, invoice.StatusPending, found.Status)
		assert.True(t, found.FaceValue.Equal(decimal.NewFromInt(10_000)))
	})

	t.Run("FindByNumber", func(t *testing.T) {
		inv := newTestInvoice(t, "INV-0002", supplier, buyerID, maturity)
		require.NoError(t, repo.Save(ctx, inv))

		found, err := repo.FindByNumber(ctx, "INV-0002")
		require.NoError(t, err)
		assert.Equal(t, inv.ID, found.ID)

		_, err = repo.FindByNumber(ctx, "INV-MISSING")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("Save enforces optimistic locking", func(t *testing.T) {
		inv := newTestInvoice(t, "INV-0003", supplier, buyerID, maturity)
		require.NoError(t, repo.Save(ctx, inv))

		first, err := repo.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		second, err := repo.FindByID(ctx, inv.ID)
		require.NoError(t, err)

		buyer := shared.Actor{ID: buyerID, Role: shared.RoleBuyer}
		require.NoError(t, first.Approve(buyer))
		first.ClearDomainEvents()
		require.NoError(t, repo.Save(ctx, first))

		require.NoError(t, second.Approve(buyer))
		second.ClearDomainEvents()
		err = repo.Save(ctx, second)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})

	t.Run("FindAll filters by status", func(t *testing.T) {
		status := invoice.StatusPending
		results, total, err := repo.FindAll(ctx, invoice.Filter{
			Filter: shared.Filter{Page: 1, PageSize: 10},
			Status: &status,
		})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, total, int64(2))
		for _, inv := range results {
			assert.Equal(t, invoice.StatusPending, inv.Status)
		}
	})

	t.Run("FindOverdue sees only funded invoices past maturity", func(t *testing.T) {
		overdue, err := repo.FindOverdue(ctx, time.Now().Add(60*24*time.Hour))
		require.NoError(t, err)
		// Nothing is funded yet
		assert.Empty(t, overdue)
	})

	t.Run("CountByStatus", func(t *testing.T) {
		count, err := repo.CountByStatus(ctx, invoice.StatusPending)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, count, int64(2))
	})
}

// TestPoolRepository_Integration exercises pool and share holder persistence.
func TestPoolRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	repo := persistence.NewGormPoolRepository(testDB.DB)
	ctx := context.Background()

	t.Run("Get on empty database", func(t *testing.T) {
		_, err := repo.Get(ctx)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("Save and Get pool", func(t *testing.T) {
		p := pool.NewCapitalPool()
		holder := uuid.New()
		_, err := p.Deposit(valueobject.NewMoneyUSD(decimal.NewFromInt(100_000)), holder)
		require.NoError(t, err)
		p.ClearDomainEvents()
		require.NoError(t, repo.Save(ctx, p))

		found, err := repo.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, p.ID, found.ID)
		assert.Equal(t, "100000", found.TotalAssets.String())
		assert.Equal(t, "100000", found.LiquidBalance.String())
	})

	t.Run("Share holder round trip", func(t *testing.T) {
		account := uuid.New()
		h, err := pool.NewShareHolder(account)
		require.NoError(t, err)
		require.NoError(t, h.AddShares(decimal.NewFromInt(500)))
		require.NoError(t, repo.SaveShareHolder(ctx, h))

		found, err := repo.FindShareHolder(ctx, account)
		require.NoError(t, err)
		assert.Equal(t, "500", found.Shares.String())

		require.NoError(t, repo.DeleteShareHolder(ctx, h.ID))
		_, err = repo.FindShareHolder(ctx, account)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
