package integration

import (
	"context"
	"testing"
	"time"

	fundingapp "github.com/payflow/backend/internal/application/funding"
	invoiceapp "github.com/payflow/backend/internal/application/invoice"
	poolapp "github.com/payflow/backend/internal/application/pool"
	"github.com/payflow/backend/internal/domain/invoice"
	"github.com/payflow/backend/internal/domain/shared"
	"github.com/payflow/backend/internal/infrastructure/cache"
	"github.com/payflow/backend/internal/infrastructure/event"
	"github.com/payflow/backend/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// lifecycleEnv wires the application services over a real database, the
// same way the server composition root does.
type lifecycleEnv struct {
	pools    *poolapp.PoolService
	invoices *invoiceapp.InvoiceService
	funding  *fundingapp.FundingService
}

func newLifecycleEnv(t *testing.T, testDB *TestDB) *lifecycleEnv {
	t.Helper()

	db := &persistence.Database{DB: testDB.DB}

	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	publisher := event.NewOutboxPublisher(serializer)
	uow := persistence.NewGormUnitOfWorkRunner(db, publisher)

	poolRepo := persistence.NewGormPoolRepository(testDB.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(testDB.DB)
	fundingRepo := persistence.NewGormFundingRepository(testDB.DB)

	return &lifecycleEnv{
		pools:    poolapp.NewPoolService(uow, poolRepo),
		invoices: invoiceapp.NewInvoiceService(uow, invoiceRepo),
		funding:  fundingapp.NewFundingService(uow, fundingRepo, cache.NewInMemoryIdempotencyStore(), zap.NewNop()),
	}
}

// TestFundingLifecycle_Integration drives an invoice from creation through
// repayment against a real PostgreSQL database and verifies that the pool,
// the ledger, and the holder balances all line up at the end.
func TestFundingLifecycle_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	env := newLifecycleEnv(t, testDB)
	ctx := context.Background()

	provider := shared.Actor{ID: uuid.New(), Role: shared.RoleProvider}
	buyerID := uuid.New()
	supplierID := uuid.New()
	buyer := shared.Actor{ID: buyerID, Role: shared.RoleBuyer}
	supplier := shared.Actor{ID: supplierID, Role: shared.RoleSupplier}
	operator := shared.Actor{ID: uuid.New(), Role: shared.RoleOperator}

	// Provider seeds the pool with 100,000
	dep, err := env.pools.Deposit(ctx, provider, poolapp.DepositRequest{
		Amount: decimal.NewFromInt(100_000),
	})
	require.NoError(t, err)
	assert.Equal(t, "100000", dep.SharesMinted.String())
	assert.Equal(t, "1", dep.SharePrice.String())

	// Supplier registers a 10,000 invoice at 500 bps maturing in 30 days
	inv, err := env.invoices.Create(ctx, supplier, invoiceapp.CreateInvoiceRequest{
		InvoiceNumber:   "INV-1001",
		Buyer:           buyerID,
		Supplier:        supplierID,
		FaceValue:       decimal.NewFromInt(10_000),
		DiscountRateBps: 500,
		MaturityDate:    time.Now().Add(30 * 24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, string(invoice.StatusPending), inv.Status)

	// Buyer acknowledges, operator approves funding; the discount is frozen
	// at approval: 10000 * 0.05 * 30/365 = 41.10
	_, err = env.invoices.Approve(ctx, buyer, inv.ID)
	require.NoError(t, err)
	approved, err := env.invoices.ApproveFunding(ctx, operator, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "41.10", approved.DiscountAmount.StringFixed(2))
	assert.Equal(t, "9958.90", approved.FundingAmount.StringFixed(2))

	// Supplier takes early payment
	rec, err := env.funding.FundInvoice(ctx, supplier, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "9958.90", rec.FundingAmount.StringFixed(2))
	assert.Equal(t, "41.10", rec.Yield.StringFixed(2))

	poolState, err := env.pools.GetPool(ctx)
	require.NoError(t, err)
	assert.Equal(t, "100000.00", poolState.TotalAssets.StringFixed(2))
	assert.Equal(t, "90041.10", poolState.LiquidBalance.StringFixed(2))
	assert.Equal(t, "9958.90", poolState.TotalDeployedToInvoices.StringFixed(2))

	// Funding is idempotent per invoice
	again, err := env.funding.FundInvoice(ctx, supplier, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, again.ID)

	// Buyer repays face value at maturity; the pool keeps the discount
	repaid, err := env.funding.Repay(ctx, buyer, inv.ID)
	require.NoError(t, err)
	assert.True(t, repaid.Repaid)

	poolState, err = env.pools.GetPool(ctx)
	require.NoError(t, err)
	assert.Equal(t, "100041.10", poolState.TotalAssets.StringFixed(2))
	assert.Equal(t, "100041.10", poolState.LiquidBalance.StringFixed(2))
	assert.Equal(t, "0.00", poolState.TotalDeployedToInvoices.StringFixed(2))

	invState, err := env.invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, string(invoice.StatusPaid), invState.Status)

	// The provider's shares appreciated by the realized yield
	holder, err := env.pools.GetShareHolder(ctx, provider.ID)
	require.NoError(t, err)
	assert.Equal(t, "100000", holder.Shares.String())
	assert.Equal(t, "100041.10", holder.Value.StringFixed(2))

	// Ledger counters reflect the full cycle
	ledger, err := env.funding.GetLedger(ctx)
	require.NoError(t, err)
	assert.Equal(t, "9958.90", ledger.TotalFunded.StringFixed(2))
	assert.Equal(t, "10000.00", ledger.TotalRepaid.StringFixed(2))
	assert.Equal(t, "41.10", ledger.TotalYield.StringFixed(2))
	assert.Equal(t, int64(0), ledger.ActiveInvoices)

	// Asset conservation holds after the full cycle
	conservation, err := env.pools.CheckConservation(ctx, operator)
	require.NoError(t, err)
	assert.True(t, conservation.Consistent)
}

// TestFundingLifecycle_Default_Integration verifies that a write-off reduces
// pool assets and closes the invoice as defaulted.
func TestFundingLifecycle_Default_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	env := newLifecycleEnv(t, testDB)
	ctx := context.Background()

	provider := shared.Actor{ID: uuid.New(), Role: shared.RoleProvider}
	buyerID := uuid.New()
	supplierID := uuid.New()
	buyer := shared.Actor{ID: buyerID, Role: shared.RoleBuyer}
	supplier := shared.Actor{ID: supplierID, Role: shared.RoleSupplier}
	operator := shared.Actor{ID: uuid.New(), Role: shared.RoleOperator}

	_, err := env.pools.Deposit(ctx, provider, poolapp.DepositRequest{
		Amount: decimal.NewFromInt(50_000),
	})
	require.NoError(t, err)

	inv, err := env.invoices.Create(ctx, supplier, invoiceapp.CreateInvoiceRequest{
		InvoiceNumber:   "INV-2001",
		Buyer:           buyerID,
		Supplier:        supplierID,
		FaceValue:       decimal.NewFromInt(10_000),
		DiscountRateBps: 500,
		MaturityDate:    time.Now().Add(30 * 24 * time.Hour),
	})
	require.NoError(t, err)

	_, err = env.invoices.Approve(ctx, buyer, inv.ID)
	require.NoError(t, err)
	_, err = env.invoices.ApproveFunding(ctx, operator, inv.ID)
	require.NoError(t, err)
	rec, err := env.funding.FundInvoice(ctx, supplier, inv.ID)
	require.NoError(t, err)

	// Only operators may write off
	_, err = env.funding.MarkDefaulted(ctx, buyer, inv.ID)
	require.Error(t, err)

	defaulted, err := env.funding.MarkDefaulted(ctx, operator, inv.ID)
	require.NoError(t, err)
	assert.True(t, defaulted.Defaulted)

	// Pool absorbed the loss of the deployed principal
	poolState, err := env.pools.GetPool(ctx)
	require.NoError(t, err)
	expected := decimal.NewFromInt(50_000).Sub(rec.FundingAmount)
	assert.Equal(t, expected.StringFixed(2), poolState.TotalAssets.StringFixed(2))
	assert.Equal(t, "0.00", poolState.TotalDeployedToInvoices.StringFixed(2))

	invState, err := env.invoices.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, string(invoice.StatusDefaulted), invState.Status)

	ledger, err := env.funding.GetLedger(ctx)
	require.NoError(t, err)
	assert.Equal(t, rec.FundingAmount.StringFixed(2), ledger.TotalDefaulted.StringFixed(2))

	conservation, err := env.pools.CheckConservation(ctx, operator)
	require.NoError(t, err)
	assert.True(t, conservation.Consistent)
}
