package funding

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/payflow/backend/internal/domain/invoice"
	"github.com/payflow/backend/internal/domain/pool"
	"github.com/payflow/backend/internal/domain/shared"
	"github.com/payflow/backend/internal/domain/shared/valueobject"
	"github.com/payflow/backend/internal/infrastructure/cache"
	"github.com/payflow/backend/tests/testutil"
)

type fixture struct {
	svc      *FundingService
	uow      *testutil.MemoryUnitOfWork
	invoice  *invoice.Invoice
	operator shared.Actor
	buyer    shared.Actor
	supplier shared.Actor
}

// newFixture seeds a pool with 100,000 of liquidity and a funding-approved
// invoice over 10,000 face value at 500 bps maturing in 30 days
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	uow := testutil.NewMemoryUnitOfWork()

	op := shared.Actor{ID: uuid.New(), Role: shared.RoleOperator}
	buyer := shared.Actor{ID: uuid.New(), Role: shared.RoleBuyer}
	supplier := shared.Actor{ID: uuid.New(), Role: shared.RoleSupplier}

	p := pool.NewCapitalPool()
	_, err := p.Deposit(valueobject.NewMoneyUSD(decimal.NewFromInt(100_000)), uuid.New())
	require.NoError(t, err)
	p.ClearDomainEvents()
	uow.PoolRepo.Pool = p

	inv, err := invoice.NewInvoice(
		"INV-1001",
		buyer.ID,
		supplier.ID,
		supplier,
		valueobject.NewMoneyUSD(decimal.NewFromInt(10_000)),
		500,
		time.Now().Add(30*24*time.Hour),
	)
	require.NoError(t, err)
	require.NoError(t, inv.Approve(buyer))
	require.NoError(t, inv.ApproveFunding(op, time.Now()))
	inv.ClearDomainEvents()
	require.NoError(t, uow.InvoiceRepo.Save(ctx, inv))

	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	return &fixture{
		svc:      NewFundingService(uow, uow.FundingRepo, store, zap.NewNop()),
		uow:      uow,
		invoice:  inv,
		operator: op,
		buyer:    buyer,
		supplier: supplier,
	}
}

func TestFundingService_FundInvoice(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.FundInvoice(context.Background(), f.operator, f.invoice.ID)
	require.NoError(t, err)

	fundingAmount := f.invoice.FundingAmount
	require.True(t, fundingAmount.IsPositive())
	assert.True(t, resp.FundingAmount.Equal(fundingAmount))
	assert.True(t, resp.FaceValue.Equal(decimal.NewFromInt(10_000)))
	assert.True(t, resp.Yield.Equal(f.invoice.DiscountAmount))

	assert.Equal(t, invoice.StatusFunded, f.invoice.Status)

	p := f.uow.PoolRepo.Pool
	assert.True(t, p.TotalDeployedToInvoices.Equal(fundingAmount))
	assert.True(t, p.LiquidBalance.Equal(decimal.NewFromInt(100_000).Sub(fundingAmount)))
	assert.NoError(t, p.CheckConservation())

	ledger := f.uow.FundingRepo.Ledger
	require.NotNil(t, ledger)
	assert.True(t, ledger.TotalFunded.Equal(fundingAmount))
	assert.Equal(t, int64(1), ledger.ActiveInvoices)

	types := f.uow.EventTypes()
	assert.Contains(t, types, "InvoiceFunded")
	assert.Contains(t, types, "CapitalDeployed")
	assert.Contains(t, types, "FundingRecordFunded")
}

func TestFundingService_FundInvoice_Idempotent(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.FundInvoice(context.Background(), f.operator, f.invoice.ID)
	require.NoError(t, err)

	second, err := f.svc.FundInvoice(context.Background(), f.operator, f.invoice.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	// Capital deployed exactly once.
	p := f.uow.PoolRepo.Pool
	assert.True(t, p.TotalDeployedToInvoices.Equal(first.FundingAmount))
	assert.True(t, f.uow.FundingRepo.Ledger.TotalFunded.Equal(first.FundingAmount))
}

func TestFundingService_FundInvoice_RequiresFundingApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	buyer := shared.Actor{ID: uuid.New(), Role: shared.RoleBuyer}
	supplier := shared.Actor{ID: uuid.New(), Role: shared.RoleSupplier}
	inv, err := invoice.NewInvoice(
		"INV-1002",
		buyer.ID,
		supplier.ID,
		supplier,
		valueobject.NewMoneyUSD(decimal.NewFromInt(5000)),
		300,
		time.Now().Add(14*24*time.Hour),
	)
	require.NoError(t, err)
	require.NoError(t, f.uow.InvoiceRepo.Save(ctx, inv))

	_, err = f.svc.FundInvoice(ctx, f.operator, inv.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestFundingService_FundInvoice_SupplierMayTrigger(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.FundInvoice(context.Background(), f.supplier, f.invoice.ID)
	assert.NoError(t, err)
}

func TestFundingService_FundInvoice_BuyerMayNot(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.FundInvoice(context.Background(), f.buyer, f.invoice.ID)
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestFundingService_Repay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fundResp, err := f.svc.FundInvoice(ctx, f.operator, f.invoice.ID)
	require.NoError(t, err)

	resp, err := f.svc.Repay(ctx, f.buyer, f.invoice.ID)
	require.NoError(t, err)

	assert.True(t, resp.Repaid)
	assert.NotNil(t, resp.RepaidAt)
	assert.Equal(t, invoice.StatusPaid, f.invoice.Status)

	// The pool ends up with its principal back plus the realized discount.
	p := f.uow.PoolRepo.Pool
	expected := decimal.NewFromInt(100_000).Add(fundResp.Yield)
	assert.True(t, p.TotalAssets.Equal(expected), "assets %s, want %s", p.TotalAssets, expected)
	assert.True(t, p.TotalDeployedToInvoices.IsZero())
	assert.NoError(t, p.CheckConservation())

	ledger := f.uow.FundingRepo.Ledger
	assert.True(t, ledger.TotalRepaid.Equal(decimal.NewFromInt(10_000)))
	assert.True(t, ledger.TotalYield.Equal(fundResp.Yield))
	assert.Equal(t, int64(0), ledger.ActiveInvoices)

	types := f.uow.EventTypes()
	assert.Contains(t, types, "InvoicePaid")
	assert.Contains(t, types, "RepaymentReceived")
	assert.Contains(t, types, "FundingRecordRepaid")
}

func TestFundingService_Repay_SupplierMayNot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.FundInvoice(ctx, f.operator, f.invoice.ID)
	require.NoError(t, err)

	_, err = f.svc.Repay(ctx, f.supplier, f.invoice.ID)
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestFundingService_Repay_BeforeFundingFails(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Repay(context.Background(), f.buyer, f.invoice.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestFundingService_MarkDefaulted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fundResp, err := f.svc.FundInvoice(ctx, f.operator, f.invoice.ID)
	require.NoError(t, err)

	resp, err := f.svc.MarkDefaulted(ctx, f.operator, f.invoice.ID)
	require.NoError(t, err)

	assert.True(t, resp.Defaulted)
	assert.Equal(t, invoice.StatusDefaulted, f.invoice.Status)

	// The loss lands on the pool's total assets.
	p := f.uow.PoolRepo.Pool
	expected := decimal.NewFromInt(100_000).Sub(fundResp.FundingAmount)
	assert.True(t, p.TotalAssets.Equal(expected))
	assert.True(t, p.TotalDeployedToInvoices.IsZero())
	assert.NoError(t, p.CheckConservation())

	ledger := f.uow.FundingRepo.Ledger
	assert.True(t, ledger.TotalDefaulted.Equal(fundResp.FundingAmount))
	assert.Equal(t, int64(0), ledger.ActiveInvoices)

	types := f.uow.EventTypes()
	assert.Contains(t, types, "InvoiceDefaulted")
	assert.Contains(t, types, "DefaultRecorded")
	assert.Contains(t, types, "FundingRecordDefaulted")
}

func TestFundingService_MarkDefaulted_OperatorOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.FundInvoice(ctx, f.operator, f.invoice.ID)
	require.NoError(t, err)

	_, err = f.svc.MarkDefaulted(ctx, f.buyer, f.invoice.ID)
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestFundingService_ConfirmSettlement_Funding(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.ConfirmSettlement(context.Background(), f.operator, SettlementConfirmationRequest{
		PaymentID: "pay-7001",
		InvoiceID: f.invoice.ID,
		Direction: SettlementDirectionFunding,
		Amount:    f.invoice.FundingAmount,
		Currency:  "USD",
		Status:    SettlementStatusConfirmed,
	})
	require.NoError(t, err)

	assert.True(t, resp.FundingAmount.Equal(f.invoice.FundingAmount))
	assert.Equal(t, invoice.StatusFunded, f.invoice.Status)
}

func TestFundingService_ConfirmSettlement_Repayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.FundInvoice(ctx, f.operator, f.invoice.ID)
	require.NoError(t, err)

	resp, err := f.svc.ConfirmSettlement(ctx, f.operator, SettlementConfirmationRequest{
		PaymentID: "pay-7002",
		InvoiceID: f.invoice.ID,
		Direction: SettlementDirectionRepayment,
		Amount:    decimal.NewFromInt(10_000),
		Currency:  "USD",
		Status:    SettlementStatusConfirmed,
	})
	require.NoError(t, err)

	assert.True(t, resp.Repaid)
	assert.Equal(t, invoice.StatusPaid, f.invoice.Status)
}

func TestFundingService_ConfirmSettlement_AmountMismatchRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ConfirmSettlement(context.Background(), f.operator, SettlementConfirmationRequest{
		PaymentID: "pay-7003",
		InvoiceID: f.invoice.ID,
		Direction: SettlementDirectionFunding,
		Amount:    f.invoice.FundingAmount.Add(decimal.NewFromInt(1)),
		Currency:  "USD",
		Status:    SettlementStatusConfirmed,
	})
	assert.ErrorIs(t, err, shared.ErrSettlementMismatch)

	// Nothing moved.
	assert.True(t, f.uow.PoolRepo.Pool.TotalDeployedToInvoices.IsZero())
	assert.Equal(t, invoice.StatusFundingApproved, f.invoice.Status)
}

func TestFundingService_ConfirmSettlement_CurrencyMismatchRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ConfirmSettlement(context.Background(), f.operator, SettlementConfirmationRequest{
		PaymentID: "pay-7004",
		InvoiceID: f.invoice.ID,
		Direction: SettlementDirectionFunding,
		Amount:    f.invoice.FundingAmount,
		Currency:  "EUR",
		Status:    SettlementStatusConfirmed,
	})
	assert.ErrorIs(t, err, shared.ErrSettlementMismatch)
}

func TestFundingService_ConfirmSettlement_FailedTransferMutatesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fundResp, err := f.svc.FundInvoice(ctx, f.operator, f.invoice.ID)
	require.NoError(t, err)

	resp, err := f.svc.ConfirmSettlement(ctx, f.operator, SettlementConfirmationRequest{
		PaymentID: "pay-7005",
		InvoiceID: f.invoice.ID,
		Direction: SettlementDirectionRepayment,
		Amount:    decimal.NewFromInt(10_000),
		Currency:  "USD",
		Status:    SettlementStatusFailed,
		ErrorCode: "INSUFFICIENT_FUNDS",
	})
	require.NoError(t, err)

	assert.Equal(t, fundResp.ID, resp.ID)
	assert.False(t, resp.Repaid)
	assert.Equal(t, invoice.StatusFunded, f.invoice.Status)
}

func TestFundingService_GetLedger_EmptyLedgerReportsZeros(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.GetLedger(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.TotalFunded.IsZero())
	assert.Equal(t, int64(0), resp.ActiveInvoices)
}

func TestFundingService_ListRecords_SettledFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.FundInvoice(ctx, f.operator, f.invoice.ID)
	require.NoError(t, err)

	settled := false
	records, total, err := f.svc.ListRecords(ctx, RecordListFilter{Settled: &settled})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, records, 1)
	assert.Equal(t, f.invoice.ID, records[0].InvoiceID)

	_, err = f.svc.Repay(ctx, f.buyer, f.invoice.ID)
	require.NoError(t, err)

	_, total, err = f.svc.ListRecords(ctx, RecordListFilter{Settled: &settled})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}
