package invoice

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payflow/backend/internal/domain/invoice"
	"github.com/payflow/backend/internal/domain/shared"
	"github.com/payflow/backend/tests/testutil"
)

func newTestService() (*InvoiceService, *testutil.MemoryUnitOfWork) {
	uow := testutil.NewMemoryUnitOfWork()
	return NewInvoiceService(uow, uow.InvoiceRepo), uow
}

func testParties() (buyer, supplier shared.Actor) {
	return shared.Actor{ID: uuid.New(), Role: shared.RoleBuyer},
		shared.Actor{ID: uuid.New(), Role: shared.RoleSupplier}
}

func createRequest(buyer, supplier shared.Actor) CreateInvoiceRequest {
	return CreateInvoiceRequest{
		InvoiceNumber:   "INV-2024-001",
		Buyer:           buyer.ID,
		Supplier:        supplier.ID,
		FaceValue:       decimal.NewFromInt(10_000),
		DiscountRateBps: 500,
		MaturityDate:    time.Now().Add(30 * 24 * time.Hour),
	}
}

func TestInvoiceService_Create(t *testing.T) {
	svc, uow := newTestService()
	buyer, supplier := testParties()

	resp, err := svc.Create(context.Background(), supplier, createRequest(buyer, supplier))
	require.NoError(t, err)

	assert.Equal(t, "INV-2024-001", resp.InvoiceNumber)
	assert.Equal(t, invoice.StatusPending.String(), resp.Status)
	assert.True(t, resp.DiscountAmount.IsZero(), "economics are not computed before funding approval")
	assert.Contains(t, uow.EventTypes(), "InvoiceCreated")
}

func TestInvoiceService_Create_DuplicateNumber(t *testing.T) {
	svc, _ := newTestService()
	buyer, supplier := testParties()

	_, err := svc.Create(context.Background(), supplier, createRequest(buyer, supplier))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), supplier, createRequest(buyer, supplier))
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestInvoiceService_Create_SupplierMismatch(t *testing.T) {
	svc, _ := newTestService()
	buyer, supplier := testParties()
	stranger := shared.Actor{ID: uuid.New(), Role: shared.RoleSupplier}

	_, err := svc.Create(context.Background(), stranger, createRequest(buyer, supplier))
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestInvoiceService_Approve_BuyerOnly(t *testing.T) {
	svc, uow := newTestService()
	buyer, supplier := testParties()

	created, err := svc.Create(context.Background(), supplier, createRequest(buyer, supplier))
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), supplier, created.ID)
	assert.ErrorIs(t, err, shared.ErrUnauthorized)

	resp, err := svc.Approve(context.Background(), buyer, created.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusApproved.String(), resp.Status)
	assert.NotNil(t, resp.ApprovedAt)
	assert.Contains(t, uow.EventTypes(), "InvoiceApproved")
}

func TestInvoiceService_ApproveFunding_FreezesEconomics(t *testing.T) {
	svc, _ := newTestService()
	buyer, supplier := testParties()
	op := shared.Actor{ID: uuid.New(), Role: shared.RoleOperator}

	created, err := svc.Create(context.Background(), supplier, createRequest(buyer, supplier))
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), buyer, created.ID)
	require.NoError(t, err)

	resp, err := svc.ApproveFunding(context.Background(), op, created.ID)
	require.NoError(t, err)

	assert.Equal(t, invoice.StatusFundingApproved.String(), resp.Status)
	assert.True(t, resp.DiscountAmount.IsPositive())
	assert.True(t, resp.FundingAmount.Equal(resp.FaceValue.Sub(resp.DiscountAmount)))

	// 10,000 at 500 bps over at most 30 days stays right around 41.10.
	assert.True(t, resp.DiscountAmount.LessThanOrEqual(decimal.RequireFromString("41.10")))
	assert.True(t, resp.DiscountAmount.GreaterThan(decimal.RequireFromString("41.00")))
}

func TestInvoiceService_ApproveFunding_OperatorOnly(t *testing.T) {
	svc, _ := newTestService()
	buyer, supplier := testParties()

	created, err := svc.Create(context.Background(), supplier, createRequest(buyer, supplier))
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), buyer, created.ID)
	require.NoError(t, err)

	_, err = svc.ApproveFunding(context.Background(), buyer, created.ID)
	assert.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestInvoiceService_Cancel(t *testing.T) {
	svc, uow := newTestService()
	buyer, supplier := testParties()

	created, err := svc.Create(context.Background(), supplier, createRequest(buyer, supplier))
	require.NoError(t, err)

	resp, err := svc.Cancel(context.Background(), supplier, created.ID, CancelInvoiceRequest{Reason: "order withdrawn"})
	require.NoError(t, err)

	assert.Equal(t, invoice.StatusCancelled.String(), resp.Status)
	assert.Equal(t, "order withdrawn", resp.CancelReason)
	assert.Contains(t, uow.EventTypes(), "InvoiceCancelled")
}

func TestInvoiceService_List_FiltersByStatus(t *testing.T) {
	svc, _ := newTestService()
	buyer, supplier := testParties()
	ctx := context.Background()

	req := createRequest(buyer, supplier)
	created, err := svc.Create(ctx, supplier, req)
	require.NoError(t, err)

	req2 := req
	req2.InvoiceNumber = "INV-2024-002"
	_, err = svc.Create(ctx, supplier, req2)
	require.NoError(t, err)

	_, err = svc.Approve(ctx, buyer, created.ID)
	require.NoError(t, err)

	items, total, err := svc.List(ctx, InvoiceListFilter{Status: invoice.StatusPending.String()})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, "INV-2024-002", items[0].InvoiceNumber)
}

func TestInvoiceService_List_RejectsUnknownStatus(t *testing.T) {
	svc, _ := newTestService()

	_, _, err := svc.List(context.Background(), InvoiceListFilter{Status: "SHIPPED"})
	assert.Error(t, err)
}

func TestInvoiceService_Stats(t *testing.T) {
	svc, _ := newTestService()
	buyer, supplier := testParties()
	ctx := context.Background()

	created, err := svc.Create(ctx, supplier, createRequest(buyer, supplier))
	require.NoError(t, err)
	_, err = svc.Approve(ctx, buyer, created.ID)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Pending)
	assert.Equal(t, int64(1), stats.Approved)
}
