package invoice

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/payflow/backend/internal/domain/shared"
	"github.com/payflow/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	buyerID    = uuid.New()
	supplierID = uuid.New()

	operator = shared.Actor{ID: uuid.New(), Role: shared.RoleOperator}
	buyer    = shared.Actor{ID: buyerID, Role: shared.RoleBuyer}
	supplier = shared.Actor{ID: supplierID, Role: shared.RoleSupplier}
	stranger = shared.Actor{ID: uuid.New(), Role: shared.RoleBuyer}
)

func newTestInvoice(t *testing.T) *Invoice {
	t.Helper()
	inv, err := NewInvoice(
		"INV-2026-001",
		buyerID,
		supplierID,
		supplier,
		valueobject.NewMoneyUSDFromFloat(10_000),
		500,
		time.Now().Add(30*24*time.Hour),
	)
	require.NoError(t, err)
	return inv
}

// ============================================================
// Creation
// ============================================================

func TestNewInvoice(t *testing.T) {
	maturity := time.Now().Add(30 * 24 * time.Hour)

	tests := []struct {
		name    string
		number  string
		buyer   uuid.UUID
		supp    uuid.UUID
		creator shared.Actor
		face    valueobject.Money
		rate    int64
		matures time.Time
		wantErr bool
	}{
		{
			name:    "supplier creates a valid invoice",
			number:  "INV-001",
			buyer:   buyerID,
			supp:    supplierID,
			creator: supplier,
			face:    valueobject.NewMoneyUSDFromFloat(10_000),
			rate:    500,
			matures: maturity,
		},
		{
			name:    "operator may create on behalf of a supplier",
			number:  "INV-002",
			buyer:   buyerID,
			supp:    supplierID,
			creator: operator,
			face:    valueobject.NewMoneyUSDFromFloat(10_000),
			rate:    500,
			matures: maturity,
		},
		{
			name:    "empty invoice number",
			number:  "",
			buyer:   buyerID,
			supp:    supplierID,
			creator: supplier,
			face:    valueobject.NewMoneyUSDFromFloat(10_000),
			rate:    500,
			matures: maturity,
			wantErr: true,
		},
		{
			name:    "nil buyer",
			number:  "INV-003",
			buyer:   uuid.Nil,
			supp:    supplierID,
			creator: supplier,
			face:    valueobject.NewMoneyUSDFromFloat(10_000),
			rate:    500,
			matures: maturity,
			wantErr: true,
		},
		{
			name:    "buyer equals supplier",
			number:  "INV-004",
			buyer:   supplierID,
			supp:    supplierID,
			creator: supplier,
			face:    valueobject.NewMoneyUSDFromFloat(10_000),
			rate:    500,
			matures: maturity,
			wantErr: true,
		},
		{
			name:    "zero face value",
			number:  "INV-005",
			buyer:   buyerID,
			supp:    supplierID,
			creator: supplier,
			face:    valueobject.NewMoneyUSDFromFloat(0),
			rate:    500,
			matures: maturity,
			wantErr: true,
		},
		{
			name:    "zero rate",
			number:  "INV-006",
			buyer:   buyerID,
			supp:    supplierID,
			creator: supplier,
			face:    valueobject.NewMoneyUSDFromFloat(10_000),
			rate:    0,
			matures: maturity,
			wantErr: true,
		},
		{
			name:    "maturity in the past",
			number:  "INV-007",
			buyer:   buyerID,
			supp:    supplierID,
			creator: supplier,
			face:    valueobject.NewMoneyUSDFromFloat(10_000),
			rate:    500,
			matures: time.Now().Add(-time.Hour),
			wantErr: true,
		},
		{
			name:    "unrelated party cannot create",
			number:  "INV-008",
			buyer:   buyerID,
			supp:    supplierID,
			creator: stranger,
			face:    valueobject.NewMoneyUSDFromFloat(10_000),
			rate:    500,
			matures: maturity,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := NewInvoice(tt.number, tt.buyer, tt.supp, tt.creator, tt.face, tt.rate, tt.matures)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StatusPending, inv.Status)
			assert.True(t, inv.FundingAmount.IsZero())
			require.Len(t, inv.GetDomainEvents(), 1)
			assert.Equal(t, "InvoiceCreated", inv.GetDomainEvents()[0].EventType())
		})
	}
}

// ============================================================
// Discount computation
// ============================================================

func TestComputeDiscount(t *testing.T) {
	// 10,000 at 500 bps with 30 days to maturity:
	// 10,000 * 0.05 * 30/365 = 41.10
	face := decimal.NewFromInt(10_000)
	discount := ComputeDiscount(face, 500, 30*24*time.Hour)
	assert.Equal(t, "41.10", discount.StringFixed(2))
	assert.Equal(t, "9958.90", face.Sub(discount).StringFixed(2))
}

func TestApproveFunding_FreezesEconomics(t *testing.T) {
	inv := newTestInvoice(t)
	require.NoError(t, inv.Approve(buyer))

	now := inv.MaturityDate.Add(-30 * 24 * time.Hour)
	require.NoError(t, inv.ApproveFunding(operator, now))

	assert.Equal(t, StatusFundingApproved, inv.Status)
	assert.Equal(t, "41.10", inv.DiscountAmount.StringFixed(2))
	assert.Equal(t, "9958.90", inv.FundingAmount.StringFixed(2))
	assert.Equal(t, "41.10", inv.Yield().StringFixed(2))

	// The amount stays frozen even if execution happens later.
	frozen := inv.FundingAmount
	require.NoError(t, inv.MarkFunded(supplier))
	assert.True(t, inv.FundingAmount.Equal(frozen))
}

// ============================================================
// State machine
// ============================================================

func TestInvoice_Lifecycle(t *testing.T) {
	t.Run("happy path to paid", func(t *testing.T) {
		inv := newTestInvoice(t)

		require.NoError(t, inv.Approve(buyer))
		assert.Equal(t, StatusApproved, inv.Status)

		require.NoError(t, inv.ApproveFunding(operator, time.Now()))
		require.NoError(t, inv.MarkFunded(supplier))
		assert.Equal(t, StatusFunded, inv.Status)

		require.NoError(t, inv.MarkRepaid(buyer))
		assert.Equal(t, StatusPaid, inv.Status)
		assert.True(t, inv.Status.IsTerminal())
	})

	t.Run("operator may fund and settle", func(t *testing.T) {
		inv := newTestInvoice(t)
		require.NoError(t, inv.Approve(buyer))
		require.NoError(t, inv.ApproveFunding(operator, time.Now()))
		require.NoError(t, inv.MarkFunded(operator))
		require.NoError(t, inv.MarkRepaid(operator))
		assert.Equal(t, StatusPaid, inv.Status)
	})

	t.Run("default branch", func(t *testing.T) {
		inv := newTestInvoice(t)
		require.NoError(t, inv.Approve(buyer))
		require.NoError(t, inv.ApproveFunding(operator, time.Now()))
		require.NoError(t, inv.MarkFunded(supplier))

		require.NoError(t, inv.MarkDefaulted(operator))
		assert.Equal(t, StatusDefaulted, inv.Status)
	})

	t.Run("transitions out of order are rejected", func(t *testing.T) {
		inv := newTestInvoice(t)

		assert.ErrorIs(t, inv.ApproveFunding(operator, time.Now()), shared.ErrInvalidState)
		assert.ErrorIs(t, inv.MarkFunded(operator), shared.ErrInvalidState)
		assert.ErrorIs(t, inv.MarkRepaid(operator), shared.ErrInvalidState)
		assert.ErrorIs(t, inv.MarkDefaulted(operator), shared.ErrInvalidState)

		require.NoError(t, inv.Approve(buyer))
		assert.ErrorIs(t, inv.Approve(buyer), shared.ErrInvalidState)
	})
}

func TestInvoice_RoleGating(t *testing.T) {
	t.Run("only the buyer approves", func(t *testing.T) {
		inv := newTestInvoice(t)
		assert.ErrorIs(t, inv.Approve(supplier), shared.ErrUnauthorized)
		assert.ErrorIs(t, inv.Approve(operator), shared.ErrUnauthorized)
		assert.NoError(t, inv.Approve(buyer))
	})

	t.Run("only an operator approves funding", func(t *testing.T) {
		inv := newTestInvoice(t)
		require.NoError(t, inv.Approve(buyer))
		assert.ErrorIs(t, inv.ApproveFunding(buyer, time.Now()), shared.ErrUnauthorized)
		assert.ErrorIs(t, inv.ApproveFunding(supplier, time.Now()), shared.ErrUnauthorized)
	})

	t.Run("only supplier or operator requests funding", func(t *testing.T) {
		inv := newTestInvoice(t)
		require.NoError(t, inv.Approve(buyer))
		require.NoError(t, inv.ApproveFunding(operator, time.Now()))
		assert.ErrorIs(t, inv.MarkFunded(buyer), shared.ErrUnauthorized)
	})

	t.Run("only buyer or operator settles", func(t *testing.T) {
		inv := newTestInvoice(t)
		require.NoError(t, inv.Approve(buyer))
		require.NoError(t, inv.ApproveFunding(operator, time.Now()))
		require.NoError(t, inv.MarkFunded(supplier))
		assert.ErrorIs(t, inv.MarkRepaid(supplier), shared.ErrUnauthorized)
	})

	t.Run("only an operator marks default", func(t *testing.T) {
		inv := newTestInvoice(t)
		require.NoError(t, inv.Approve(buyer))
		require.NoError(t, inv.ApproveFunding(operator, time.Now()))
		require.NoError(t, inv.MarkFunded(supplier))
		assert.ErrorIs(t, inv.MarkDefaulted(buyer), shared.ErrUnauthorized)
	})
}

func TestInvoice_Cancel(t *testing.T) {
	t.Run("creator cancels while pending", func(t *testing.T) {
		inv := newTestInvoice(t)
		require.NoError(t, inv.Cancel(supplier, "duplicate entry"))
		assert.Equal(t, StatusCancelled, inv.Status)
		assert.Equal(t, "duplicate entry", inv.CancelReason)
	})

	t.Run("operator cancels while approved", func(t *testing.T) {
		inv := newTestInvoice(t)
		require.NoError(t, inv.Approve(buyer))
		require.NoError(t, inv.Cancel(operator, "buyer dispute"))
		assert.Equal(t, StatusCancelled, inv.Status)
	})

	t.Run("cannot cancel after funding approval", func(t *testing.T) {
		inv := newTestInvoice(t)
		require.NoError(t, inv.Approve(buyer))
		require.NoError(t, inv.ApproveFunding(operator, time.Now()))
		assert.ErrorIs(t, inv.Cancel(supplier, "too late"), shared.ErrInvalidState)
	})

	t.Run("unrelated party cannot cancel", func(t *testing.T) {
		inv := newTestInvoice(t)
		assert.ErrorIs(t, inv.Cancel(stranger, "nope"), shared.ErrUnauthorized)
	})
}

// ============================================================
// Overdue observation
// ============================================================

func TestInvoice_IsOverdue(t *testing.T) {
	inv := newTestInvoice(t)
	require.NoError(t, inv.Approve(buyer))
	require.NoError(t, inv.ApproveFunding(operator, time.Now()))

	// Not funded yet: never overdue regardless of clock.
	assert.False(t, inv.IsOverdue(inv.MaturityDate.Add(time.Hour)))

	require.NoError(t, inv.MarkFunded(supplier))
	assert.False(t, inv.IsOverdue(inv.MaturityDate.Add(-time.Hour)))
	assert.True(t, inv.IsOverdue(inv.MaturityDate.Add(time.Hour)))

	// Observation never mutates state.
	assert.Equal(t, StatusFunded, inv.Status)
}
