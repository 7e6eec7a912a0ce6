package funding

import (
	"testing"

	"github.com/google/uuid"
	"github.com/payflow/backend/internal/domain/shared"
	"github.com/payflow/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usd(amount float64) valueobject.Money {
	return valueobject.NewMoneyUSDFromFloat(amount)
}

func newTestRecord(t *testing.T) *FundingRecord {
	t.Helper()
	r, err := NewFundingRecord(uuid.New(), uuid.New(), usd(9958.90), usd(10_000))
	require.NoError(t, err)
	return r
}

// ============================================================
// Record creation
// ============================================================

func TestNewFundingRecord(t *testing.T) {
	t.Run("born funded with yield computed once", func(t *testing.T) {
		r := newTestRecord(t)

		assert.True(t, r.Funded)
		assert.False(t, r.Repaid)
		assert.Equal(t, "41.10", r.Yield().StringFixed(2))

		events := r.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, "FundingRecordFunded", events[0].EventType())
	})

	t.Run("validation failures", func(t *testing.T) {
		_, err := NewFundingRecord(uuid.Nil, uuid.New(), usd(100), usd(110))
		assert.Error(t, err)

		_, err = NewFundingRecord(uuid.New(), uuid.Nil, usd(100), usd(110))
		assert.Error(t, err)

		_, err = NewFundingRecord(uuid.New(), uuid.New(), usd(0), usd(110))
		assert.Error(t, err)

		// Funding above face value would make yield negative.
		_, err = NewFundingRecord(uuid.New(), uuid.New(), usd(120), usd(110))
		assert.Error(t, err)
	})
}

// ============================================================
// Settlement
// ============================================================

func TestFundingRecord_MarkRepaid(t *testing.T) {
	r := newTestRecord(t)

	require.NoError(t, r.MarkRepaid())
	assert.True(t, r.Repaid)
	assert.True(t, r.IsSettled())
	assert.NotNil(t, r.RepaidAt)

	// Second repayment is a state conflict, not a retryable error.
	assert.ErrorIs(t, r.MarkRepaid(), shared.ErrAlreadyRepaid)
}

func TestFundingRecord_MarkDefaulted(t *testing.T) {
	r := newTestRecord(t)

	require.NoError(t, r.MarkDefaulted())
	assert.True(t, r.Defaulted)
	assert.True(t, r.IsSettled())

	assert.Error(t, r.MarkDefaulted())
	assert.Error(t, r.MarkRepaid())
}

func TestFundingRecord_RepaidThenDefaultRejected(t *testing.T) {
	r := newTestRecord(t)
	require.NoError(t, r.MarkRepaid())
	assert.ErrorIs(t, r.MarkDefaulted(), shared.ErrAlreadyRepaid)
}

// ============================================================
// Ledger counters
// ============================================================

func TestLedger_Accounting(t *testing.T) {
	l := NewLedger()

	require.NoError(t, l.RecordFunding(usd(9958.90)))
	require.NoError(t, l.RecordFunding(usd(5000)))
	assert.Equal(t, int64(2), l.ActiveInvoices)
	assert.Equal(t, "14958.90", l.TotalFunded.StringFixed(2))

	require.NoError(t, l.RecordRepayment(usd(10_000), usd(41.10)))
	assert.Equal(t, int64(1), l.ActiveInvoices)
	assert.Equal(t, "10000.00", l.TotalRepaid.StringFixed(2))
	assert.Equal(t, "41.10", l.TotalYield.StringFixed(2))

	require.NoError(t, l.RecordDefault(usd(5000)))
	assert.Equal(t, int64(0), l.ActiveInvoices)
	assert.Equal(t, "5000.00", l.TotalDefaulted.StringFixed(2))

	// Counters cannot go negative.
	assert.ErrorIs(t, l.RecordRepayment(usd(1), usd(0)), shared.ErrInvalidState)
	assert.ErrorIs(t, l.RecordDefault(usd(1)), shared.ErrInvalidState)
}
