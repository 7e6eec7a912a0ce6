package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// Construction
// ============================================================

func TestNewMoney(t *testing.T) {
	tests := []struct {
		name     string
		amount   decimal.Decimal
		currency Currency
		wantErr  bool
	}{
		{
			name:     "valid USD amount",
			amount:   decimal.NewFromFloat(100.50),
			currency: USD,
			wantErr:  false,
		},
		{
			name:     "zero amount is valid",
			amount:   decimal.Zero,
			currency: USD,
			wantErr:  false,
		},
		{
			name:     "negative amount is valid",
			amount:   decimal.NewFromFloat(-42.00),
			currency: EUR,
			wantErr:  false,
		},
		{
			name:     "empty currency rejected",
			amount:   decimal.NewFromInt(1),
			currency: "",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMoney(tt.amount, tt.currency)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, m.Amount().Equal(tt.amount))
			assert.Equal(t, tt.currency, m.Currency())
		})
	}
}

func TestNewMoneyFromString(t *testing.T) {
	m, err := NewMoneyUSDFromString("9958.90")
	require.NoError(t, err)
	assert.Equal(t, "9958.90", m.StringFixed(2))

	_, err = NewMoneyUSDFromString("not-a-number")
	assert.Error(t, err)
}

// ============================================================
// Arithmetic
// ============================================================

func TestMoneyArithmetic(t *testing.T) {
	a := NewMoneyUSDFromFloat(100.00)
	b := NewMoneyUSDFromFloat(41.10)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "141.10", sum.StringFixed(2))

	diff, err := a.Subtract(b)
	require.NoError(t, err)
	assert.Equal(t, "58.90", diff.StringFixed(2))

	doubled := a.Multiply(decimal.NewFromInt(2))
	assert.Equal(t, "200.00", doubled.StringFixed(2))

	half, err := a.Divide(decimal.NewFromInt(2))
	require.NoError(t, err)
	assert.Equal(t, "50.00", half.StringFixed(2))

	_, err = a.Divide(decimal.Zero)
	assert.Error(t, err)
}

func TestMoneyCurrencyMismatch(t *testing.T) {
	usd := NewMoneyUSDFromFloat(10)
	eur, err := NewMoney(decimal.NewFromInt(10), EUR)
	require.NoError(t, err)

	_, err = usd.Add(eur)
	assert.Error(t, err)

	_, err = usd.Subtract(eur)
	assert.Error(t, err)

	_, err = usd.GreaterThan(eur)
	assert.Error(t, err)
}

// ============================================================
// Basis points
// ============================================================

func TestApplyBasisPoints(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		bps    int64
		want   string
	}{
		{
			name:   "500 bps of 10000",
			amount: 10_000,
			bps:    500,
			want:   "500.00",
		},
		{
			name:   "single basis point",
			amount: 10_000,
			bps:    1,
			want:   "1.00",
		},
		{
			name:   "zero bps",
			amount: 10_000,
			bps:    0,
			want:   "0.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMoneyUSDFromFloat(tt.amount)
			assert.Equal(t, tt.want, m.ApplyBasisPoints(tt.bps).StringFixed(2))
		})
	}
}

func TestMinusBasisPoints(t *testing.T) {
	// A 50 bps slippage floor on 1000 leaves 995.
	m := NewMoneyUSDFromFloat(1000)
	assert.Equal(t, "995.00", m.MinusBasisPoints(50).StringFixed(2))

	// Zero tolerance keeps the full amount.
	assert.True(t, m.MinusBasisPoints(0).Equals(m))
}

// ============================================================
// Comparison and predicates
// ============================================================

func TestMoneyComparison(t *testing.T) {
	small := NewMoneyUSDFromFloat(1)
	big := NewMoneyUSDFromFloat(2)

	lt, err := small.LessThan(big)
	require.NoError(t, err)
	assert.True(t, lt)

	gte, err := big.GreaterThanOrEqual(small)
	require.NoError(t, err)
	assert.True(t, gte)

	assert.True(t, ZeroUSD().IsZero())
	assert.True(t, small.IsPositive())
	assert.True(t, small.Negate().IsNegative())
	assert.True(t, small.Equals(NewMoneyUSDFromFloat(1)))
	assert.False(t, small.Equals(big))
}

// ============================================================
// Serialization
// ============================================================

func TestMoneyJSONRoundTrip(t *testing.T) {
	original := NewMoneyUSDFromFloat(9958.90)

	data, err := original.MarshalJSON()
	require.NoError(t, err)

	var decoded Money
	require.NoError(t, decoded.UnmarshalJSON(data))
	assert.True(t, original.Equals(decoded))
}

func TestMoneyScan(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan("123.45"))
	assert.Equal(t, "123.45", m.StringFixed(2))
	assert.Equal(t, SettlementCurrency, m.Currency())

	require.NoError(t, m.Scan(nil))
	assert.True(t, m.IsZero())

	assert.Error(t, m.Scan(42))
}
