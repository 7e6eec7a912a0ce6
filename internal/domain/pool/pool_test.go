package pool

import (
	"testing"

	"github.com/google/uuid"
	"github.com/payflow/backend/internal/domain/shared"
	"github.com/payflow/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usd(amount float64) valueobject.Money {
	return valueobject.NewMoneyUSDFromFloat(amount)
}

func requireConservation(t *testing.T, p *CapitalPool) {
	t.Helper()
	require.NoError(t, p.CheckConservation())
}

// ============================================================
// Deposits
// ============================================================

func TestCapitalPool_Deposit(t *testing.T) {
	beneficiary := uuid.New()

	t.Run("first deposit mints 1:1", func(t *testing.T) {
		p := NewCapitalPool()

		shares, err := p.Deposit(usd(100_000), beneficiary)
		require.NoError(t, err)
		assert.True(t, shares.Equal(decimal.NewFromInt(100_000)))
		assert.True(t, p.TotalAssets.Equal(decimal.NewFromInt(100_000)))
		assert.True(t, p.TotalShares.Equal(decimal.NewFromInt(100_000)))
		assert.True(t, p.SharePrice().Equal(decimal.NewFromInt(1)))
		requireConservation(t, p)
	})

	t.Run("second deposit mints at prevailing share price", func(t *testing.T) {
		p := NewCapitalPool()
		_, err := p.Deposit(usd(1000), beneficiary)
		require.NoError(t, err)

		// Appreciate the pool so a share is worth 1.10.
		require.NoError(t, p.DeployForFunding(usd(500), uuid.New()))
		require.NoError(t, p.ReceiveRepayment(usd(500), usd(100), uuid.New()))

		shares, err := p.Deposit(usd(110), uuid.New())
		require.NoError(t, err)
		assert.Equal(t, "100", shares.String())
		requireConservation(t, p)
	})

	t.Run("validation failures", func(t *testing.T) {
		p := NewCapitalPool()

		_, err := p.Deposit(usd(0), beneficiary)
		assert.Error(t, err)

		_, err = p.Deposit(usd(-5), beneficiary)
		assert.Error(t, err)

		_, err = p.Deposit(usd(100), uuid.Nil)
		assert.Error(t, err)
	})

	t.Run("rejected while paused", func(t *testing.T) {
		p := NewCapitalPool()
		require.NoError(t, p.Pause())

		_, err := p.Deposit(usd(100), beneficiary)
		assert.ErrorIs(t, err, shared.ErrPoolPaused)
	})

	t.Run("emits a deposit event", func(t *testing.T) {
		p := NewCapitalPool()
		_, err := p.Deposit(usd(100), beneficiary)
		require.NoError(t, err)

		events := p.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, "PoolDeposited", events[0].EventType())
	})
}

// ============================================================
// Withdrawals
// ============================================================

func TestCapitalPool_Withdraw(t *testing.T) {
	beneficiary := uuid.New()

	setup := func(t *testing.T) (*CapitalPool, decimal.Decimal) {
		p := NewCapitalPool()
		shares, err := p.Deposit(usd(1000), beneficiary)
		require.NoError(t, err)
		return p, shares
	}

	t.Run("burns shares rounded up", func(t *testing.T) {
		p, shares := setup(t)

		burned, err := p.Withdraw(usd(300), beneficiary, shares)
		require.NoError(t, err)
		assert.True(t, burned.Equal(decimal.NewFromInt(300)))
		assert.True(t, p.TotalAssets.Equal(decimal.NewFromInt(700)))
		requireConservation(t, p)
	})

	t.Run("request exceeding liquidity is rejected in full", func(t *testing.T) {
		p, shares := setup(t)
		require.NoError(t, p.DeployForFunding(usd(800), uuid.New()))

		before := p.TotalAssets
		_, err := p.Withdraw(usd(300), beneficiary, shares)
		assert.ErrorIs(t, err, shared.ErrInsufficientLiquidity)
		assert.True(t, p.TotalAssets.Equal(before))
		requireConservation(t, p)
	})

	t.Run("owner cannot burn more shares than held", func(t *testing.T) {
		p, _ := setup(t)

		_, err := p.Withdraw(usd(500), beneficiary, decimal.NewFromInt(100))
		assert.ErrorIs(t, err, shared.ErrInsufficientShares)
	})

	t.Run("allowed while paused", func(t *testing.T) {
		p, shares := setup(t)
		require.NoError(t, p.Pause())

		_, err := p.Withdraw(usd(100), beneficiary, shares)
		assert.NoError(t, err)
	})
}

func TestCapitalPool_Redeem(t *testing.T) {
	beneficiary := uuid.New()

	t.Run("pays assets rounded down at share price", func(t *testing.T) {
		p := NewCapitalPool()
		shares, err := p.Deposit(usd(1000), beneficiary)
		require.NoError(t, err)

		// Appreciate: share price becomes 1.05.
		require.NoError(t, p.DeployForFunding(usd(500), uuid.New()))
		require.NoError(t, p.ReceiveRepayment(usd(500), usd(50), uuid.New()))

		out, err := p.Redeem(decimal.NewFromInt(100), beneficiary, shares)
		require.NoError(t, err)
		assert.Equal(t, "105.00", out.StringFixed(2))
		requireConservation(t, p)
	})

	t.Run("capped by available liquidity", func(t *testing.T) {
		p := NewCapitalPool()
		shares, err := p.Deposit(usd(1000), beneficiary)
		require.NoError(t, err)
		require.NoError(t, p.DeployForFunding(usd(900), uuid.New()))

		_, err = p.Redeem(shares, beneficiary, shares)
		assert.ErrorIs(t, err, shared.ErrInsufficientLiquidity)
	})

	t.Run("cannot redeem more shares than held", func(t *testing.T) {
		p := NewCapitalPool()
		shares, err := p.Deposit(usd(1000), beneficiary)
		require.NoError(t, err)

		_, err = p.Redeem(shares.Add(decimal.NewFromInt(1)), beneficiary, shares)
		assert.ErrorIs(t, err, shared.ErrInsufficientShares)
	})
}

// ============================================================
// Capital movement
// ============================================================

func TestCapitalPool_DeployAndRepay(t *testing.T) {
	beneficiary := uuid.New()
	invoiceID := uuid.New()

	t.Run("deploy moves liquid into the invoice bucket", func(t *testing.T) {
		p := NewCapitalPool()
		_, err := p.Deposit(usd(10_000), beneficiary)
		require.NoError(t, err)

		require.NoError(t, p.DeployForFunding(usd(9958.90), invoiceID))
		assert.Equal(t, "9958.9", p.TotalDeployedToInvoices.String())
		assert.Equal(t, "41.10", p.AvailableLiquidity().StringFixed(2))
		requireConservation(t, p)
	})

	t.Run("deploy fails on insufficient liquidity", func(t *testing.T) {
		p := NewCapitalPool()
		_, err := p.Deposit(usd(100), beneficiary)
		require.NoError(t, err)

		err = p.DeployForFunding(usd(200), invoiceID)
		assert.ErrorIs(t, err, shared.ErrInsufficientLiquidity)
	})

	t.Run("deploy rejected while paused", func(t *testing.T) {
		p := NewCapitalPool()
		_, err := p.Deposit(usd(100), beneficiary)
		require.NoError(t, err)
		require.NoError(t, p.Pause())

		assert.ErrorIs(t, p.DeployForFunding(usd(50), invoiceID), shared.ErrPoolPaused)
	})

	t.Run("repayment realizes yield into share price", func(t *testing.T) {
		p := NewCapitalPool()
		_, err := p.Deposit(usd(100_000), beneficiary)
		require.NoError(t, err)
		require.NoError(t, p.DeployForFunding(usd(9958.90), invoiceID))

		priceBefore := p.SharePrice()
		require.NoError(t, p.ReceiveRepayment(usd(9958.90), usd(41.10), invoiceID))

		assert.True(t, p.SharePrice().GreaterThan(priceBefore))
		assert.Equal(t, "100041.1", p.TotalAssets.String())
		assert.True(t, p.TotalDeployedToInvoices.IsZero())
		requireConservation(t, p)
	})

	t.Run("repayment principal cannot exceed deployed capital", func(t *testing.T) {
		p := NewCapitalPool()
		_, err := p.Deposit(usd(1000), beneficiary)
		require.NoError(t, err)
		require.NoError(t, p.DeployForFunding(usd(500), invoiceID))

		err = p.ReceiveRepayment(usd(600), usd(0), invoiceID)
		assert.Error(t, err)
	})

	t.Run("default writes off principal and lowers share price", func(t *testing.T) {
		p := NewCapitalPool()
		_, err := p.Deposit(usd(1000), beneficiary)
		require.NoError(t, err)
		require.NoError(t, p.DeployForFunding(usd(400), invoiceID))

		priceBefore := p.SharePrice()
		require.NoError(t, p.RecordDefault(usd(400), invoiceID))

		assert.True(t, p.SharePrice().LessThan(priceBefore))
		assert.True(t, p.TotalDeployedToInvoices.IsZero())
		requireConservation(t, p)
	})
}

func TestCapitalPool_Treasury(t *testing.T) {
	beneficiary := uuid.New()

	t.Run("deploy and full return preserves assets", func(t *testing.T) {
		p := NewCapitalPool()
		_, err := p.Deposit(usd(1000), beneficiary)
		require.NoError(t, err)

		require.NoError(t, p.DeployToTreasury(usd(600)))
		assert.Equal(t, "600", p.TotalDeployedToTreasury.String())
		requireConservation(t, p)

		require.NoError(t, p.ReturnFromTreasury(usd(600), usd(600)))
		assert.True(t, p.TotalDeployedToTreasury.IsZero())
		assert.Equal(t, "1000", p.TotalAssets.String())
		requireConservation(t, p)
	})

	t.Run("shortfall on return reduces total assets", func(t *testing.T) {
		p := NewCapitalPool()
		_, err := p.Deposit(usd(1000), beneficiary)
		require.NoError(t, err)
		require.NoError(t, p.DeployToTreasury(usd(600)))

		require.NoError(t, p.ReturnFromTreasury(usd(600), usd(594)))
		assert.Equal(t, "994", p.TotalAssets.String())
		requireConservation(t, p)
	})

	t.Run("surplus on return realizes yield", func(t *testing.T) {
		p := NewCapitalPool()
		_, err := p.Deposit(usd(1000), beneficiary)
		require.NoError(t, err)
		require.NoError(t, p.DeployToTreasury(usd(600)))

		require.NoError(t, p.ReturnFromTreasury(usd(600), usd(610)))
		assert.Equal(t, "1010", p.TotalAssets.String())
		requireConservation(t, p)
	})
}

// ============================================================
// Administration
// ============================================================

func TestCapitalPool_PauseUnpause(t *testing.T) {
	p := NewCapitalPool()

	require.NoError(t, p.Pause())
	assert.True(t, p.Paused)
	assert.NotNil(t, p.PausedAt)
	assert.Error(t, p.Pause())

	require.NoError(t, p.Unpause())
	assert.False(t, p.Paused)
	assert.Nil(t, p.PausedAt)
	assert.Error(t, p.Unpause())
}

// ============================================================
// Conservation across operation sequences
// ============================================================

func TestCapitalPool_ConservationSequence(t *testing.T) {
	p := NewCapitalPool()
	alice := uuid.New()
	bob := uuid.New()

	sharesA, err := p.Deposit(usd(50_000), alice)
	require.NoError(t, err)
	requireConservation(t, p)

	_, err = p.Deposit(usd(25_000), bob)
	require.NoError(t, err)
	requireConservation(t, p)

	inv := uuid.New()
	require.NoError(t, p.DeployForFunding(usd(20_000), inv))
	requireConservation(t, p)

	require.NoError(t, p.DeployToTreasury(usd(30_000)))
	requireConservation(t, p)

	_, err = p.Withdraw(usd(10_000), alice, sharesA)
	require.NoError(t, err)
	requireConservation(t, p)

	require.NoError(t, p.ReceiveRepayment(usd(20_000), usd(150), inv))
	requireConservation(t, p)

	require.NoError(t, p.ReturnFromTreasury(usd(30_000), usd(30_000)))
	requireConservation(t, p)
}

// ============================================================
// Share holders
// ============================================================

func TestShareHolder(t *testing.T) {
	holder, err := NewShareHolder(uuid.New())
	require.NoError(t, err)
	assert.True(t, holder.IsEmpty())

	require.NoError(t, holder.AddShares(decimal.NewFromInt(100)))
	assert.False(t, holder.IsEmpty())

	assert.ErrorIs(t, holder.BurnShares(decimal.NewFromInt(200)), shared.ErrInsufficientShares)
	require.NoError(t, holder.BurnShares(decimal.NewFromInt(100)))
	assert.True(t, holder.IsEmpty())

	_, err = NewShareHolder(uuid.Nil)
	assert.Error(t, err)
}
