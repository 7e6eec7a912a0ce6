package treasury

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/payflow/backend/internal/domain/pool"
	"github.com/payflow/backend/internal/domain/shared"
	"github.com/payflow/backend/internal/domain/shared/valueobject"
	"github.com/payflow/backend/internal/domain/treasury"
	"github.com/payflow/backend/internal/infrastructure/strategyadapter"
	"github.com/payflow/backend/tests/testutil"
)

func operator() shared.Actor {
	return shared.Actor{ID: uuid.New(), Role: shared.RoleOperator}
}

type fixture struct {
	svc      *TreasuryService
	uow      *testutil.MemoryUnitOfWork
	registry *strategyadapter.Registry
	vault    *strategyadapter.SimulatedAdapter
	lending  *strategyadapter.SimulatedAdapter
}

// newFixture seeds a pool with liquid capital and registers two simulated
// strategies: vault (weight 70, instant) and lending (weight 30, delayed).
func newFixture(t *testing.T, liquidity int64) *fixture {
	t.Helper()
	uow := testutil.NewMemoryUnitOfWork()

	p := pool.NewCapitalPool()
	_, err := p.Deposit(valueobject.NewMoneyUSD(decimal.NewFromInt(liquidity)), uuid.New())
	require.NoError(t, err)
	p.ClearDomainEvents()
	uow.PoolRepo.Pool = p

	registry := strategyadapter.NewRegistry()
	vault := strategyadapter.NewSimulatedAdapter("vault", 500, true)
	lending := strategyadapter.NewSimulatedAdapter("lending", 800, false)
	registry.Register(vault)
	registry.Register(lending)

	svc := NewTreasuryService(uow, uow.TreasuryRepo, registry, AllocatorLimits{
		MaxStrategies:        10,
		SlippageToleranceBps: 50,
		RebalanceCooldown:    time.Hour,
	}, zap.NewNop())

	f := &fixture{svc: svc, uow: uow, registry: registry, vault: vault, lending: lending}

	_, err = svc.AddStrategy(context.Background(), operator(), AddStrategyRequest{Name: "vault", Weight: 70})
	require.NoError(t, err)
	_, err = svc.AddStrategy(context.Background(), operator(), AddStrategyRequest{Name: "lending", Weight: 30})
	require.NoError(t, err)
	return f
}

func TestTreasuryService_AddStrategy_RequiresRegisteredAdapter(t *testing.T) {
	f := newFixture(t, 1000)

	_, err := f.svc.AddStrategy(context.Background(), operator(), AddStrategyRequest{Name: "unknown", Weight: 10})
	require.Error(t, err)

	_, err = f.svc.AddStrategy(context.Background(), operator(), AddStrategyRequest{Name: "vault", Weight: 10})
	assert.ErrorIs(t, err, shared.ErrDuplicateStrategy)
}

func TestTreasuryService_AddStrategy_OperatorOnly(t *testing.T) {
	f := newFixture(t, 1000)
	prov := shared.Actor{ID: uuid.New(), Role: shared.RoleProvider}

	_, err := f.svc.AddStrategy(context.Background(), prov, AddStrategyRequest{Name: "vault", Weight: 10})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestTreasuryService_Deposit_SplitsByWeight(t *testing.T) {
	f := newFixture(t, 10_000)

	resp, err := f.svc.Deposit(context.Background(), operator(), MoveRequest{Amount: decimal.NewFromInt(10_000)})
	require.NoError(t, err)
	require.Len(t, resp.Allocations, 2)

	assert.True(t, f.vault.Balance().Equal(decimal.NewFromInt(7000)), "vault got %s", f.vault.Balance())
	assert.True(t, f.lending.Balance().Equal(decimal.NewFromInt(3000)), "lending got %s", f.lending.Balance())

	a := f.uow.TreasuryRepo.Allocator
	assert.True(t, a.IdleBalance.IsZero())
	assert.True(t, a.TrackedValue().Equal(decimal.NewFromInt(10_000)))

	p := f.uow.PoolRepo.Pool
	assert.True(t, p.TotalDeployedToTreasury.Equal(decimal.NewFromInt(10_000)))
	assert.True(t, p.LiquidBalance.IsZero())
	assert.NoError(t, p.CheckConservation())
	assert.Contains(t, f.uow.EventTypes(), "TreasuryDeployed")
	assert.Contains(t, f.uow.EventTypes(), "TreasuryDeposited")
}

func TestTreasuryService_Deposit_InsufficientLiquidity(t *testing.T) {
	f := newFixture(t, 100)

	_, err := f.svc.Deposit(context.Background(), operator(), MoveRequest{Amount: decimal.NewFromInt(500)})
	assert.ErrorIs(t, err, shared.ErrInsufficientLiquidity)
}

func TestTreasuryService_Withdraw_RoundTrip(t *testing.T) {
	f := newFixture(t, 10_000)

	_, err := f.svc.Deposit(context.Background(), operator(), MoveRequest{Amount: decimal.NewFromInt(10_000)})
	require.NoError(t, err)

	resp, err := f.svc.Withdraw(context.Background(), operator(), MoveRequest{Amount: decimal.NewFromInt(10_000)})
	require.NoError(t, err)

	assert.True(t, resp.Received.Equal(decimal.NewFromInt(10_000)))

	p := f.uow.PoolRepo.Pool
	assert.True(t, p.LiquidBalance.Equal(decimal.NewFromInt(10_000)))
	assert.True(t, p.TotalDeployedToTreasury.IsZero())
	assert.NoError(t, p.CheckConservation())

	a := f.uow.TreasuryRepo.Allocator
	assert.True(t, a.TrackedValue().IsZero())
}

func TestTreasuryService_Withdraw_SlippageLeavesProceedsIdle(t *testing.T) {
	f := newFixture(t, 10_000)

	_, err := f.svc.Deposit(context.Background(), operator(), MoveRequest{Amount: decimal.NewFromInt(10_000)})
	require.NoError(t, err)

	// Both adapters shave 2% while the tolerance is 0.5%.
	f.vault.WithdrawSlippageBps = 200
	f.lending.WithdrawSlippageBps = 200

	_, err = f.svc.Withdraw(context.Background(), operator(), MoveRequest{Amount: decimal.NewFromInt(10_000)})
	require.Error(t, err)

	var slippage *treasury.SlippageExceededError
	require.ErrorAs(t, err, &slippage)
	assert.True(t, slippage.Received.Equal(decimal.NewFromInt(9800)))

	// Proceeds are stranded in the idle balance and the pool is untouched.
	a := f.uow.TreasuryRepo.Allocator
	assert.True(t, a.IdleBalance.Equal(decimal.NewFromInt(9800)), "idle is %s", a.IdleBalance)

	p := f.uow.PoolRepo.Pool
	assert.True(t, p.TotalDeployedToTreasury.Equal(decimal.NewFromInt(10_000)))
	assert.True(t, p.LiquidBalance.IsZero())
}

func TestTreasuryService_Withdraw_IdleServedFirst(t *testing.T) {
	f := newFixture(t, 10_000)

	_, err := f.svc.Deposit(context.Background(), operator(), MoveRequest{Amount: decimal.NewFromInt(10_000)})
	require.NoError(t, err)

	// Strand everything in idle via a slippage rejection, then retry with a
	// raised tolerance: the retry must come entirely from idle.
	f.vault.WithdrawSlippageBps = 200
	f.lending.WithdrawSlippageBps = 200
	_, err = f.svc.Withdraw(context.Background(), operator(), MoveRequest{Amount: decimal.NewFromInt(10_000)})
	require.Error(t, err)

	resp, err := f.svc.Withdraw(context.Background(), operator(), MoveRequest{Amount: decimal.NewFromInt(9000)})
	require.NoError(t, err)
	assert.True(t, resp.FromIdle.Equal(decimal.NewFromInt(9000)))
	assert.Empty(t, resp.Allocations)
}

func TestTreasuryService_WithdrawAll_EmptyTreasury(t *testing.T) {
	f := newFixture(t, 1000)

	resp, err := f.svc.WithdrawAll(context.Background(), operator())
	require.NoError(t, err)
	assert.True(t, resp.Received.IsZero())
}

func TestTreasuryService_WithdrawAll_RoundTrip(t *testing.T) {
	f := newFixture(t, 10_000)

	_, err := f.svc.Deposit(context.Background(), operator(), MoveRequest{Amount: decimal.NewFromInt(10_000)})
	require.NoError(t, err)

	resp, err := f.svc.WithdrawAll(context.Background(), operator())
	require.NoError(t, err)
	assert.True(t, resp.Received.Equal(decimal.NewFromInt(10_000)))

	p := f.uow.PoolRepo.Pool
	assert.True(t, p.LiquidBalance.Equal(decimal.NewFromInt(10_000)))
	assert.True(t, p.TotalDeployedToTreasury.IsZero())
	assert.NoError(t, p.CheckConservation())

	a := f.uow.TreasuryRepo.Allocator
	assert.True(t, a.TrackedValue().IsZero())
	assert.True(t, f.vault.Balance().IsZero())
	assert.True(t, f.lending.Balance().IsZero())
}

func TestTreasuryService_WithdrawAll_ForwardsProceedsDespiteSlippage(t *testing.T) {
	f := newFixture(t, 10_000)

	_, err := f.svc.Deposit(context.Background(), operator(), MoveRequest{Amount: decimal.NewFromInt(10_000)})
	require.NoError(t, err)

	// Both adapters shave 2% on exit while the tolerance is 0.5%. A full
	// drain ignores the tolerance and books the shortfall on the pool.
	f.vault.WithdrawSlippageBps = 200
	f.lending.WithdrawSlippageBps = 200

	resp, err := f.svc.WithdrawAll(context.Background(), operator())
	require.NoError(t, err)
	assert.True(t, resp.Requested.Equal(decimal.NewFromInt(10_000)))
	assert.True(t, resp.Received.Equal(decimal.NewFromInt(9800)), "received %s", resp.Received)

	p := f.uow.PoolRepo.Pool
	assert.True(t, p.LiquidBalance.Equal(decimal.NewFromInt(9800)), "liquid is %s", p.LiquidBalance)
	assert.True(t, p.TotalDeployedToTreasury.IsZero(), "treasury bucket is %s", p.TotalDeployedToTreasury)
	assert.True(t, p.TotalAssets.Equal(decimal.NewFromInt(9800)))
	assert.NoError(t, p.CheckConservation())

	a := f.uow.TreasuryRepo.Allocator
	assert.True(t, a.TrackedValue().IsZero(), "nothing stays stranded, tracked %s", a.TrackedValue())
}

func TestTreasuryService_Harvest_RealizesYield(t *testing.T) {
	f := newFixture(t, 10_000)

	_, err := f.svc.Deposit(context.Background(), operator(), MoveRequest{Amount: decimal.NewFromInt(10_000)})
	require.NoError(t, err)

	f.vault.AccrueYield(decimal.NewFromInt(100))

	resp, err := f.svc.Harvest(context.Background(), operator(), "vault")
	require.NoError(t, err)
	assert.True(t, resp.Yield.Equal(decimal.NewFromInt(100)))

	p := f.uow.PoolRepo.Pool
	assert.True(t, p.TotalAssets.Equal(decimal.NewFromInt(10_100)))
	assert.True(t, p.TotalDeployedToTreasury.Equal(decimal.NewFromInt(10_100)))
	assert.NoError(t, p.CheckConservation())

	a := f.uow.TreasuryRepo.Allocator
	strat, ok := a.FindStrategy("vault")
	require.True(t, ok)
	assert.True(t, strat.Deposited.Equal(decimal.NewFromInt(7100)))
	assert.Contains(t, f.uow.EventTypes(), "YieldHarvested")
}

func TestTreasuryService_Rebalance_MovesTowardTargets(t *testing.T) {
	f := newFixture(t, 10_000)
	op := operator()

	_, err := f.svc.Deposit(context.Background(), op, MoveRequest{Amount: decimal.NewFromInt(10_000)})
	require.NoError(t, err)

	require.NoError(t, f.svc.SetWeight(context.Background(), op, "vault", SetWeightRequest{Weight: 50}))
	require.NoError(t, f.svc.SetWeight(context.Background(), op, "lending", SetWeightRequest{Weight: 50}))

	_, err = f.svc.Rebalance(context.Background(), op)
	require.NoError(t, err)

	a := f.uow.TreasuryRepo.Allocator
	vault, _ := a.FindStrategy("vault")
	lending, _ := a.FindStrategy("lending")
	assert.True(t, vault.Deposited.Equal(decimal.NewFromInt(5000)), "vault tracked %s", vault.Deposited)
	assert.True(t, lending.Deposited.Equal(decimal.NewFromInt(5000)), "lending tracked %s", lending.Deposited)
	assert.True(t, f.vault.Balance().Equal(decimal.NewFromInt(5000)))
	assert.True(t, f.lending.Balance().Equal(decimal.NewFromInt(5000)))
	assert.Contains(t, f.uow.EventTypes(), "TreasuryRebalanced")
}

func TestTreasuryService_Rebalance_FullDrainSendsDustToFirstActive(t *testing.T) {
	f := newFixture(t, 10_000)
	op := operator()

	_, err := f.svc.Deposit(context.Background(), op, MoveRequest{Amount: decimal.NewFromInt(10_000)})
	require.NoError(t, err)

	// Weights 1:2 make 10,000 split with a rounding remainder.
	require.NoError(t, f.svc.SetWeight(context.Background(), op, "vault", SetWeightRequest{Weight: 1}))
	require.NoError(t, f.svc.SetWeight(context.Background(), op, "lending", SetWeightRequest{Weight: 2}))

	_, err = f.svc.Rebalance(context.Background(), op)
	require.NoError(t, err)

	a := f.uow.TreasuryRepo.Allocator
	vault, _ := a.FindStrategy("vault")
	lending, _ := a.FindStrategy("lending")

	// 10,000/3 rounds down to 3333.33; the 0.01 of dust lands on the first
	// active strategy, so every cent stays deployed.
	assert.True(t, vault.Deposited.Equal(decimal.RequireFromString("3333.34")), "vault tracked %s", vault.Deposited)
	assert.True(t, lending.Deposited.Equal(decimal.RequireFromString("6666.66")), "lending tracked %s", lending.Deposited)
	assert.True(t, a.IdleBalance.IsZero(), "idle is %s", a.IdleBalance)
	assert.True(t, f.vault.Balance().Equal(decimal.RequireFromString("3333.34")))
	assert.True(t, f.lending.Balance().Equal(decimal.RequireFromString("6666.66")))
}

func TestTreasuryService_Rebalance_CooldownBlocksRepeat(t *testing.T) {
	f := newFixture(t, 10_000)
	op := operator()

	_, err := f.svc.Rebalance(context.Background(), op)
	require.NoError(t, err)

	_, err = f.svc.Rebalance(context.Background(), op)
	assert.ErrorIs(t, err, shared.ErrRebalanceCooldown)
}

func TestTreasuryService_RemoveStrategy_DrainsToPoolFirst(t *testing.T) {
	f := newFixture(t, 10_000)
	op := operator()

	_, err := f.svc.Deposit(context.Background(), op, MoveRequest{Amount: decimal.NewFromInt(10_000)})
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveStrategy(context.Background(), op, "vault"))

	a := f.uow.TreasuryRepo.Allocator
	_, ok := a.FindStrategy("vault")
	assert.False(t, ok)
	assert.True(t, a.IdleBalance.IsZero(), "idle is %s", a.IdleBalance)
	assert.True(t, f.vault.Balance().IsZero())

	// The drained capital is back in the pool, not parked in the allocator.
	p := f.uow.PoolRepo.Pool
	assert.True(t, p.LiquidBalance.Equal(decimal.NewFromInt(7000)), "liquid is %s", p.LiquidBalance)
	assert.True(t, p.TotalDeployedToTreasury.Equal(decimal.NewFromInt(3000)), "treasury bucket is %s", p.TotalDeployedToTreasury)
	assert.NoError(t, p.CheckConservation())
	assert.Contains(t, f.uow.EventTypes(), "StrategyRemoved")
	assert.Contains(t, f.uow.EventTypes(), "TreasuryReturned")
}

func TestTreasuryService_RemoveStrategy_DrainShortfallLandsOnPool(t *testing.T) {
	f := newFixture(t, 10_000)
	op := operator()

	_, err := f.svc.Deposit(context.Background(), op, MoveRequest{Amount: decimal.NewFromInt(10_000)})
	require.NoError(t, err)

	// 2% exit cost on the drained strategy.
	f.lending.WithdrawSlippageBps = 200

	require.NoError(t, f.svc.RemoveStrategy(context.Background(), op, "lending"))

	p := f.uow.PoolRepo.Pool
	assert.True(t, p.LiquidBalance.Equal(decimal.NewFromInt(2940)), "liquid is %s", p.LiquidBalance)
	assert.True(t, p.TotalDeployedToTreasury.Equal(decimal.NewFromInt(7000)))
	assert.True(t, p.TotalAssets.Equal(decimal.NewFromInt(9940)), "assets are %s", p.TotalAssets)
	assert.NoError(t, p.CheckConservation())
}

func TestTreasuryService_PauseStrategy_ExcludedFromDeposits(t *testing.T) {
	f := newFixture(t, 10_000)
	op := operator()

	require.NoError(t, f.svc.PauseStrategy(context.Background(), op, "lending"))

	_, err := f.svc.Deposit(context.Background(), op, MoveRequest{Amount: decimal.NewFromInt(1000)})
	require.NoError(t, err)

	assert.True(t, f.vault.Balance().Equal(decimal.NewFromInt(1000)))
	assert.True(t, f.lending.Balance().IsZero())
}

func TestTreasuryService_GetTreasury_ReportsWeightedAPY(t *testing.T) {
	f := newFixture(t, 1000)

	resp, err := f.svc.GetTreasury(context.Background())
	require.NoError(t, err)

	// 500 bps at weight 70 plus 800 bps at weight 30.
	assert.Equal(t, int64(590), resp.WeightedAPYBps)
	assert.Len(t, resp.Strategies, 2)
}

func TestTreasuryService_GetTreasury_InstantWithdrawableUsesAdapterCeiling(t *testing.T) {
	f := newFixture(t, 10_000)

	_, err := f.svc.Deposit(context.Background(), operator(), MoveRequest{Amount: decimal.NewFromInt(10_000)})
	require.NoError(t, err)

	// Vault (instant, 7000 deployed) advertises the full balance by default;
	// lending is non-instant and never counts.
	resp, err := f.svc.GetTreasury(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.InstantWithdrawable.Equal(decimal.NewFromInt(7000)), "instant %s", resp.InstantWithdrawable)

	// A tighter adapter ceiling wins over the tracked deposit.
	f.vault.InstantWithdrawLimit = decimal.NewFromInt(2000)

	resp, err = f.svc.GetTreasury(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.InstantWithdrawable.Equal(decimal.NewFromInt(2000)), "instant %s", resp.InstantWithdrawable)
}
