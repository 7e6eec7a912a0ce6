package treasury

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/payflow/backend/internal/domain"
	"github.com/payflow/backend/internal/domain/shared"
	"github.com/payflow/backend/internal/domain/shared/valueobject"
	"github.com/payflow/backend/internal/domain/treasury"
)

// AllocatorLimits carries the operational limits a freshly bootstrapped
// allocator is created with
type AllocatorLimits struct {
	MaxStrategies        int
	SlippageToleranceBps int64
	RebalanceCooldown    time.Duration
}

// TreasuryService orchestrates capital movement between the pool, the
// allocator's accounting, and the external strategy adapters. Accounting is
// always committed before adapters are invoked, so an adapter failure can
// strand funds in the allocator's idle balance but never lose track of them.
//
// The mutex serializes fund-moving operations: each one is a committed
// accounting step followed by adapter calls followed by a second committed
// step, and interleaving two of those sequences would corrupt the
// attribution.
type TreasuryService struct {
	uow          domain.UnitOfWorkRunner
	treasuryRepo treasury.Repository
	adapters     treasury.AdapterRegistry
	limits       AllocatorLimits
	logger       *zap.Logger

	mu sync.Mutex
}

// NewTreasuryService creates a new TreasuryService
func NewTreasuryService(
	uow domain.UnitOfWorkRunner,
	treasuryRepo treasury.Repository,
	adapters treasury.AdapterRegistry,
	limits AllocatorLimits,
	logger *zap.Logger,
) *TreasuryService {
	return &TreasuryService{
		uow:          uow,
		treasuryRepo: treasuryRepo,
		adapters:     adapters,
		limits:       limits,
		logger:       logger,
	}
}

// ===================== Requests and responses =====================

// AddStrategyRequest registers an external yield strategy
type AddStrategyRequest struct {
	Name   string `json:"name" binding:"required"`
	Weight int64  `json:"weight" binding:"required,gt=0"`
}

// SetWeightRequest changes a strategy's target allocation weight
type SetWeightRequest struct {
	Weight int64 `json:"weight" binding:"required,gt=0"`
}

// MoveRequest carries a treasury deposit or withdrawal amount
type MoveRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// AllocationResponse is one strategy's share of a capital movement
type AllocationResponse struct {
	StrategyName string          `json:"strategy_name"`
	Amount       decimal.Decimal `json:"amount"`
}

// StrategyResponse represents a registered strategy in API responses
type StrategyResponse struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Weight      int64           `json:"weight"`
	Deposited   decimal.Decimal `json:"deposited"`
	Active      bool            `json:"active"`
	Position    int             `json:"position"`
	APYBps      *int64          `json:"apy_bps,omitempty"`
	AddedAt     time.Time       `json:"added_at"`
	LastHarvest *time.Time      `json:"last_harvest,omitempty"`
}

// TreasuryResponse represents the allocator in API responses. LiveValue is
// the idle balance plus each adapter's live valuation at query time; it
// drifts above TrackedValue as yield accrues unharvested.
type TreasuryResponse struct {
	ID                   uuid.UUID          `json:"id"`
	IdleBalance          decimal.Decimal    `json:"idle_balance"`
	TrackedValue         decimal.Decimal    `json:"tracked_value"`
	LiveValue            decimal.Decimal    `json:"live_value"`
	InstantWithdrawable  decimal.Decimal    `json:"instant_withdrawable"`
	MaxStrategies        int                `json:"max_strategies"`
	SlippageToleranceBps int64              `json:"slippage_tolerance_bps"`
	RebalanceCooldown    string             `json:"rebalance_cooldown"`
	LastRebalance        *time.Time         `json:"last_rebalance,omitempty"`
	WeightedAPYBps       int64              `json:"weighted_apy_bps"`
	Strategies           []StrategyResponse `json:"strategies"`
	Version              int                `json:"version"`
}

// DepositResponse reports a completed treasury deployment
type DepositResponse struct {
	Amount      decimal.Decimal      `json:"amount"`
	Allocations []AllocationResponse `json:"allocations"`
}

// WithdrawResponse reports a completed treasury withdrawal
type WithdrawResponse struct {
	Requested   decimal.Decimal      `json:"requested"`
	Received    decimal.Decimal      `json:"received"`
	FromIdle    decimal.Decimal      `json:"from_idle"`
	Allocations []AllocationResponse `json:"allocations"`
}

// HarvestResponse reports a realized strategy yield
type HarvestResponse struct {
	StrategyName string          `json:"strategy_name"`
	LiveValue    decimal.Decimal `json:"live_value"`
	Yield        decimal.Decimal `json:"yield"`
}

// ===================== Registry management =====================

// AddStrategy registers a strategy. An adapter under the same name must
// already be resolvable, and its settlement asset must match the pool's.
// Operator only.
func (s *TreasuryService) AddStrategy(ctx context.Context, actor shared.Actor, req AddStrategyRequest) (*StrategyResponse, error) {
	if !actor.IsOperator() {
		return nil, shared.ErrForbidden
	}
	adapter, ok := s.adapters.Resolve(req.Name)
	if !ok {
		return nil, shared.NewDomainError("ADAPTER_NOT_REGISTERED", "No adapter is registered under this strategy name")
	}

	var resp *StrategyResponse
	err := s.uow.Execute(ctx, func(uow domain.UnitOfWork) error {
		a, err := s.getOrCreate(ctx, uow)
		if err != nil {
			return err
		}
		strat, err := a.AddStrategy(req.Name, req.Weight, adapter.Asset())
		if err != nil {
			return err
		}
		if err := s.save(ctx, uow, a); err != nil {
			return err
		}
		resp = toStrategyResponse(strat, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// RemoveStrategy drains a strategy through its adapter, returns the proceeds
// to the pool, and deletes the registration. No slippage gate applies: a
// drain shortfall lands on the pool's books immediately. Operator only.
func (s *TreasuryService) RemoveStrategy(ctx context.Context, actor shared.Actor, name string) error {
	if !actor.IsOperator() {
		return shared.ErrForbidden
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// Step 1: release the strategy's tracked balance before touching the
	// adapter.
	var deposited decimal.Decimal
	err := s.uow.Execute(ctx, func(uow domain.UnitOfWork) error {
		a, err := uow.Treasury().Get(ctx)
		if err != nil {
			return err
		}
		strat, ok := a.FindStrategy(name)
		if !ok {
			return shared.ErrUnknownStrategy
		}
		deposited = strat.Deposited
		if deposited.IsPositive() {
			plan := treasury.WithdrawalPlan{
				Allocations: []treasury.Allocation{{StrategyName: name, Amount: deposited}},
			}
			if err := a.ApplyWithdrawalPlan(plan); err != nil {
				return err
			}
			return uow.Treasury().Save(ctx, a)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Step 2: drain the adapter.
	received := decimal.Zero
	if deposited.IsPositive() {
		adapter, ok := s.adapters.Resolve(name)
		if !ok {
			return shared.NewDomainError("ADAPTER_NOT_REGISTERED", "No adapter is registered under this strategy name")
		}
		proceeds, err := adapter.WithdrawAll(ctx)
		if err != nil {
			s.logger.Error("Strategy drain failed; tracked balance already released",
				zap.String("strategy", name),
				zap.String("deposited", deposited.String()),
				zap.Error(err))
		} else {
			received = proceeds.Amount()
		}
	}

	// Step 3: forward the proceeds to the pool and delete the registration.
	return s.uow.Execute(ctx, func(uow domain.UnitOfWork) error {
		a, err := uow.Treasury().Get(ctx)
		if err != nil {
			return err
		}
		if err := a.RemoveStrategy(name); err != nil {
			return err
		}

		if deposited.IsPositive() {
			p, err := uow.Pools().Get(ctx)
			if err != nil {
				return err
			}
			if err := p.ReturnFromTreasury(valueobject.NewMoneyUSD(deposited), valueobject.NewMoneyUSD(received)); err != nil {
				return err
			}
			if err := uow.Pools().Save(ctx, p); err != nil {
				return err
			}
			if err := uow.SaveEvents(ctx, p.GetDomainEvents()...); err != nil {
				return err
			}
			p.ClearDomainEvents()
		}
		return s.save(ctx, uow, a)
	})
}

// SetWeight changes a strategy's target weight without moving funds.
// Operator only.
func (s *TreasuryService) SetWeight(ctx context.Context, actor shared.Actor, name string, req SetWeightRequest) error {
	return s.administer(ctx, actor, func(a *treasury.Allocator) error {
		return a.SetWeight(name, req.Weight)
	})
}

// PauseStrategy excludes a strategy from new deposits. Operator only.
func (s *TreasuryService) PauseStrategy(ctx context.Context, actor shared.Actor, name string) error {
	return s.administer(ctx, actor, func(a *treasury.Allocator) error {
		return a.PauseStrategy(name)
	})
}

// UnpauseStrategy restores a strategy's deposit eligibility. Operator only.
func (s *TreasuryService) UnpauseStrategy(ctx context.Context, actor shared.Actor, name string) error {
	return s.administer(ctx, actor, func(a *treasury.Allocator) error {
		return a.UnpauseStrategy(name)
	})
}

func (s *TreasuryService) administer(ctx context.Context, actor shared.Actor, op func(*treasury.Allocator) error) error {
	if !actor.IsOperator() {
		return shared.ErrForbidden
	}
	return s.uow.Execute(ctx, func(uow domain.UnitOfWork) error {
		a, err := uow.Treasury().Get(ctx)
		if err != nil {
			return err
		}
		if err := op(a); err != nil {
			return err
		}
		return s.save(ctx, uow, a)
	})
}

// ===================== Capital movement =====================

// Deposit moves pool liquidity into the treasury and pushes it to strategies
// according to their weights. The pool and allocator accounting commits
// before any adapter is called; a failed adapter deposit leaves that
// allocation in the idle balance. Operator only.
func (s *TreasuryService) Deposit(ctx context.Context, actor shared.Actor, req MoveRequest) (*DepositResponse, error) {
	if !actor.IsOperator() {
		return nil, shared.ErrForbidden
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	amount := valueobject.NewMoneyUSD(req.Amount)

	var plan []treasury.Allocation
	err := s.uow.Execute(ctx, func(uow domain.UnitOfWork) error {
		p, err := uow.Pools().Get(ctx)
		if err != nil {
			return err
		}
		if err := p.DeployToTreasury(amount); err != nil {
			return err
		}

		a, err := s.getOrCreate(ctx, uow)
		if err != nil {
			return err
		}
		plan, err = a.PlanDeposit(amount.Amount())
		if err != nil {
			return err
		}
		if err := a.ApplyDepositPlan(amount.Amount(), plan); err != nil {
			return err
		}

		if err := uow.Pools().Save(ctx, p); err != nil {
			return err
		}
		if err := uow.Treasury().Save(ctx, a); err != nil {
			return err
		}
		if err := uow.SaveEvents(ctx, append(p.GetDomainEvents(), a.GetDomainEvents()...)...); err != nil {
			return err
		}
		p.ClearDomainEvents()
		a.ClearDomainEvents()
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, alloc := range plan {
		if err := s.pushToStrategy(ctx, alloc); err != nil {
			s.logger.Warn("Strategy deposit failed; allocation retained in idle balance",
				zap.String("strategy", alloc.StrategyName),
				zap.String("amount", alloc.Amount.String()),
				zap.Error(err))
		}
	}

	return &DepositResponse{
		Amount:      amount.Amount(),
		Allocations: toAllocationResponses(plan),
	}, nil
}

// pushToStrategy executes one deposit leg. On adapter failure the leg's
// attribution is rolled back into the idle balance in a fresh transaction.
func (s *TreasuryService) pushToStrategy(ctx context.Context, alloc treasury.Allocation) error {
	adapter, ok := s.adapters.Resolve(alloc.StrategyName)
	if !ok {
		return shared.NewDomainError("ADAPTER_NOT_REGISTERED", "No adapter is registered under this strategy name")
	}
	err := adapter.Deposit(ctx, valueobject.NewMoneyUSD(alloc.Amount))
	if err == nil {
		return nil
	}

	compErr := s.uow.Execute(ctx, func(uow domain.UnitOfWork) error {
		a, getErr := uow.Treasury().Get(ctx)
		if getErr != nil {
			return getErr
		}
		plan := treasury.WithdrawalPlan{
			Allocations: []treasury.Allocation{alloc},
		}
		if applyErr := a.ApplyWithdrawalPlan(plan); applyErr != nil {
			return applyErr
		}
		a.AbsorbProceeds(alloc.Amount)
		return uow.Treasury().Save(ctx, a)
	})
	if compErr != nil {
		s.logger.Error("Failed to reattribute failed deposit leg to idle balance",
			zap.String("strategy", alloc.StrategyName),
			zap.String("amount", alloc.Amount.String()),
			zap.Error(compErr))
	}
	return err
}

// Withdraw pulls capital out of the treasury back into the pool, draining
// the idle balance first, then instant-capable strategies, then the rest.
// If the realized proceeds fall below the slippage floor, the proceeds stay
// in the idle balance, the pool is not credited, and the slippage error is
// returned; the partial state is consistent and the operator may retry.
// Operator only.
func (s *TreasuryService) Withdraw(ctx context.Context, actor shared.Actor, req MoveRequest) (*WithdrawResponse, error) {
	if !actor.IsOperator() {
		return nil, shared.ErrForbidden
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withdraw(ctx, req.Amount)
}

// WithdrawAll drains every strategy unconditionally and forwards whatever
// was realized back into the pool. Unlike Withdraw, no slippage gate applies:
// on a full exit the shortfall lands on the pool's books as-is. Operator
// only.
func (s *TreasuryService) WithdrawAll(ctx context.Context, actor shared.Actor) (*WithdrawResponse, error) {
	if !actor.IsOperator() {
		return nil, shared.ErrForbidden
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// Step 1: release every tracked attribution.
	var plan treasury.WithdrawalPlan
	err := s.uow.Execute(ctx, func(uow domain.UnitOfWork) error {
		a, err := uow.Treasury().Get(ctx)
		if err != nil {
			return err
		}
		plan = a.PlanFullWithdrawal()
		if !plan.Total().IsPositive() {
			return nil
		}
		if err := a.ApplyWithdrawalPlan(plan); err != nil {
			return err
		}
		return uow.Treasury().Save(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	tracked := plan.Total()
	if !tracked.IsPositive() {
		return &WithdrawResponse{Requested: decimal.Zero, Received: decimal.Zero, FromIdle: decimal.Zero}, nil
	}

	// Step 2: drain every adapter completely.
	received := plan.FromIdle
	for _, alloc := range plan.Allocations {
		adapter, ok := s.adapters.Resolve(alloc.StrategyName)
		if !ok {
			s.logger.Error("No adapter for drained strategy",
				zap.String("strategy", alloc.StrategyName))
			continue
		}
		got, err := adapter.WithdrawAll(ctx)
		if err != nil {
			s.logger.Error("Strategy drain failed",
				zap.String("strategy", alloc.StrategyName),
				zap.String("tracked", alloc.Amount.String()),
				zap.Error(err))
			continue
		}
		received = received.Add(got.Amount())
	}

	// Step 3: forward the realized total to the pool.
	err = s.uow.Execute(ctx, func(uow domain.UnitOfWork) error {
		a, err := uow.Treasury().Get(ctx)
		if err != nil {
			return err
		}
		a.RecordWithdrawalOutcome(tracked, received, plan)

		p, err := uow.Pools().Get(ctx)
		if err != nil {
			return err
		}
		if err := p.ReturnFromTreasury(valueobject.NewMoneyUSD(tracked), valueobject.NewMoneyUSD(received)); err != nil {
			return err
		}

		if err := uow.Treasury().Save(ctx, a); err != nil {
			return err
		}
		if err := uow.Pools().Save(ctx, p); err != nil {
			return err
		}
		if err := uow.SaveEvents(ctx, append(a.GetDomainEvents(), p.GetDomainEvents()...)...); err != nil {
			return err
		}
		a.ClearDomainEvents()
		p.ClearDomainEvents()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &WithdrawResponse{
		Requested:   tracked,
		Received:    received,
		FromIdle:    plan.FromIdle,
		Allocations: toAllocationResponses(plan.Allocations),
	}, nil
}

func (s *TreasuryService) withdraw(ctx context.Context, amount decimal.Decimal) (*WithdrawResponse, error) {
	// Step 1: plan against tracked balances and commit the attribution
	// release.
	var plan treasury.WithdrawalPlan
	err := s.uow.Execute(ctx, func(uow domain.UnitOfWork) error {
		a, err := uow.Treasury().Get(ctx)
		if err != nil {
			return err
		}
		plan, err = a.PlanWithdrawal(amount, s.instantCapability(a))
		if err != nil {
			return err
		}
		if err := a.ApplyWithdrawalPlan(plan); err != nil {
			return err
		}
		return uow.Treasury().Save(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	// Step 2: execute the strategy legs. A failed leg contributes nothing;
	// the shortfall surfaces through the slippage check.
	received := plan.FromIdle
	for _, alloc := range plan.Allocations {
		adapter, ok := s.adapters.Resolve(alloc.StrategyName)
		if !ok {
			s.logger.Error("No adapter for planned withdrawal leg",
				zap.String("strategy", alloc.StrategyName))
			continue
		}
		got, err := adapter.Withdraw(ctx, valueobject.NewMoneyUSD(alloc.Amount))
		if err != nil {
			s.logger.Error("Strategy withdrawal failed",
				zap.String("strategy", alloc.StrategyName),
				zap.String("amount", alloc.Amount.String()),
				zap.Error(err))
			continue
		}
		received = received.Add(got.Amount())
	}

	// Step 3: absorb proceeds, check slippage, and either forward to the
	// pool or leave the funds idle.
	tracked := plan.Total()
	var slippageErr error
	err = s.uow.Execute(ctx, func(uow domain.UnitOfWork) error {
		a, err := uow.Treasury().Get(ctx)
		if err != nil {
			return err
		}
		// Strategy-side proceeds; the idle portion was released when the
		// plan was applied and never touched an adapter.
		proceeds := received.Sub(plan.FromIdle)
		if proceeds.IsPositive() {
			a.AbsorbProceeds(proceeds)
		}

		if err := a.CheckSlippage(amount, received); err != nil {
			// Proceeds stay idle, and the idle leg returns to where it
			// came from. Commit that state and surface the rejection.
			if plan.FromIdle.IsPositive() {
				a.AbsorbProceeds(plan.FromIdle)
			}
			slippageErr = err
			return uow.Treasury().Save(ctx, a)
		}

		if proceeds.IsPositive() {
			if err := a.ReleaseIdle(proceeds); err != nil {
				return err
			}
		}
		a.RecordWithdrawalOutcome(amount, received, plan)

		p, err := uow.Pools().Get(ctx)
		if err != nil {
			return err
		}
		if err := p.ReturnFromTreasury(valueobject.NewMoneyUSD(tracked), valueobject.NewMoneyUSD(received)); err != nil {
			return err
		}

		if err := uow.Treasury().Save(ctx, a); err != nil {
			return err
		}
		if err := uow.Pools().Save(ctx, p); err != nil {
			return err
		}
		if err := uow.SaveEvents(ctx, append(a.GetDomainEvents(), p.GetDomainEvents()...)...); err != nil {
			return err
		}
		a.ClearDomainEvents()
		p.ClearDomainEvents()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if slippageErr != nil {
		return nil, slippageErr
	}

	return &WithdrawResponse{
		Requested:   amount,
		Received:    received,
		FromIdle:    plan.FromIdle,
		Allocations: toAllocationResponses(plan.Allocations),
	}, nil
}

// Rebalance pulls everything out of every strategy into the allocator's own
// balance, then redistributes the absorbed total with the same weighted
// algorithm deposits use, dust included. Guarded by the rebalance cooldown.
// Operator only.
func (s *TreasuryService) Rebalance(ctx context.Context, actor shared.Actor) (*TreasuryResponse, error) {
	if !actor.IsOperator() {
		return nil, shared.ErrForbidden
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	// Step 1: commit the full drain. Idle funds stay where they are; only
	// the strategy legs touch adapters.
	var withdrawals []treasury.Allocation
	err := s.uow.Execute(ctx, func(uow domain.UnitOfWork) error {
		a, err := uow.Treasury().Get(ctx)
		if err != nil {
			return err
		}
		if !a.CanRebalance(now) {
			return shared.ErrRebalanceCooldown
		}
		withdrawals = a.PlanFullWithdrawal().Allocations
		if len(withdrawals) == 0 {
			return nil
		}
		if err := a.ApplyWithdrawalPlan(treasury.WithdrawalPlan{Allocations: withdrawals}); err != nil {
			return err
		}
		return uow.Treasury().Save(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	// Step 2: drain every adapter completely.
	received := decimal.Zero
	for _, alloc := range withdrawals {
		adapter, ok := s.adapters.Resolve(alloc.StrategyName)
		if !ok {
			continue
		}
		got, err := adapter.WithdrawAll(ctx)
		if err != nil {
			s.logger.Error("Rebalance drain failed",
				zap.String("strategy", alloc.StrategyName),
				zap.Error(err))
			continue
		}
		received = received.Add(got.Amount())
	}

	// Step 3: absorb proceeds, redistribute the whole idle balance with the
	// deposit algorithm, and start the cooldown.
	var deposits []treasury.Allocation
	err = s.uow.Execute(ctx, func(uow domain.UnitOfWork) error {
		a, err := uow.Treasury().Get(ctx)
		if err != nil {
			return err
		}
		if received.IsPositive() {
			a.AbsorbProceeds(received)
		}
		if a.IdleBalance.IsPositive() {
			deposits, err = a.PlanDeposit(a.IdleBalance)
			if err != nil {
				return err
			}
			if err := a.ApplyDepositPlan(decimal.Zero, deposits); err != nil {
				return err
			}
		}
		a.MarkRebalanced(now)
		return s.save(ctx, uow, a)
	})
	if err != nil {
		return nil, err
	}

	// Step 4: execute the deposit legs.
	for _, alloc := range deposits {
		if err := s.pushToStrategy(ctx, alloc); err != nil {
			s.logger.Warn("Rebalance deposit failed; allocation retained in idle balance",
				zap.String("strategy", alloc.StrategyName),
				zap.Error(err))
		}
	}

	return s.GetTreasury(ctx)
}

// Harvest realizes the difference between a strategy's live valuation and
// its tracked balance. A gain raises the pool's total assets; a loss writes
// the shortfall down. Operator only.
func (s *TreasuryService) Harvest(ctx context.Context, actor shared.Actor, name string) (*HarvestResponse, error) {
	if !actor.IsOperator() {
		return nil, shared.ErrForbidden
	}
	adapter, ok := s.adapters.Resolve(name)
	if !ok {
		return nil, shared.NewDomainError("ADAPTER_NOT_REGISTERED", "No adapter is registered under this strategy name")
	}
	live, err := adapter.TotalValue(ctx)
	if err != nil {
		return nil, err
	}

	var resp *HarvestResponse
	err = s.uow.Execute(ctx, func(uow domain.UnitOfWork) error {
		a, err := uow.Treasury().Get(ctx)
		if err != nil {
			return err
		}
		yield, err := a.Harvest(name, live.Amount())
		if err != nil {
			return err
		}

		if !yield.IsZero() {
			p, err := uow.Pools().Get(ctx)
			if err != nil {
				return err
			}
			if yield.IsPositive() {
				err = p.RealizeTreasuryYield(valueobject.NewMoneyUSD(yield))
			} else {
				// A valuation shortfall leaves the treasury bucket and
				// total assets; no funds arrive.
				err = p.ReturnFromTreasury(valueobject.NewMoneyUSD(yield.Neg()), valueobject.ZeroUSD())
			}
			if err != nil {
				return err
			}
			if err := uow.Pools().Save(ctx, p); err != nil {
				return err
			}
			if err := uow.SaveEvents(ctx, p.GetDomainEvents()...); err != nil {
				return err
			}
			p.ClearDomainEvents()
		}

		if err := s.save(ctx, uow, a); err != nil {
			return err
		}
		resp = &HarvestResponse{
			StrategyName: name,
			LiveValue:    live.Amount(),
			Yield:        yield,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ===================== Queries =====================

// GetTreasury returns the allocator with per-strategy advertised rates
func (s *TreasuryService) GetTreasury(ctx context.Context) (*TreasuryResponse, error) {
	a, err := s.treasuryRepo.Get(ctx)
	if err != nil {
		return nil, err
	}

	rates := make(map[string]int64, len(a.Strategies))
	strategies := make([]StrategyResponse, len(a.Strategies))
	liveValue := a.IdleBalance
	for i, strat := range a.Strategies {
		var apy *int64
		if adapter, ok := s.adapters.Resolve(strat.Name); ok {
			if bps, err := adapter.EstimatedAPYBps(ctx); err == nil {
				apy = &bps
				rates[strat.Name] = bps
			}
			if live, err := adapter.TotalValue(ctx); err == nil {
				liveValue = liveValue.Add(live.Amount())
			} else {
				// Unreachable adapter: fall back to the tracked figure so
				// the total stays meaningful.
				liveValue = liveValue.Add(strat.Deposited)
			}
		} else {
			liveValue = liveValue.Add(strat.Deposited)
		}
		strategies[i] = *toStrategyResponse(strat, apy)
	}

	return &TreasuryResponse{
		ID:                   a.ID,
		IdleBalance:          a.IdleBalance,
		TrackedValue:         a.TrackedValue(),
		LiveValue:            liveValue,
		InstantWithdrawable:  a.InstantWithdrawable(s.instantCeilings(ctx, a)),
		MaxStrategies:        a.MaxStrategies,
		SlippageToleranceBps: a.SlippageToleranceBps,
		RebalanceCooldown:    a.RebalanceCooldown.String(),
		LastRebalance:        a.LastRebalance,
		WeightedAPYBps:       a.WeightedAPYBps(rates),
		Strategies:           strategies,
		Version:              a.Version,
	}, nil
}

// ===================== Helpers =====================

// getOrCreate loads the allocator, bootstrapping it with the configured
// limits on first use
func (s *TreasuryService) getOrCreate(ctx context.Context, uow domain.UnitOfWork) (*treasury.Allocator, error) {
	a, err := uow.Treasury().Get(ctx)
	if errors.Is(err, shared.ErrNotFound) {
		return treasury.NewAllocator(s.limits.MaxStrategies, s.limits.SlippageToleranceBps, s.limits.RebalanceCooldown)
	}
	return a, err
}

// save persists the allocator and flushes its events to the outbox
func (s *TreasuryService) save(ctx context.Context, uow domain.UnitOfWork, a *treasury.Allocator) error {
	if err := uow.Treasury().Save(ctx, a); err != nil {
		return err
	}
	if err := uow.SaveEvents(ctx, a.GetDomainEvents()...); err != nil {
		return err
	}
	a.ClearDomainEvents()
	return nil
}

// instantCapability maps registered strategies to their adapters' instant
// withdrawal support
func (s *TreasuryService) instantCapability(a *treasury.Allocator) map[string]bool {
	capability := make(map[string]bool, len(a.Strategies))
	for _, strat := range a.Strategies {
		if adapter, ok := s.adapters.Resolve(strat.Name); ok {
			capability[strat.Name] = adapter.SupportsInstantWithdraw()
		}
	}
	return capability
}

// instantCeilings asks each instant-capable adapter for its withdrawal
// ceiling. Strategies whose adapter is unreachable or non-instant are
// absent from the map.
func (s *TreasuryService) instantCeilings(ctx context.Context, a *treasury.Allocator) map[string]decimal.Decimal {
	ceilings := make(map[string]decimal.Decimal, len(a.Strategies))
	for _, strat := range a.Strategies {
		adapter, ok := s.adapters.Resolve(strat.Name)
		if !ok || !adapter.SupportsInstantWithdraw() {
			continue
		}
		ceiling, err := adapter.MaxInstantWithdraw(ctx)
		if err != nil {
			s.logger.Warn("Instant withdrawal ceiling unavailable",
				zap.String("strategy", strat.Name),
				zap.Error(err))
			continue
		}
		ceilings[strat.Name] = ceiling.Amount()
	}
	return ceilings
}

func toStrategyResponse(strat *treasury.Strategy, apy *int64) *StrategyResponse {
	return &StrategyResponse{
		ID:          strat.ID,
		Name:        strat.Name,
		Weight:      strat.Weight,
		Deposited:   strat.Deposited,
		Active:      strat.Active,
		Position:    strat.Position,
		APYBps:      apy,
		AddedAt:     strat.AddedAt,
		LastHarvest: strat.LastHarvest,
	}
}

func toAllocationResponses(allocations []treasury.Allocation) []AllocationResponse {
	responses := make([]AllocationResponse, len(allocations))
	for i, alloc := range allocations {
		responses[i] = AllocationResponse{StrategyName: alloc.StrategyName, Amount: alloc.Amount}
	}
	return responses
}
