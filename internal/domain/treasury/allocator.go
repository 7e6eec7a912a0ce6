package treasury

import (
	"fmt"
	"time"

	"github.com/payflow/backend/internal/domain/shared"
	"github.com/payflow/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// amountPrecision is the number of decimal places carried by settlement amounts
const amountPrecision int32 = 2

// basisPointsDivisor converts basis points to a fraction
var basisPointsDivisor = decimal.NewFromInt(10_000)

// SlippageExceededError reports a withdrawal whose realized proceeds fell
// below the tolerated floor. The strategy withdrawals behind it already
// executed, so the drained funds sit in the allocator's idle balance rather
// than being rolled back; the caller may retry or accept the partial state.
type SlippageExceededError struct {
	Requested     decimal.Decimal
	Received      decimal.Decimal
	MinAcceptable decimal.Decimal
}

// Error implements the error interface
func (e *SlippageExceededError) Error() string {
	return fmt.Sprintf("slippage exceeded: requested %s, received %s, minimum acceptable %s",
		e.Requested.String(), e.Received.String(), e.MinAcceptable.String())
}

// Allocation is one strategy's share of a planned capital movement
type Allocation struct {
	StrategyName string          `json:"strategy_name"`
	Amount       decimal.Decimal `json:"amount"`
}

// WithdrawalPlan describes how a withdrawal request will be satisfied:
// idle balance first, then instant-capable strategies, then the rest
type WithdrawalPlan struct {
	FromIdle    decimal.Decimal `json:"from_idle"`
	Allocations []Allocation    `json:"allocations"`
}

// Total returns the full amount the plan intends to raise
func (p WithdrawalPlan) Total() decimal.Decimal {
	total := p.FromIdle
	for _, a := range p.Allocations {
		total = total.Add(a.Amount)
	}
	return total
}

// Allocator is the aggregate root for the treasury. It owns the weighted
// strategy registry, its own idle balance, and the rebalance cooldown. All
// allocation arithmetic is pure; adapter calls are orchestrated by the
// caller after the relevant accounting has been committed.
type Allocator struct {
	shared.BaseAggregateRoot
	IdleBalance          decimal.Decimal `json:"idle_balance"`
	MaxStrategies        int             `json:"max_strategies"`
	SlippageToleranceBps int64           `json:"slippage_tolerance_bps"`
	RebalanceCooldown    time.Duration   `json:"rebalance_cooldown"`
	LastRebalance        *time.Time      `json:"last_rebalance"`
	Strategies           []*Strategy     `json:"strategies"` // insertion order
}

// NewAllocator creates an allocator with the given operational limits
func NewAllocator(maxStrategies int, slippageToleranceBps int64, rebalanceCooldown time.Duration) (*Allocator, error) {
	if maxStrategies <= 0 {
		return nil, shared.NewDomainError("INVALID_LIMIT", "Maximum strategy count must be positive")
	}
	if slippageToleranceBps < 0 || slippageToleranceBps >= 10_000 {
		return nil, shared.NewDomainError("INVALID_TOLERANCE", "Slippage tolerance must be in [0, 10000) basis points")
	}
	if rebalanceCooldown < 0 {
		return nil, shared.NewDomainError("INVALID_COOLDOWN", "Rebalance cooldown cannot be negative")
	}
	return &Allocator{
		BaseAggregateRoot:    shared.NewBaseAggregateRoot(),
		IdleBalance:          decimal.Zero,
		MaxStrategies:        maxStrategies,
		SlippageToleranceBps: slippageToleranceBps,
		RebalanceCooldown:    rebalanceCooldown,
		Strategies:           make([]*Strategy, 0),
	}, nil
}

// ===================== Registry =====================

// FindStrategy returns the strategy registered under name
func (a *Allocator) FindStrategy(name string) (*Strategy, bool) {
	for _, s := range a.Strategies {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// TotalWeight returns the sum of weights over active strategies
func (a *Allocator) TotalWeight() int64 {
	var total int64
	for _, s := range a.Strategies {
		if s.Active {
			total += s.Weight
		}
	}
	return total
}

// AddStrategy registers a new strategy. The asset must match the pool's
// settlement currency; mismatches are rejected at registration time.
func (a *Allocator) AddStrategy(name string, weight int64, asset valueobject.Currency) (*Strategy, error) {
	if asset != valueobject.SettlementCurrency {
		return nil, shared.ErrAssetMismatch
	}
	if _, exists := a.FindStrategy(name); exists {
		return nil, shared.ErrDuplicateStrategy
	}
	if len(a.Strategies) >= a.MaxStrategies {
		return nil, shared.ErrMaxStrategies
	}

	s, err := NewStrategy(name, weight, len(a.Strategies))
	if err != nil {
		return nil, err
	}
	a.Strategies = append(a.Strategies, s)
	a.IncrementVersion()

	a.AddDomainEvent(NewStrategyAddedEvent(a, s))
	return s, nil
}

// RemoveStrategy deletes a registration. The strategy must already be
// drained; the caller withdraws its funds first.
func (a *Allocator) RemoveStrategy(name string) error {
	s, exists := a.FindStrategy(name)
	if !exists {
		return shared.ErrUnknownStrategy
	}
	if !s.IsDrained() {
		return shared.NewDomainError("STRATEGY_NOT_DRAINED", "Strategy still holds funds; withdraw them before removal")
	}

	kept := make([]*Strategy, 0, len(a.Strategies)-1)
	for _, existing := range a.Strategies {
		if existing.Name != name {
			existing.Position = len(kept)
			kept = append(kept, existing)
		}
	}
	a.Strategies = kept
	a.IncrementVersion()

	a.AddDomainEvent(NewStrategyRemovedEvent(a, s))
	return nil
}

// SetWeight changes a strategy's target allocation without moving funds
func (a *Allocator) SetWeight(name string, weight int64) error {
	if weight <= 0 {
		return shared.NewDomainError("INVALID_WEIGHT", "Strategy weight must be positive")
	}
	s, exists := a.FindStrategy(name)
	if !exists {
		return shared.ErrUnknownStrategy
	}

	previous := s.Weight
	s.Weight = weight
	a.IncrementVersion()

	a.AddDomainEvent(NewStrategyWeightChangedEvent(a, s, previous))
	return nil
}

// PauseStrategy removes a strategy from new-deposit eligibility
func (a *Allocator) PauseStrategy(name string) error {
	s, exists := a.FindStrategy(name)
	if !exists {
		return shared.ErrUnknownStrategy
	}
	if !s.Active {
		return shared.NewDomainError("ALREADY_PAUSED", "Strategy is already paused")
	}
	s.Active = false
	a.IncrementVersion()

	a.AddDomainEvent(NewStrategyPausedEvent(a, s))
	return nil
}

// UnpauseStrategy restores a strategy's deposit eligibility
func (a *Allocator) UnpauseStrategy(name string) error {
	s, exists := a.FindStrategy(name)
	if !exists {
		return shared.ErrUnknownStrategy
	}
	if s.Active {
		return shared.NewDomainError("NOT_PAUSED", "Strategy is not paused")
	}
	s.Active = true
	a.IncrementVersion()

	a.AddDomainEvent(NewStrategyUnpausedEvent(a, s))
	return nil
}

// ===================== Allocation math =====================

// PlanDeposit splits amount across active strategies proportionally to
// weight, iterating in insertion order. Rounding remainders (dust) go
// entirely to the first active strategy so the allocations sum to amount
// exactly. Returns an error when no active strategy can receive funds.
func (a *Allocator) PlanDeposit(amount decimal.Decimal) ([]Allocation, error) {
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Deposit amount must be positive")
	}
	totalWeight := a.TotalWeight()
	if totalWeight == 0 {
		return nil, shared.NewDomainError("NO_ACTIVE_STRATEGIES", "No active strategy can receive deposits")
	}

	weightTotal := decimal.NewFromInt(totalWeight)
	allocations := make([]Allocation, 0, len(a.Strategies))
	remaining := amount

	for _, s := range a.Strategies {
		if !s.Active {
			continue
		}
		alloc := amount.Mul(decimal.NewFromInt(s.Weight)).Div(weightTotal).RoundDown(amountPrecision)
		if alloc.IsPositive() && alloc.LessThanOrEqual(remaining) {
			allocations = append(allocations, Allocation{StrategyName: s.Name, Amount: alloc})
			remaining = remaining.Sub(alloc)
		}
	}

	if len(allocations) == 0 {
		return nil, shared.NewDomainError("NO_ACTIVE_STRATEGIES", "No active strategy can receive deposits")
	}
	// Dust from rounding goes to the first strategy that received funds.
	if remaining.IsPositive() {
		allocations[0].Amount = allocations[0].Amount.Add(remaining)
	}
	return allocations, nil
}

// ApplyDepositPlan commits the plan's attribution before adapter calls are
// made: the idle balance absorbs the incoming amount and each strategy's
// Deposited rises by its allocation.
func (a *Allocator) ApplyDepositPlan(amount decimal.Decimal, plan []Allocation) error {
	a.IdleBalance = a.IdleBalance.Add(amount)
	for _, alloc := range plan {
		s, exists := a.FindStrategy(alloc.StrategyName)
		if !exists {
			return shared.ErrUnknownStrategy
		}
		if err := s.RecordDeposit(alloc.Amount); err != nil {
			return err
		}
		a.IdleBalance = a.IdleBalance.Sub(alloc.Amount)
	}
	a.IncrementVersion()

	a.AddDomainEvent(NewTreasuryDepositedEvent(a, amount, plan))
	return nil
}

// instantCapable reports which strategies support instant withdrawal,
// keyed by registration name
type instantCapable = map[string]bool

// PlanWithdrawal satisfies a withdrawal request in liquidity-preference
// order: the idle balance first, then instant-capable strategies, then the
// rest, each contributing up to its tracked Deposited balance. The plan may
// fall short when every strategy is exhausted; the shortfall surfaces
// through the slippage check after execution.
func (a *Allocator) PlanWithdrawal(amount decimal.Decimal, instant instantCapable) (WithdrawalPlan, error) {
	if !amount.IsPositive() {
		return WithdrawalPlan{}, shared.NewDomainError("INVALID_AMOUNT", "Withdrawal amount must be positive")
	}

	plan := WithdrawalPlan{FromIdle: decimal.Zero}
	remaining := amount

	if a.IdleBalance.IsPositive() {
		take := decimal.Min(a.IdleBalance, remaining)
		plan.FromIdle = take
		remaining = remaining.Sub(take)
	}

	drain := func(wantInstant bool) {
		for _, s := range a.Strategies {
			if remaining.IsZero() {
				return
			}
			if instant[s.Name] != wantInstant || !s.Deposited.IsPositive() {
				continue
			}
			take := decimal.Min(s.Deposited, remaining)
			plan.Allocations = append(plan.Allocations, Allocation{StrategyName: s.Name, Amount: take})
			remaining = remaining.Sub(take)
		}
	}
	drain(true)
	drain(false)

	return plan, nil
}

// PlanFullWithdrawal drains the idle balance and every strategy's full
// tracked deposit, regardless of instant capability.
func (a *Allocator) PlanFullWithdrawal() WithdrawalPlan {
	plan := WithdrawalPlan{FromIdle: a.IdleBalance}
	for _, s := range a.Strategies {
		if s.Deposited.IsPositive() {
			plan.Allocations = append(plan.Allocations, Allocation{StrategyName: s.Name, Amount: s.Deposited})
		}
	}
	return plan
}

// ApplyWithdrawalPlan commits the plan's attribution before the adapters are
// invoked: idle drops by the idle portion and each strategy's Deposited
// drops by its contribution.
func (a *Allocator) ApplyWithdrawalPlan(plan WithdrawalPlan) error {
	if plan.FromIdle.GreaterThan(a.IdleBalance) {
		return shared.ErrInsufficientStrategyBalance
	}
	for _, alloc := range plan.Allocations {
		s, exists := a.FindStrategy(alloc.StrategyName)
		if !exists {
			return shared.ErrUnknownStrategy
		}
		if err := s.RecordWithdrawal(alloc.Amount); err != nil {
			return err
		}
	}
	a.IdleBalance = a.IdleBalance.Sub(plan.FromIdle)
	a.IncrementVersion()
	return nil
}

// AbsorbProceeds adds strategy-withdrawal proceeds to the idle balance.
// Called once adapter withdrawals have executed, before the funds are either
// forwarded to the pool or stranded by a slippage rejection.
func (a *Allocator) AbsorbProceeds(received decimal.Decimal) {
	a.IdleBalance = a.IdleBalance.Add(received)
}

// ReleaseIdle removes forwarded funds from the idle balance
func (a *Allocator) ReleaseIdle(amount decimal.Decimal) error {
	if amount.GreaterThan(a.IdleBalance) {
		return shared.ErrInsufficientStrategyBalance
	}
	a.IdleBalance = a.IdleBalance.Sub(amount)
	a.IncrementVersion()
	return nil
}

// CheckSlippage rejects a withdrawal whose proceeds fell below
// amount * (10000 - tolerance) / 10000
func (a *Allocator) CheckSlippage(requested, received decimal.Decimal) error {
	floor := requested.Mul(basisPointsDivisor.Sub(decimal.NewFromInt(a.SlippageToleranceBps))).Div(basisPointsDivisor)
	if received.LessThan(floor) {
		return &SlippageExceededError{
			Requested:     requested,
			Received:      received,
			MinAcceptable: floor,
		}
	}
	return nil
}

// RecordWithdrawalOutcome raises the lifecycle event for a completed
// withdrawal, with the amount the strategies actually yielded
func (a *Allocator) RecordWithdrawalOutcome(requested, received decimal.Decimal, plan WithdrawalPlan) {
	a.AddDomainEvent(NewTreasuryWithdrawnEvent(a, requested, received, plan))
}

// ===================== Harvest =====================

// Harvest compares a strategy's live valuation to its tracked deposit and
// realizes the delta as yield. Accounting only; no funds move here.
func (a *Allocator) Harvest(name string, liveValue decimal.Decimal) (decimal.Decimal, error) {
	if liveValue.IsNegative() {
		return decimal.Zero, shared.NewDomainError("INVALID_AMOUNT", "Live valuation cannot be negative")
	}
	s, exists := a.FindStrategy(name)
	if !exists {
		return decimal.Zero, shared.ErrUnknownStrategy
	}

	yield := s.MarkHarvested(liveValue)
	a.IncrementVersion()

	a.AddDomainEvent(NewYieldHarvestedEvent(a, name, yield, liveValue))
	return yield, nil
}

// ===================== Rebalance =====================

// CanRebalance reports whether the cooldown since the last rebalance has
// elapsed. The cooldown resists allocation manipulation through rapid
// deposit/withdraw cycling.
func (a *Allocator) CanRebalance(now time.Time) bool {
	if a.LastRebalance == nil {
		return true
	}
	return now.Sub(*a.LastRebalance) >= a.RebalanceCooldown
}

// MarkRebalanced records a completed rebalance and starts the cooldown
func (a *Allocator) MarkRebalanced(now time.Time) {
	t := now
	a.LastRebalance = &t
	a.IncrementVersion()

	a.AddDomainEvent(NewTreasuryRebalancedEvent(a))
}

// ===================== Views =====================

// TrackedValue returns idle balance plus the sum of tracked strategy deposits
func (a *Allocator) TrackedValue() decimal.Decimal {
	total := a.IdleBalance
	for _, s := range a.Strategies {
		total = total.Add(s.Deposited)
	}
	return total
}

// WeightedAPYBps computes the weight-weighted average of strategy APYs,
// given each active strategy's advertised rate
func (a *Allocator) WeightedAPYBps(rates map[string]int64) int64 {
	totalWeight := a.TotalWeight()
	if totalWeight == 0 {
		return 0
	}
	var weighted int64
	for _, s := range a.Strategies {
		if !s.Active {
			continue
		}
		weighted += rates[s.Name] * s.Weight
	}
	return weighted / totalWeight
}

// instantCeilings maps strategy names to their adapters' instant-withdrawal
// ceilings. Strategies without instant capability are absent.
type instantCeilings = map[string]decimal.Decimal

// InstantWithdrawable returns the amount recoverable without waiting: the
// idle balance plus each instant-capable strategy's ceiling, capped at its
// tracked deposit.
func (a *Allocator) InstantWithdrawable(ceilings instantCeilings) decimal.Decimal {
	total := a.IdleBalance
	for _, s := range a.Strategies {
		if ceiling, ok := ceilings[s.Name]; ok {
			total = total.Add(decimal.Min(s.Deposited, ceiling))
		}
	}
	return total
}

// CanWithdrawInstant reports whether a withdrawal of the given amount can be
// satisfied without touching non-instant capacity
func (a *Allocator) CanWithdrawInstant(amount decimal.Decimal, ceilings instantCeilings) bool {
	return amount.IsPositive() && amount.LessThanOrEqual(a.InstantWithdrawable(ceilings))
}
