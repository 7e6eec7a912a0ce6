package treasury

import (
	"github.com/google/uuid"
	"github.com/payflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// StrategyAddedEvent is raised when a strategy is registered
type StrategyAddedEvent struct {
	shared.BaseDomainEvent
	AllocatorID  uuid.UUID `json:"allocator_id"`
	StrategyID   uuid.UUID `json:"strategy_id"`
	StrategyName string    `json:"strategy_name"`
	Weight       int64     `json:"weight"`
	TotalWeight  int64     `json:"total_weight"`
}

// EventType returns the event type name
func (e *StrategyAddedEvent) EventType() string {
	return "StrategyAdded"
}

// NewStrategyAddedEvent creates a new StrategyAddedEvent
func NewStrategyAddedEvent(a *Allocator, s *Strategy) *StrategyAddedEvent {
	return &StrategyAddedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("StrategyAdded", "Allocator", a.ID),
		AllocatorID:     a.ID,
		StrategyID:      s.ID,
		StrategyName:    s.Name,
		Weight:          s.Weight,
		TotalWeight:     a.TotalWeight(),
	}
}

// StrategyRemovedEvent is raised when a drained strategy is deregistered
type StrategyRemovedEvent struct {
	shared.BaseDomainEvent
	AllocatorID  uuid.UUID `json:"allocator_id"`
	StrategyID   uuid.UUID `json:"strategy_id"`
	StrategyName string    `json:"strategy_name"`
	TotalWeight  int64     `json:"total_weight"`
}

// EventType returns the event type name
func (e *StrategyRemovedEvent) EventType() string {
	return "StrategyRemoved"
}

// NewStrategyRemovedEvent creates a new StrategyRemovedEvent
func NewStrategyRemovedEvent(a *Allocator, s *Strategy) *StrategyRemovedEvent {
	return &StrategyRemovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("StrategyRemoved", "Allocator", a.ID),
		AllocatorID:     a.ID,
		StrategyID:      s.ID,
		StrategyName:    s.Name,
		TotalWeight:     a.TotalWeight(),
	}
}

// StrategyWeightChangedEvent is raised when a strategy's target allocation changes
type StrategyWeightChangedEvent struct {
	shared.BaseDomainEvent
	AllocatorID    uuid.UUID `json:"allocator_id"`
	StrategyName   string    `json:"strategy_name"`
	PreviousWeight int64     `json:"previous_weight"`
	Weight         int64     `json:"weight"`
	TotalWeight    int64     `json:"total_weight"`
}

// EventType returns the event type name
func (e *StrategyWeightChangedEvent) EventType() string {
	return "StrategyWeightChanged"
}

// NewStrategyWeightChangedEvent creates a new StrategyWeightChangedEvent
func NewStrategyWeightChangedEvent(a *Allocator, s *Strategy, previous int64) *StrategyWeightChangedEvent {
	return &StrategyWeightChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("StrategyWeightChanged", "Allocator", a.ID),
		AllocatorID:     a.ID,
		StrategyName:    s.Name,
		PreviousWeight:  previous,
		Weight:          s.Weight,
		TotalWeight:     a.TotalWeight(),
	}
}

// StrategyPausedEvent is raised when a strategy loses deposit eligibility
type StrategyPausedEvent struct {
	shared.BaseDomainEvent
	AllocatorID  uuid.UUID `json:"allocator_id"`
	StrategyName string    `json:"strategy_name"`
}

// EventType returns the event type name
func (e *StrategyPausedEvent) EventType() string {
	return "StrategyPaused"
}

// NewStrategyPausedEvent creates a new StrategyPausedEvent
func NewStrategyPausedEvent(a *Allocator, s *Strategy) *StrategyPausedEvent {
	return &StrategyPausedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("StrategyPaused", "Allocator", a.ID),
		AllocatorID:     a.ID,
		StrategyName:    s.Name,
	}
}

// StrategyUnpausedEvent is raised when a strategy regains deposit eligibility
type StrategyUnpausedEvent struct {
	shared.BaseDomainEvent
	AllocatorID  uuid.UUID `json:"allocator_id"`
	StrategyName string    `json:"strategy_name"`
}

// EventType returns the event type name
func (e *StrategyUnpausedEvent) EventType() string {
	return "StrategyUnpaused"
}

// NewStrategyUnpausedEvent creates a new StrategyUnpausedEvent
func NewStrategyUnpausedEvent(a *Allocator, s *Strategy) *StrategyUnpausedEvent {
	return &StrategyUnpausedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("StrategyUnpaused", "Allocator", a.ID),
		AllocatorID:     a.ID,
		StrategyName:    s.Name,
	}
}

// TreasuryDepositedEvent is raised when pool capital is distributed across strategies
type TreasuryDepositedEvent struct {
	shared.BaseDomainEvent
	AllocatorID uuid.UUID       `json:"allocator_id"`
	Amount      decimal.Decimal `json:"amount"`
	Allocations []Allocation    `json:"allocations"`
}

// EventType returns the event type name
func (e *TreasuryDepositedEvent) EventType() string {
	return "TreasuryDeposited"
}

// NewTreasuryDepositedEvent creates a new TreasuryDepositedEvent
func NewTreasuryDepositedEvent(a *Allocator, amount decimal.Decimal, allocations []Allocation) *TreasuryDepositedEvent {
	return &TreasuryDepositedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("TreasuryDeposited", "Allocator", a.ID),
		AllocatorID:     a.ID,
		Amount:          amount,
		Allocations:     allocations,
	}
}

// TreasuryWithdrawnEvent is raised when treasury capital is raised for the pool
type TreasuryWithdrawnEvent struct {
	shared.BaseDomainEvent
	AllocatorID uuid.UUID       `json:"allocator_id"`
	Requested   decimal.Decimal `json:"requested"`
	Received    decimal.Decimal `json:"received"`
	FromIdle    decimal.Decimal `json:"from_idle"`
	Allocations []Allocation    `json:"allocations"`
}

// EventType returns the event type name
func (e *TreasuryWithdrawnEvent) EventType() string {
	return "TreasuryWithdrawn"
}

// NewTreasuryWithdrawnEvent creates a new TreasuryWithdrawnEvent
func NewTreasuryWithdrawnEvent(a *Allocator, requested, received decimal.Decimal, plan WithdrawalPlan) *TreasuryWithdrawnEvent {
	return &TreasuryWithdrawnEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("TreasuryWithdrawn", "Allocator", a.ID),
		AllocatorID:     a.ID,
		Requested:       requested,
		Received:        received,
		FromIdle:        plan.FromIdle,
		Allocations:     plan.Allocations,
	}
}

// TreasuryRebalancedEvent is raised after a drain-and-redistribute cycle
type TreasuryRebalancedEvent struct {
	shared.BaseDomainEvent
	AllocatorID  uuid.UUID       `json:"allocator_id"`
	TrackedValue decimal.Decimal `json:"tracked_value"`
}

// EventType returns the event type name
func (e *TreasuryRebalancedEvent) EventType() string {
	return "TreasuryRebalanced"
}

// NewTreasuryRebalancedEvent creates a new TreasuryRebalancedEvent
func NewTreasuryRebalancedEvent(a *Allocator) *TreasuryRebalancedEvent {
	return &TreasuryRebalancedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("TreasuryRebalanced", "Allocator", a.ID),
		AllocatorID:     a.ID,
		TrackedValue:    a.TrackedValue(),
	}
}

// YieldHarvestedEvent is raised when a strategy's live valuation delta is realized
type YieldHarvestedEvent struct {
	shared.BaseDomainEvent
	AllocatorID  uuid.UUID       `json:"allocator_id"`
	StrategyName string          `json:"strategy_name"`
	Yield        decimal.Decimal `json:"yield"`
	LiveValue    decimal.Decimal `json:"live_value"`
}

// EventType returns the event type name
func (e *YieldHarvestedEvent) EventType() string {
	return "YieldHarvested"
}

// NewYieldHarvestedEvent creates a new YieldHarvestedEvent
func NewYieldHarvestedEvent(a *Allocator, strategyName string, yield, liveValue decimal.Decimal) *YieldHarvestedEvent {
	return &YieldHarvestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("YieldHarvested", "Allocator", a.ID),
		AllocatorID:     a.ID,
		StrategyName:    strategyName,
		Yield:           yield,
		LiveValue:       liveValue,
	}
}
