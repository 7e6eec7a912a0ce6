package treasury

import (
	"time"

	"github.com/payflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Strategy is a registered external yield source. Deposited is the amount the
// allocator's own accounting attributes to the strategy; it can drift from
// the strategy's live valuation until the next harvest.
type Strategy struct {
	shared.BaseEntity
	Name        string          `json:"name"`
	Weight      int64           `json:"weight"`
	Deposited   decimal.Decimal `json:"deposited"`
	Active      bool            `json:"active"`
	Position    int             `json:"position"` // insertion order, drives iteration
	AddedAt     time.Time       `json:"added_at"`
	LastHarvest *time.Time      `json:"last_harvest"`
}

// NewStrategy registers a strategy at the given insertion position
func NewStrategy(name string, weight int64, position int) (*Strategy, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_STRATEGY_NAME", "Strategy name cannot be empty")
	}
	if weight <= 0 {
		return nil, shared.NewDomainError("INVALID_WEIGHT", "Strategy weight must be positive")
	}
	return &Strategy{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		Weight:     weight,
		Deposited:  decimal.Zero,
		Active:     true,
		Position:   position,
		AddedAt:    time.Now(),
	}, nil
}

// RecordDeposit attributes capital to the strategy
func (s *Strategy) RecordDeposit(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Deposit amount must be positive")
	}
	s.Deposited = s.Deposited.Add(amount)
	return nil
}

// RecordWithdrawal removes capital attribution from the strategy
func (s *Strategy) RecordWithdrawal(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Withdrawal amount must be positive")
	}
	if amount.GreaterThan(s.Deposited) {
		return shared.ErrInsufficientStrategyBalance
	}
	s.Deposited = s.Deposited.Sub(amount)
	return nil
}

// MarkHarvested records a harvest and re-anchors Deposited to the live value
func (s *Strategy) MarkHarvested(liveValue decimal.Decimal) decimal.Decimal {
	delta := liveValue.Sub(s.Deposited)
	s.Deposited = liveValue
	now := time.Now()
	s.LastHarvest = &now
	return delta
}

// IsDrained returns true when no capital is attributed to the strategy
func (s *Strategy) IsDrained() bool {
	return s.Deposited.IsZero()
}
