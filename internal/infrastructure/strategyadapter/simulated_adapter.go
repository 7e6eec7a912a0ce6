package strategyadapter

import (
	"context"
	"sync"

	"github.com/payflow/backend/internal/domain/shared/valueobject"
	"github.com/payflow/backend/internal/domain/treasury"
	"github.com/shopspring/decimal"
)

// SimulatedAdapter implements treasury.StrategyAdapter with an in-memory
// balance. It is used for local development and tests; withdrawal slippage
// and yield accrual are configurable so edge paths can be exercised.
type SimulatedAdapter struct {
	mu sync.Mutex

	name            string
	balance         decimal.Decimal
	apyBps          int64
	instantWithdraw bool

	// WithdrawSlippageBps shaves this many basis points off every
	// withdrawal, simulating exit costs
	WithdrawSlippageBps int64

	// InstantWithdrawLimit caps MaxInstantWithdraw when positive; zero
	// means the full balance is instantly available
	InstantWithdrawLimit decimal.Decimal
}

// NewSimulatedAdapter creates a simulated strategy adapter
func NewSimulatedAdapter(name string, apyBps int64, instantWithdraw bool) *SimulatedAdapter {
	return &SimulatedAdapter{
		name:            name,
		balance:         decimal.Zero,
		apyBps:          apyBps,
		instantWithdraw: instantWithdraw,
	}
}

// Name returns the strategy's registration key
func (a *SimulatedAdapter) Name() string {
	return a.name
}

// Asset returns the settlement asset the strategy operates in
func (a *SimulatedAdapter) Asset() valueobject.Currency {
	return valueobject.SettlementCurrency
}

// SupportsInstantWithdraw reports whether capital can leave without delay
func (a *SimulatedAdapter) SupportsInstantWithdraw() bool {
	return a.instantWithdraw
}

// Deposit pushes capital into the simulated balance
func (a *SimulatedAdapter) Deposit(ctx context.Context, amount valueobject.Money) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.balance = a.balance.Add(amount.Amount())
	return nil
}

// Withdraw pulls up to amount from the balance, applying configured slippage
func (a *SimulatedAdapter) Withdraw(ctx context.Context, amount valueobject.Money) (valueobject.Money, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	requested := amount.Amount()
	if requested.GreaterThan(a.balance) {
		requested = a.balance
	}
	a.balance = a.balance.Sub(requested)

	received := requested
	if a.WithdrawSlippageBps > 0 {
		factor := decimal.NewFromInt(10_000 - a.WithdrawSlippageBps).Div(decimal.NewFromInt(10_000))
		received = requested.Mul(factor)
	}
	return valueobject.NewMoneyUSD(received), nil
}

// WithdrawAll drains the simulated balance completely
func (a *SimulatedAdapter) WithdrawAll(ctx context.Context) (valueobject.Money, error) {
	a.mu.Lock()
	all := a.balance
	a.mu.Unlock()
	return a.Withdraw(ctx, valueobject.NewMoneyUSD(all))
}

// TotalValue returns the live valuation of the simulated position
func (a *SimulatedAdapter) TotalValue(ctx context.Context) (valueobject.Money, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return valueobject.NewMoneyUSD(a.balance), nil
}

// MaxInstantWithdraw returns the ceiling on instant withdrawal
func (a *SimulatedAdapter) MaxInstantWithdraw(ctx context.Context) (valueobject.Money, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.instantWithdraw {
		return valueobject.ZeroUSD(), nil
	}
	if a.InstantWithdrawLimit.IsPositive() {
		return valueobject.NewMoneyUSD(decimal.Min(a.balance, a.InstantWithdrawLimit)), nil
	}
	return valueobject.NewMoneyUSD(a.balance), nil
}

// EstimatedAPYBps returns the configured annual yield in basis points
func (a *SimulatedAdapter) EstimatedAPYBps(ctx context.Context) (int64, error) {
	return a.apyBps, nil
}

// AccrueYield grows the balance by the given amount, simulating yield
func (a *SimulatedAdapter) AccrueYield(amount decimal.Decimal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.balance = a.balance.Add(amount)
}

// Balance returns the current simulated balance (for tests)
func (a *SimulatedAdapter) Balance() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

// Ensure SimulatedAdapter implements StrategyAdapter
var _ treasury.StrategyAdapter = (*SimulatedAdapter)(nil)
