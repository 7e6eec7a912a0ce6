package treasury

import (
	"context"

	"github.com/payflow/backend/internal/domain/shared/valueobject"
)

// StrategyAdapter is the capability interface every external yield source
// exposes. Implementations live outside the ledger's trust boundary; the
// allocator commits its own accounting before invoking any of the mutating
// methods.
type StrategyAdapter interface {
	// Deposit pushes capital into the strategy
	Deposit(ctx context.Context, amount valueobject.Money) error

	// Withdraw pulls up to amount from the strategy, returning what was
	// actually received (may be less due to strategy-side slippage)
	Withdraw(ctx context.Context, amount valueobject.Money) (valueobject.Money, error)

	// WithdrawAll drains the strategy completely
	WithdrawAll(ctx context.Context) (valueobject.Money, error)

	// TotalValue returns the strategy's live valuation
	TotalValue(ctx context.Context) (valueobject.Money, error)

	// SupportsInstantWithdraw reports whether capital can leave without delay
	SupportsInstantWithdraw() bool

	// MaxInstantWithdraw returns the ceiling on instant withdrawal
	MaxInstantWithdraw(ctx context.Context) (valueobject.Money, error)

	// EstimatedAPYBps returns the strategy's advertised annual yield in basis points
	EstimatedAPYBps(ctx context.Context) (int64, error)

	// Name returns the strategy's registration key
	Name() string

	// Asset returns the settlement asset the strategy operates in
	Asset() valueobject.Currency
}

// AdapterRegistry resolves registered strategy names to live adapters
type AdapterRegistry interface {
	// Resolve returns the adapter for a strategy name
	Resolve(name string) (StrategyAdapter, bool)

	// Register makes an adapter resolvable
	Register(adapter StrategyAdapter)
}
