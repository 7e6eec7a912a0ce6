package pool

import (
	"time"

	"github.com/google/uuid"
	"github.com/payflow/backend/internal/domain/shared"
	"github.com/payflow/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

const (
	// SharePrecision is the number of decimal places carried by share balances.
	SharePrecision int32 = 8
	// AmountPrecision is the number of decimal places carried by settlement amounts.
	AmountPrecision int32 = 2
)

// CapitalPool is the aggregate root for pooled liquidity-provider capital.
// It issues proportional ownership shares and tracks where capital currently
// sits: liquid, deployed to invoice funding, or deployed to treasury
// strategies. At every consistent checkpoint:
//
//	TotalAssets == LiquidBalance + TotalDeployedToInvoices + TotalDeployedToTreasury
//
// Share price (TotalAssets / TotalShares) only appreciates through realized
// repayment yield and only declines through recorded defaults or treasury
// shortfalls.
type CapitalPool struct {
	shared.BaseAggregateRoot
	TotalAssets             decimal.Decimal `json:"total_assets"`
	TotalShares             decimal.Decimal `json:"total_shares"`
	LiquidBalance           decimal.Decimal `json:"liquid_balance"`
	TotalDeployedToInvoices decimal.Decimal `json:"total_deployed_to_invoices"`
	TotalDeployedToTreasury decimal.Decimal `json:"total_deployed_to_treasury"`
	Paused                  bool            `json:"paused"`
	PausedAt                *time.Time      `json:"paused_at"`
}

// NewCapitalPool creates an empty capital pool
func NewCapitalPool() *CapitalPool {
	return &CapitalPool{
		BaseAggregateRoot:       shared.NewBaseAggregateRoot(),
		TotalAssets:             decimal.Zero,
		TotalShares:             decimal.Zero,
		LiquidBalance:           decimal.Zero,
		TotalDeployedToInvoices: decimal.Zero,
		TotalDeployedToTreasury: decimal.Zero,
	}
}

// ===================== Views =====================

// SharePrice returns TotalAssets / TotalShares, or 1 when no shares exist
func (p *CapitalPool) SharePrice() decimal.Decimal {
	if p.TotalShares.IsZero() {
		return decimal.NewFromInt(1)
	}
	return p.TotalAssets.Div(p.TotalShares)
}

// AvailableLiquidity returns the capital withdrawable right now. It is
// derived as total assets minus deployed amounts, clipped at the actual
// liquid balance so that accounting drift can never overstate liquidity.
func (p *CapitalPool) AvailableLiquidity() valueobject.Money {
	derived := p.TotalAssets.Sub(p.TotalDeployedToInvoices).Sub(p.TotalDeployedToTreasury)
	if derived.GreaterThan(p.LiquidBalance) {
		derived = p.LiquidBalance
	}
	if derived.IsNegative() {
		derived = decimal.Zero
	}
	return valueobject.NewMoneyUSD(derived)
}

// PreviewDeposit returns the shares that a deposit of the given amount would
// mint at the current share price, without mutating the pool
func (p *CapitalPool) PreviewDeposit(amount valueobject.Money) decimal.Decimal {
	return p.sharesForAssets(amount.Amount())
}

// CheckConservation verifies the bucket invariant. A violation means the
// persisted row was mutated outside the aggregate.
func (p *CapitalPool) CheckConservation() error {
	sum := p.LiquidBalance.Add(p.TotalDeployedToInvoices).Add(p.TotalDeployedToTreasury)
	if !p.TotalAssets.Equal(sum) {
		return shared.NewDomainError("CONSERVATION_VIOLATION",
			"Total assets do not equal the sum of liquid and deployed buckets")
	}
	return nil
}

// sharesForAssets converts an asset amount to shares at the current price,
// rounding down so that minting always favors existing holders
func (p *CapitalPool) sharesForAssets(assets decimal.Decimal) decimal.Decimal {
	if p.TotalShares.IsZero() {
		return assets.RoundDown(SharePrecision)
	}
	return assets.Mul(p.TotalShares).Div(p.TotalAssets).RoundDown(SharePrecision)
}

// ===================== Deposits =====================

// Deposit mints shares for the beneficiary in exchange for settlement assets.
// The first deposit mints 1:1; later deposits mint at the prevailing share
// price, rounded down. Returns the number of shares minted.
func (p *CapitalPool) Deposit(amount valueobject.Money, beneficiary uuid.UUID) (decimal.Decimal, error) {
	if p.Paused {
		return decimal.Zero, shared.ErrPoolPaused
	}
	if beneficiary == uuid.Nil {
		return decimal.Zero, shared.NewDomainError("INVALID_BENEFICIARY", "Beneficiary cannot be empty")
	}
	if amount.Currency() != valueobject.SettlementCurrency {
		return decimal.Zero, shared.ErrAssetMismatch
	}
	if !amount.IsPositive() {
		return decimal.Zero, shared.NewDomainError("INVALID_AMOUNT", "Deposit amount must be positive")
	}

	shares := p.sharesForAssets(amount.Amount())
	if !shares.IsPositive() {
		return decimal.Zero, shared.NewDomainError("INVALID_AMOUNT", "Deposit amount is too small to mint shares")
	}

	p.TotalAssets = p.TotalAssets.Add(amount.Amount())
	p.LiquidBalance = p.LiquidBalance.Add(amount.Amount())
	p.TotalShares = p.TotalShares.Add(shares)
	p.IncrementVersion()

	p.AddDomainEvent(NewPoolDepositedEvent(p, beneficiary, amount.Amount(), shares))
	return shares, nil
}

// ===================== Withdrawals =====================

// Withdraw burns shares for an exact asset amount. Shares burned are rounded
// up, protecting remaining holders. The request fails outright when the pool
// cannot satisfy it from liquid funds; nothing is partially honored and no
// strategy liquidation happens inside this call.
//
// ownerShares is the owner's current share balance; the caller persists the
// reduced balance after a successful return.
func (p *CapitalPool) Withdraw(assets valueobject.Money, beneficiary uuid.UUID, ownerShares decimal.Decimal) (decimal.Decimal, error) {
	if beneficiary == uuid.Nil {
		return decimal.Zero, shared.NewDomainError("INVALID_BENEFICIARY", "Beneficiary cannot be empty")
	}
	if assets.Currency() != valueobject.SettlementCurrency {
		return decimal.Zero, shared.ErrAssetMismatch
	}
	if !assets.IsPositive() {
		return decimal.Zero, shared.NewDomainError("INVALID_AMOUNT", "Withdrawal amount must be positive")
	}
	if assets.Amount().GreaterThan(p.AvailableLiquidity().Amount()) {
		return decimal.Zero, shared.ErrInsufficientLiquidity
	}

	var sharesBurned decimal.Decimal
	if p.TotalShares.IsZero() {
		return decimal.Zero, shared.ErrInsufficientShares
	}
	sharesBurned = assets.Amount().Mul(p.TotalShares).Div(p.TotalAssets).RoundUp(SharePrecision)
	if sharesBurned.GreaterThan(ownerShares) {
		return decimal.Zero, shared.ErrInsufficientShares
	}

	p.TotalAssets = p.TotalAssets.Sub(assets.Amount())
	p.LiquidBalance = p.LiquidBalance.Sub(assets.Amount())
	p.TotalShares = p.TotalShares.Sub(sharesBurned)
	p.IncrementVersion()

	p.AddDomainEvent(NewPoolWithdrawnEvent(p, beneficiary, assets.Amount(), sharesBurned))
	return sharesBurned, nil
}

// Redeem burns an exact number of shares for assets at the current share
// price. Assets out are rounded down. Subject to the same liquidity cap as
// Withdraw. Returns the assets paid out.
func (p *CapitalPool) Redeem(shares decimal.Decimal, beneficiary uuid.UUID, ownerShares decimal.Decimal) (valueobject.Money, error) {
	if beneficiary == uuid.Nil {
		return valueobject.ZeroUSD(), shared.NewDomainError("INVALID_BENEFICIARY", "Beneficiary cannot be empty")
	}
	if !shares.IsPositive() {
		return valueobject.ZeroUSD(), shared.NewDomainError("INVALID_AMOUNT", "Share amount must be positive")
	}
	if shares.GreaterThan(ownerShares) {
		return valueobject.ZeroUSD(), shared.ErrInsufficientShares
	}
	if p.TotalShares.IsZero() {
		return valueobject.ZeroUSD(), shared.ErrInsufficientShares
	}

	assetsOut := shares.Mul(p.TotalAssets).Div(p.TotalShares).RoundDown(AmountPrecision)
	if assetsOut.GreaterThan(p.AvailableLiquidity().Amount()) {
		return valueobject.ZeroUSD(), shared.ErrInsufficientLiquidity
	}

	p.TotalAssets = p.TotalAssets.Sub(assetsOut)
	p.LiquidBalance = p.LiquidBalance.Sub(assetsOut)
	p.TotalShares = p.TotalShares.Sub(shares)
	p.IncrementVersion()

	p.AddDomainEvent(NewSharesRedeemedEvent(p, beneficiary, assetsOut, shares))
	return valueobject.NewMoneyUSD(assetsOut), nil
}

// ===================== Capital movement =====================

// DeployForFunding moves liquid capital into the deployed-to-invoices bucket.
// Only the funding ledger may invoke this; the caller enforces that gate.
func (p *CapitalPool) DeployForFunding(amount valueobject.Money, invoiceID uuid.UUID) error {
	if p.Paused {
		return shared.ErrPoolPaused
	}
	if invoiceID == uuid.Nil {
		return shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Deployment amount must be positive")
	}
	if amount.Amount().GreaterThan(p.AvailableLiquidity().Amount()) {
		return shared.ErrInsufficientLiquidity
	}

	p.LiquidBalance = p.LiquidBalance.Sub(amount.Amount())
	p.TotalDeployedToInvoices = p.TotalDeployedToInvoices.Add(amount.Amount())
	p.IncrementVersion()

	p.AddDomainEvent(NewCapitalDeployedEvent(p, invoiceID, amount.Amount()))
	return nil
}

// ReceiveRepayment returns deployed principal to the liquid bucket and
// realizes yield into total assets. This is the sole path by which invoice
// activity appreciates the share price.
func (p *CapitalPool) ReceiveRepayment(principal, yield valueobject.Money, invoiceID uuid.UUID) error {
	if invoiceID == uuid.Nil {
		return shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	if !principal.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Principal must be positive")
	}
	if yield.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Yield cannot be negative")
	}
	if principal.Amount().GreaterThan(p.TotalDeployedToInvoices) {
		return shared.NewDomainError("INVALID_AMOUNT", "Principal exceeds capital deployed to invoices")
	}

	p.TotalDeployedToInvoices = p.TotalDeployedToInvoices.Sub(principal.Amount())
	p.LiquidBalance = p.LiquidBalance.Add(principal.Amount()).Add(yield.Amount())
	p.TotalAssets = p.TotalAssets.Add(yield.Amount())
	p.IncrementVersion()

	p.AddDomainEvent(NewRepaymentReceivedEvent(p, invoiceID, principal.Amount(), yield.Amount()))
	return nil
}

// RecordDefault writes off deployed principal that will never return. This
// is the only operation that lowers the share price.
func (p *CapitalPool) RecordDefault(principal valueobject.Money, invoiceID uuid.UUID) error {
	if invoiceID == uuid.Nil {
		return shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	if !principal.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Principal must be positive")
	}
	if principal.Amount().GreaterThan(p.TotalDeployedToInvoices) {
		return shared.NewDomainError("INVALID_AMOUNT", "Principal exceeds capital deployed to invoices")
	}

	p.TotalDeployedToInvoices = p.TotalDeployedToInvoices.Sub(principal.Amount())
	p.TotalAssets = p.TotalAssets.Sub(principal.Amount())
	p.IncrementVersion()

	p.AddDomainEvent(NewDefaultRecordedEvent(p, invoiceID, principal.Amount()))
	return nil
}

// DeployToTreasury moves liquid capital into the deployed-to-treasury bucket.
// Invoked by the treasury allocator before it distributes across strategies.
func (p *CapitalPool) DeployToTreasury(amount valueobject.Money) error {
	if p.Paused {
		return shared.ErrPoolPaused
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Deployment amount must be positive")
	}
	if amount.Amount().GreaterThan(p.AvailableLiquidity().Amount()) {
		return shared.ErrInsufficientLiquidity
	}

	p.LiquidBalance = p.LiquidBalance.Sub(amount.Amount())
	p.TotalDeployedToTreasury = p.TotalDeployedToTreasury.Add(amount.Amount())
	p.IncrementVersion()

	p.AddDomainEvent(NewTreasuryDeployedEvent(p, amount.Amount()))
	return nil
}

// ReturnFromTreasury records capital coming back from the allocator. tracked
// is the amount the allocator's accounting attributed to the withdrawal;
// received is what actually arrived. A positive delta is realized yield, a
// negative one a slippage loss, and either adjusts total assets.
func (p *CapitalPool) ReturnFromTreasury(tracked, received valueobject.Money) error {
	if !tracked.IsPositive() && !received.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Return amount must be positive")
	}
	if tracked.Amount().GreaterThan(p.TotalDeployedToTreasury) {
		return shared.NewDomainError("INVALID_AMOUNT", "Tracked amount exceeds capital deployed to treasury")
	}

	delta := received.Amount().Sub(tracked.Amount())
	p.TotalDeployedToTreasury = p.TotalDeployedToTreasury.Sub(tracked.Amount())
	p.LiquidBalance = p.LiquidBalance.Add(received.Amount())
	p.TotalAssets = p.TotalAssets.Add(delta)
	p.IncrementVersion()

	p.AddDomainEvent(NewTreasuryReturnedEvent(p, tracked.Amount(), received.Amount()))
	return nil
}

// RealizeTreasuryYield records harvested strategy yield as an increase in the
// treasury bucket and total assets. Funds stay inside the allocator.
func (p *CapitalPool) RealizeTreasuryYield(yield valueobject.Money) error {
	if !yield.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Yield must be positive")
	}

	p.TotalDeployedToTreasury = p.TotalDeployedToTreasury.Add(yield.Amount())
	p.TotalAssets = p.TotalAssets.Add(yield.Amount())
	p.IncrementVersion()
	return nil
}

// ===================== Administration =====================

// Pause stops deposits and new funding. Withdrawals of already-liquid
// capital remain allowed while paused.
func (p *CapitalPool) Pause() error {
	if p.Paused {
		return shared.NewDomainError("ALREADY_PAUSED", "Capital pool is already paused")
	}
	now := time.Now()
	p.Paused = true
	p.PausedAt = &now
	p.IncrementVersion()

	p.AddDomainEvent(NewPoolPausedEvent(p))
	return nil
}

// Unpause resumes deposits and funding
func (p *CapitalPool) Unpause() error {
	if !p.Paused {
		return shared.NewDomainError("NOT_PAUSED", "Capital pool is not paused")
	}
	p.Paused = false
	p.PausedAt = nil
	p.IncrementVersion()

	p.AddDomainEvent(NewPoolUnpausedEvent(p))
	return nil
}
