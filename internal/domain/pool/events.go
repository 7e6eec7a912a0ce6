package pool

import (
	"time"

	"github.com/google/uuid"
	"github.com/payflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PoolDepositedEvent is raised when a liquidity provider deposits capital
type PoolDepositedEvent struct {
	shared.BaseDomainEvent
	PoolID       uuid.UUID       `json:"pool_id"`
	Beneficiary  uuid.UUID       `json:"beneficiary"`
	Amount       decimal.Decimal `json:"amount"`
	SharesMinted decimal.Decimal `json:"shares_minted"`
	TotalAssets  decimal.Decimal `json:"total_assets"`
	TotalShares  decimal.Decimal `json:"total_shares"`
}

// EventType returns the event type name
func (e *PoolDepositedEvent) EventType() string {
	return "PoolDeposited"
}

// NewPoolDepositedEvent creates a new PoolDepositedEvent
func NewPoolDepositedEvent(p *CapitalPool, beneficiary uuid.UUID, amount, shares decimal.Decimal) *PoolDepositedEvent {
	return &PoolDepositedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PoolDeposited", "CapitalPool", p.ID),
		PoolID:          p.ID,
		Beneficiary:     beneficiary,
		Amount:          amount,
		SharesMinted:    shares,
		TotalAssets:     p.TotalAssets,
		TotalShares:     p.TotalShares,
	}
}

// PoolWithdrawnEvent is raised when capital is withdrawn by asset amount
type PoolWithdrawnEvent struct {
	shared.BaseDomainEvent
	PoolID       uuid.UUID       `json:"pool_id"`
	Beneficiary  uuid.UUID       `json:"beneficiary"`
	Amount       decimal.Decimal `json:"amount"`
	SharesBurned decimal.Decimal `json:"shares_burned"`
	TotalAssets  decimal.Decimal `json:"total_assets"`
	TotalShares  decimal.Decimal `json:"total_shares"`
}

// EventType returns the event type name
func (e *PoolWithdrawnEvent) EventType() string {
	return "PoolWithdrawn"
}

// NewPoolWithdrawnEvent creates a new PoolWithdrawnEvent
func NewPoolWithdrawnEvent(p *CapitalPool, beneficiary uuid.UUID, amount, shares decimal.Decimal) *PoolWithdrawnEvent {
	return &PoolWithdrawnEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PoolWithdrawn", "CapitalPool", p.ID),
		PoolID:          p.ID,
		Beneficiary:     beneficiary,
		Amount:          amount,
		SharesBurned:    shares,
		TotalAssets:     p.TotalAssets,
		TotalShares:     p.TotalShares,
	}
}

// SharesRedeemedEvent is raised when shares are redeemed for assets
type SharesRedeemedEvent struct {
	shared.BaseDomainEvent
	PoolID        uuid.UUID       `json:"pool_id"`
	Beneficiary   uuid.UUID       `json:"beneficiary"`
	AssetsOut     decimal.Decimal `json:"assets_out"`
	SharesBurned  decimal.Decimal `json:"shares_burned"`
	TotalAssets   decimal.Decimal `json:"total_assets"`
	TotalShares   decimal.Decimal `json:"total_shares"`
}

// EventType returns the event type name
func (e *SharesRedeemedEvent) EventType() string {
	return "SharesRedeemed"
}

// NewSharesRedeemedEvent creates a new SharesRedeemedEvent
func NewSharesRedeemedEvent(p *CapitalPool, beneficiary uuid.UUID, assetsOut, shares decimal.Decimal) *SharesRedeemedEvent {
	return &SharesRedeemedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("SharesRedeemed", "CapitalPool", p.ID),
		PoolID:          p.ID,
		Beneficiary:     beneficiary,
		AssetsOut:       assetsOut,
		SharesBurned:    shares,
		TotalAssets:     p.TotalAssets,
		TotalShares:     p.TotalShares,
	}
}

// CapitalDeployedEvent is raised when liquid capital moves into invoice funding
type CapitalDeployedEvent struct {
	shared.BaseDomainEvent
	PoolID            uuid.UUID       `json:"pool_id"`
	InvoiceID         uuid.UUID       `json:"invoice_id"`
	Amount            decimal.Decimal `json:"amount"`
	DeployedToInvoice decimal.Decimal `json:"deployed_to_invoices"`
}

// EventType returns the event type name
func (e *CapitalDeployedEvent) EventType() string {
	return "CapitalDeployed"
}

// NewCapitalDeployedEvent creates a new CapitalDeployedEvent
func NewCapitalDeployedEvent(p *CapitalPool, invoiceID uuid.UUID, amount decimal.Decimal) *CapitalDeployedEvent {
	return &CapitalDeployedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent("CapitalDeployed", "CapitalPool", p.ID),
		PoolID:            p.ID,
		InvoiceID:         invoiceID,
		Amount:            amount,
		DeployedToInvoice: p.TotalDeployedToInvoices,
	}
}

// RepaymentReceivedEvent is raised when invoice principal and yield return to the pool
type RepaymentReceivedEvent struct {
	shared.BaseDomainEvent
	PoolID      uuid.UUID       `json:"pool_id"`
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Principal   decimal.Decimal `json:"principal"`
	Yield       decimal.Decimal `json:"yield"`
	TotalAssets decimal.Decimal `json:"total_assets"`
}

// EventType returns the event type name
func (e *RepaymentReceivedEvent) EventType() string {
	return "RepaymentReceived"
}

// NewRepaymentReceivedEvent creates a new RepaymentReceivedEvent
func NewRepaymentReceivedEvent(p *CapitalPool, invoiceID uuid.UUID, principal, yield decimal.Decimal) *RepaymentReceivedEvent {
	return &RepaymentReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("RepaymentReceived", "CapitalPool", p.ID),
		PoolID:          p.ID,
		InvoiceID:       invoiceID,
		Principal:       principal,
		Yield:           yield,
		TotalAssets:     p.TotalAssets,
	}
}

// DefaultRecordedEvent is raised when deployed principal is written off
type DefaultRecordedEvent struct {
	shared.BaseDomainEvent
	PoolID      uuid.UUID       `json:"pool_id"`
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Principal   decimal.Decimal `json:"principal"`
	TotalAssets decimal.Decimal `json:"total_assets"`
}

// EventType returns the event type name
func (e *DefaultRecordedEvent) EventType() string {
	return "DefaultRecorded"
}

// NewDefaultRecordedEvent creates a new DefaultRecordedEvent
func NewDefaultRecordedEvent(p *CapitalPool, invoiceID uuid.UUID, principal decimal.Decimal) *DefaultRecordedEvent {
	return &DefaultRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("DefaultRecorded", "CapitalPool", p.ID),
		PoolID:          p.ID,
		InvoiceID:       invoiceID,
		Principal:       principal,
		TotalAssets:     p.TotalAssets,
	}
}

// TreasuryDeployedEvent is raised when liquid capital moves to the treasury allocator
type TreasuryDeployedEvent struct {
	shared.BaseDomainEvent
	PoolID             uuid.UUID       `json:"pool_id"`
	Amount             decimal.Decimal `json:"amount"`
	DeployedToTreasury decimal.Decimal `json:"deployed_to_treasury"`
}

// EventType returns the event type name
func (e *TreasuryDeployedEvent) EventType() string {
	return "TreasuryDeployed"
}

// NewTreasuryDeployedEvent creates a new TreasuryDeployedEvent
func NewTreasuryDeployedEvent(p *CapitalPool, amount decimal.Decimal) *TreasuryDeployedEvent {
	return &TreasuryDeployedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent("TreasuryDeployed", "CapitalPool", p.ID),
		PoolID:             p.ID,
		Amount:             amount,
		DeployedToTreasury: p.TotalDeployedToTreasury,
	}
}

// TreasuryReturnedEvent is raised when treasury capital returns to the pool
type TreasuryReturnedEvent struct {
	shared.BaseDomainEvent
	PoolID      uuid.UUID       `json:"pool_id"`
	Tracked     decimal.Decimal `json:"tracked"`
	Received    decimal.Decimal `json:"received"`
	TotalAssets decimal.Decimal `json:"total_assets"`
}

// EventType returns the event type name
func (e *TreasuryReturnedEvent) EventType() string {
	return "TreasuryReturned"
}

// NewTreasuryReturnedEvent creates a new TreasuryReturnedEvent
func NewTreasuryReturnedEvent(p *CapitalPool, tracked, received decimal.Decimal) *TreasuryReturnedEvent {
	return &TreasuryReturnedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("TreasuryReturned", "CapitalPool", p.ID),
		PoolID:          p.ID,
		Tracked:         tracked,
		Received:        received,
		TotalAssets:     p.TotalAssets,
	}
}

// PoolPausedEvent is raised when the pool is paused
type PoolPausedEvent struct {
	shared.BaseDomainEvent
	PoolID   uuid.UUID `json:"pool_id"`
	PausedAt time.Time `json:"paused_at"`
}

// EventType returns the event type name
func (e *PoolPausedEvent) EventType() string {
	return "PoolPaused"
}

// NewPoolPausedEvent creates a new PoolPausedEvent
func NewPoolPausedEvent(p *CapitalPool) *PoolPausedEvent {
	pausedAt := time.Now()
	if p.PausedAt != nil {
		pausedAt = *p.PausedAt
	}
	return &PoolPausedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PoolPaused", "CapitalPool", p.ID),
		PoolID:          p.ID,
		PausedAt:        pausedAt,
	}
}

// PoolUnpausedEvent is raised when the pool resumes operation
type PoolUnpausedEvent struct {
	shared.BaseDomainEvent
	PoolID uuid.UUID `json:"pool_id"`
}

// EventType returns the event type name
func (e *PoolUnpausedEvent) EventType() string {
	return "PoolUnpaused"
}

// NewPoolUnpausedEvent creates a new PoolUnpausedEvent
func NewPoolUnpausedEvent(p *CapitalPool) *PoolUnpausedEvent {
	return &PoolUnpausedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PoolUnpaused", "CapitalPool", p.ID),
		PoolID:          p.ID,
	}
}
