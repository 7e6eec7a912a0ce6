package funding

import (
	"github.com/payflow/backend/internal/domain/shared"
	"github.com/payflow/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Ledger holds the execution ledger's aggregate counters. Singleton row,
// mutated in the same transaction as the funding record it accounts for.
type Ledger struct {
	shared.BaseAggregateRoot
	TotalFunded    decimal.Decimal `json:"total_funded"`    // cumulative funding paid to suppliers
	TotalRepaid    decimal.Decimal `json:"total_repaid"`    // cumulative face value received
	TotalYield     decimal.Decimal `json:"total_yield"`     // cumulative realized yield
	TotalDefaulted decimal.Decimal `json:"total_defaulted"` // cumulative written-off principal
	ActiveInvoices int64           `json:"active_invoices"` // funded, not yet settled
}

// NewLedger creates an empty execution ledger
func NewLedger() *Ledger {
	return &Ledger{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		TotalFunded:       decimal.Zero,
		TotalRepaid:       decimal.Zero,
		TotalYield:        decimal.Zero,
		TotalDefaulted:    decimal.Zero,
	}
}

// RecordFunding accounts for a funding execution
func (l *Ledger) RecordFunding(fundingAmount valueobject.Money) error {
	if !fundingAmount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Funding amount must be positive")
	}
	l.TotalFunded = l.TotalFunded.Add(fundingAmount.Amount())
	l.ActiveInvoices++
	l.IncrementVersion()
	return nil
}

// RecordRepayment accounts for a settlement at face value
func (l *Ledger) RecordRepayment(faceValue, yield valueobject.Money) error {
	if !faceValue.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Face value must be positive")
	}
	if yield.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Yield cannot be negative")
	}
	if l.ActiveInvoices == 0 {
		return shared.ErrInvalidState
	}
	l.TotalRepaid = l.TotalRepaid.Add(faceValue.Amount())
	l.TotalYield = l.TotalYield.Add(yield.Amount())
	l.ActiveInvoices--
	l.IncrementVersion()
	return nil
}

// RecordDefault accounts for a written-off funding
func (l *Ledger) RecordDefault(fundingAmount valueobject.Money) error {
	if !fundingAmount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Funding amount must be positive")
	}
	if l.ActiveInvoices == 0 {
		return shared.ErrInvalidState
	}
	l.TotalDefaulted = l.TotalDefaulted.Add(fundingAmount.Amount())
	l.ActiveInvoices--
	l.IncrementVersion()
	return nil
}
