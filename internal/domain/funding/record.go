package funding

import (
	"time"

	"github.com/google/uuid"
	"github.com/payflow/backend/internal/domain/shared"
	"github.com/payflow/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// FundingRecord is the execution ledger's per-invoice record. It admits at
// most one funding and at most one repayment; the repayment amount always
// equals the recorded face value and yield is face value minus funding
// amount, computed once.
type FundingRecord struct {
	shared.BaseAggregateRoot
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	Supplier      uuid.UUID       `json:"supplier"`
	FundingAmount decimal.Decimal `json:"funding_amount"`
	FaceValue     decimal.Decimal `json:"face_value"`
	FundedAt      time.Time       `json:"funded_at"`
	Funded        bool            `json:"funded"`
	Repaid        bool            `json:"repaid"`
	RepaidAt      *time.Time      `json:"repaid_at"`
	Defaulted     bool            `json:"defaulted"`
	DefaultedAt   *time.Time      `json:"defaulted_at"`
}

// NewFundingRecord records a funding execution. The record is created at the
// moment capital is deployed, so it is born funded.
func NewFundingRecord(invoiceID, supplier uuid.UUID, fundingAmount, faceValue valueobject.Money) (*FundingRecord, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	if supplier == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SUPPLIER", "Supplier cannot be empty")
	}
	if !fundingAmount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Funding amount must be positive")
	}
	if faceValue.Amount().LessThan(fundingAmount.Amount()) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Face value cannot be below the funding amount")
	}

	r := &FundingRecord{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceID:         invoiceID,
		Supplier:          supplier,
		FundingAmount:     fundingAmount.Amount(),
		FaceValue:         faceValue.Amount(),
		FundedAt:          time.Now(),
		Funded:            true,
	}

	r.AddDomainEvent(NewRecordFundedEvent(r))
	return r, nil
}

// Yield returns face value minus funding amount
func (r *FundingRecord) Yield() decimal.Decimal {
	return r.FaceValue.Sub(r.FundingAmount)
}

// MarkRepaid settles the record. Rejected when not funded or already
// settled; the caller must not retry a conflict blindly.
func (r *FundingRecord) MarkRepaid() error {
	if !r.Funded {
		return shared.ErrNotFunded
	}
	if r.Repaid {
		return shared.ErrAlreadyRepaid
	}
	if r.Defaulted {
		return shared.ErrInvalidState
	}

	now := time.Now()
	r.Repaid = true
	r.RepaidAt = &now
	r.IncrementVersion()

	r.AddDomainEvent(NewRecordRepaidEvent(r))
	return nil
}

// MarkDefaulted writes the record off. The deployed principal will not
// return to the pool.
func (r *FundingRecord) MarkDefaulted() error {
	if !r.Funded {
		return shared.ErrNotFunded
	}
	if r.Repaid {
		return shared.ErrAlreadyRepaid
	}
	if r.Defaulted {
		return shared.ErrInvalidState
	}

	now := time.Now()
	r.Defaulted = true
	r.DefaultedAt = &now
	r.IncrementVersion()

	r.AddDomainEvent(NewRecordDefaultedEvent(r))
	return nil
}

// IsSettled returns true once the record is repaid or defaulted
func (r *FundingRecord) IsSettled() bool {
	return r.Repaid || r.Defaulted
}
