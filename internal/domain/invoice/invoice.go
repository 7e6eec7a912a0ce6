package invoice

import (
	"time"

	"github.com/google/uuid"
	"github.com/payflow/backend/internal/domain/shared"
	"github.com/payflow/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// SecondsPerYear is the annualization base for discount computation
const SecondsPerYear int64 = 365 * 24 * 3600

// amountPrecision is the number of decimal places carried by settlement amounts
const amountPrecision int32 = 2

// Status represents the lifecycle state of an invoice
type Status string

const (
	StatusPending         Status = "PENDING"          // Created, awaiting buyer approval
	StatusApproved        Status = "APPROVED"         // Buyer acknowledged the debt
	StatusFundingApproved Status = "FUNDING_APPROVED" // Operator approved financing, economics frozen
	StatusFunded          Status = "FUNDED"           // Supplier paid early, capital deployed
	StatusPaid            Status = "PAID"             // Buyer repaid face value
	StatusDefaulted       Status = "DEFAULTED"        // Operator wrote off the funding
	StatusCancelled       Status = "CANCELLED"        // Withdrawn before funding approval
)

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusFundingApproved,
		StatusFunded, StatusPaid, StatusDefaulted, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if the invoice is in a terminal state
func (s Status) IsTerminal() bool {
	return s == StatusPaid || s == StatusDefaulted || s == StatusCancelled
}

// CanCancel returns true if the invoice may still be withdrawn
func (s Status) CanCancel() bool {
	return s == StatusPending || s == StatusApproved
}

// Invoice is the aggregate root for a supplier receivable moving through the
// financing lifecycle:
//
//	Pending -> Approved -> FundingApproved -> Funded -> Paid
//
// with Funded -> Defaulted as the loss branch and Pending|Approved ->
// Cancelled as the early exit. FundingAmount and DiscountAmount are computed
// once when financing is approved and never recomputed, so late execution
// cannot change the economics agreed at approval.
type Invoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber   string          `json:"invoice_number"`
	Buyer           uuid.UUID       `json:"buyer"`
	Supplier        uuid.UUID       `json:"supplier"`
	Creator         uuid.UUID       `json:"creator"`
	FaceValue       decimal.Decimal `json:"face_value"`
	DiscountRateBps int64           `json:"discount_rate_bps"` // annualized
	MaturityDate    time.Time       `json:"maturity_date"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"` // frozen at funding approval
	FundingAmount   decimal.Decimal `json:"funding_amount"`  // frozen at funding approval
	Status          Status          `json:"status"`
	ApprovedAt      *time.Time      `json:"approved_at"`
	FundingApproved *time.Time      `json:"funding_approved_at"`
	FundedAt        *time.Time      `json:"funded_at"`
	PaidAt          *time.Time      `json:"paid_at"`
	DefaultedAt     *time.Time      `json:"defaulted_at"`
	CancelledAt     *time.Time      `json:"cancelled_at"`
	CancelReason    string          `json:"cancel_reason"`
}

// NewInvoice creates a pending invoice registered by the supplier (or an
// operator acting for it)
func NewInvoice(
	invoiceNumber string,
	buyer uuid.UUID,
	supplier uuid.UUID,
	creator shared.Actor,
	faceValue valueobject.Money,
	discountRateBps int64,
	maturityDate time.Time,
) (*Invoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if len(invoiceNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot exceed 50 characters")
	}
	if buyer == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BUYER", "Buyer cannot be empty")
	}
	if supplier == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SUPPLIER", "Supplier cannot be empty")
	}
	if buyer == supplier {
		return nil, shared.NewDomainError("INVALID_PARTIES", "Buyer and supplier must differ")
	}
	if faceValue.Currency() != valueobject.SettlementCurrency {
		return nil, shared.ErrAssetMismatch
	}
	if !faceValue.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Face value must be positive")
	}
	if discountRateBps <= 0 || discountRateBps >= 10_000 {
		return nil, shared.NewDomainError("INVALID_RATE", "Discount rate must be in (0, 10000) basis points")
	}
	if !maturityDate.After(time.Now()) {
		return nil, shared.NewDomainError("INVALID_MATURITY", "Maturity date must be in the future")
	}
	if !creator.IsOperator() && !creator.Is(supplier) {
		return nil, shared.ErrUnauthorized
	}

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceNumber:     invoiceNumber,
		Buyer:             buyer,
		Supplier:          supplier,
		Creator:           creator.ID,
		FaceValue:         faceValue.Amount(),
		DiscountRateBps:   discountRateBps,
		MaturityDate:      maturityDate,
		DiscountAmount:    decimal.Zero,
		FundingAmount:     decimal.Zero,
		Status:            StatusPending,
	}

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))
	return inv, nil
}

// ===================== Transitions =====================

// Approve moves Pending -> Approved. Only the buyer may acknowledge the debt.
func (i *Invoice) Approve(actor shared.Actor) error {
	if !actor.Is(i.Buyer) {
		return shared.ErrUnauthorized
	}
	if i.Status != StatusPending {
		return shared.ErrInvalidState
	}

	now := time.Now()
	i.Status = StatusApproved
	i.ApprovedAt = &now
	i.IncrementVersion()

	i.AddDomainEvent(NewInvoiceApprovedEvent(i))
	return nil
}

// ApproveFunding moves Approved -> FundingApproved and freezes the
// economics: the discount is computed from the time remaining to maturity at
// this moment and never recomputed. Operator only.
func (i *Invoice) ApproveFunding(actor shared.Actor, now time.Time) error {
	if !actor.IsOperator() {
		return shared.ErrUnauthorized
	}
	if i.Status != StatusApproved {
		return shared.ErrInvalidState
	}
	if !i.MaturityDate.After(now) {
		return shared.NewDomainError("INVALID_MATURITY", "Invoice has already matured")
	}

	i.DiscountAmount = ComputeDiscount(i.FaceValue, i.DiscountRateBps, i.MaturityDate.Sub(now))
	i.FundingAmount = i.FaceValue.Sub(i.DiscountAmount)
	i.Status = StatusFundingApproved
	t := now
	i.FundingApproved = &t
	i.IncrementVersion()

	i.AddDomainEvent(NewFundingApprovedEvent(i))
	return nil
}

// MarkFunded moves FundingApproved -> Funded once the ledger has deployed
// capital. The supplier or an operator may request funding.
func (i *Invoice) MarkFunded(actor shared.Actor) error {
	if !actor.IsOperator() && !actor.Is(i.Supplier) {
		return shared.ErrUnauthorized
	}
	if i.Status != StatusFundingApproved {
		return shared.ErrInvalidState
	}

	now := time.Now()
	i.Status = StatusFunded
	i.FundedAt = &now
	i.IncrementVersion()

	i.AddDomainEvent(NewInvoiceFundedEvent(i))
	return nil
}

// MarkRepaid moves Funded -> Paid. The buyer or an operator may settle.
func (i *Invoice) MarkRepaid(actor shared.Actor) error {
	if !actor.IsOperator() && !actor.Is(i.Buyer) {
		return shared.ErrUnauthorized
	}
	if i.Status != StatusFunded {
		return shared.ErrInvalidState
	}

	now := time.Now()
	i.Status = StatusPaid
	i.PaidAt = &now
	i.IncrementVersion()

	i.AddDomainEvent(NewInvoicePaidEvent(i))
	return nil
}

// MarkDefaulted moves Funded -> Defaulted. Operator only, and only an
// explicit action: overdue invoices never transition on their own.
func (i *Invoice) MarkDefaulted(actor shared.Actor) error {
	if !actor.IsOperator() {
		return shared.ErrUnauthorized
	}
	if i.Status != StatusFunded {
		return shared.ErrInvalidState
	}

	now := time.Now()
	i.Status = StatusDefaulted
	i.DefaultedAt = &now
	i.IncrementVersion()

	i.AddDomainEvent(NewInvoiceDefaultedEvent(i))
	return nil
}

// Cancel withdraws an invoice before funding approval. The creator or an
// operator may cancel.
func (i *Invoice) Cancel(actor shared.Actor, reason string) error {
	if !actor.IsOperator() && !actor.Is(i.Creator) {
		return shared.ErrUnauthorized
	}
	if !i.Status.CanCancel() {
		return shared.ErrInvalidState
	}

	now := time.Now()
	i.Status = StatusCancelled
	i.CancelledAt = &now
	i.CancelReason = reason
	i.IncrementVersion()

	i.AddDomainEvent(NewInvoiceCancelledEvent(i))
	return nil
}

// ===================== Views =====================

// IsOverdue reports whether a funded invoice is past maturity. Purely
// observational; marking default is a separate operator action.
func (i *Invoice) IsOverdue(now time.Time) bool {
	return i.Status == StatusFunded && now.After(i.MaturityDate)
}

// Yield returns face value minus funding amount, the pool's return on the
// invoice. Zero until funding is approved.
func (i *Invoice) Yield() decimal.Decimal {
	if i.FundingAmount.IsZero() {
		return decimal.Zero
	}
	return i.FaceValue.Sub(i.FundingAmount)
}

// ComputeDiscount returns faceValue * rateBps * secondsToMaturity /
// (10000 * SecondsPerYear), rounded to the settlement precision
func ComputeDiscount(faceValue decimal.Decimal, rateBps int64, toMaturity time.Duration) decimal.Decimal {
	seconds := decimal.NewFromInt(int64(toMaturity / time.Second))
	return faceValue.
		Mul(decimal.NewFromInt(rateBps)).
		Mul(seconds).
		Div(decimal.NewFromInt(10_000).Mul(decimal.NewFromInt(SecondsPerYear))).
		Round(amountPrecision)
}
