package invoice

import (
	"time"

	"github.com/google/uuid"
	"github.com/payflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceCreatedEvent is raised when a supplier registers a new invoice
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID       uuid.UUID       `json:"invoice_id"`
	InvoiceNumber   string          `json:"invoice_number"`
	Buyer           uuid.UUID       `json:"buyer"`
	Supplier        uuid.UUID       `json:"supplier"`
	FaceValue       decimal.Decimal `json:"face_value"`
	DiscountRateBps int64           `json:"discount_rate_bps"`
	MaturityDate    time.Time       `json:"maturity_date"`
}

// EventType returns the event type name
func (e *InvoiceCreatedEvent) EventType() string {
	return "InvoiceCreated"
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(i *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceCreated", "Invoice", i.ID),
		InvoiceID:       i.ID,
		InvoiceNumber:   i.InvoiceNumber,
		Buyer:           i.Buyer,
		Supplier:        i.Supplier,
		FaceValue:       i.FaceValue,
		DiscountRateBps: i.DiscountRateBps,
		MaturityDate:    i.MaturityDate,
	}
}

// InvoiceApprovedEvent is raised when the buyer acknowledges the debt
type InvoiceApprovedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	Buyer         uuid.UUID `json:"buyer"`
	ApprovedAt    time.Time `json:"approved_at"`
}

// EventType returns the event type name
func (e *InvoiceApprovedEvent) EventType() string {
	return "InvoiceApproved"
}

// NewInvoiceApprovedEvent creates a new InvoiceApprovedEvent
func NewInvoiceApprovedEvent(i *Invoice) *InvoiceApprovedEvent {
	approvedAt := time.Now()
	if i.ApprovedAt != nil {
		approvedAt = *i.ApprovedAt
	}
	return &InvoiceApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceApproved", "Invoice", i.ID),
		InvoiceID:       i.ID,
		InvoiceNumber:   i.InvoiceNumber,
		Buyer:           i.Buyer,
		ApprovedAt:      approvedAt,
	}
}

// FundingApprovedEvent is raised when the operator freezes the financing economics
type FundingApprovedEvent struct {
	shared.BaseDomainEvent
	InvoiceID      uuid.UUID       `json:"invoice_id"`
	InvoiceNumber  string          `json:"invoice_number"`
	FaceValue      decimal.Decimal `json:"face_value"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FundingAmount  decimal.Decimal `json:"funding_amount"`
}

// EventType returns the event type name
func (e *FundingApprovedEvent) EventType() string {
	return "FundingApproved"
}

// NewFundingApprovedEvent creates a new FundingApprovedEvent
func NewFundingApprovedEvent(i *Invoice) *FundingApprovedEvent {
	return &FundingApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("FundingApproved", "Invoice", i.ID),
		InvoiceID:       i.ID,
		InvoiceNumber:   i.InvoiceNumber,
		FaceValue:       i.FaceValue,
		DiscountAmount:  i.DiscountAmount,
		FundingAmount:   i.FundingAmount,
	}
}

// InvoiceFundedEvent is raised when the supplier has been paid early
type InvoiceFundedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Supplier      uuid.UUID       `json:"supplier"`
	FundingAmount decimal.Decimal `json:"funding_amount"`
	FundedAt      time.Time       `json:"funded_at"`
}

// EventType returns the event type name
func (e *InvoiceFundedEvent) EventType() string {
	return "InvoiceFunded"
}

// NewInvoiceFundedEvent creates a new InvoiceFundedEvent
func NewInvoiceFundedEvent(i *Invoice) *InvoiceFundedEvent {
	fundedAt := time.Now()
	if i.FundedAt != nil {
		fundedAt = *i.FundedAt
	}
	return &InvoiceFundedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceFunded", "Invoice", i.ID),
		InvoiceID:       i.ID,
		InvoiceNumber:   i.InvoiceNumber,
		Supplier:        i.Supplier,
		FundingAmount:   i.FundingAmount,
		FundedAt:        fundedAt,
	}
}

// InvoicePaidEvent is raised when the buyer settles at face value
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Buyer         uuid.UUID       `json:"buyer"`
	FaceValue     decimal.Decimal `json:"face_value"`
	Yield         decimal.Decimal `json:"yield"`
	PaidAt        time.Time       `json:"paid_at"`
}

// EventType returns the event type name
func (e *InvoicePaidEvent) EventType() string {
	return "InvoicePaid"
}

// NewInvoicePaidEvent creates a new InvoicePaidEvent
func NewInvoicePaidEvent(i *Invoice) *InvoicePaidEvent {
	paidAt := time.Now()
	if i.PaidAt != nil {
		paidAt = *i.PaidAt
	}
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoicePaid", "Invoice", i.ID),
		InvoiceID:       i.ID,
		InvoiceNumber:   i.InvoiceNumber,
		Buyer:           i.Buyer,
		FaceValue:       i.FaceValue,
		Yield:           i.Yield(),
		PaidAt:          paidAt,
	}
}

// InvoiceDefaultedEvent is raised when the operator writes off a funded invoice
type InvoiceDefaultedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Buyer         uuid.UUID       `json:"buyer"`
	FundingAmount decimal.Decimal `json:"funding_amount"`
	DefaultedAt   time.Time       `json:"defaulted_at"`
}

// EventType returns the event type name
func (e *InvoiceDefaultedEvent) EventType() string {
	return "InvoiceDefaulted"
}

// NewInvoiceDefaultedEvent creates a new InvoiceDefaultedEvent
func NewInvoiceDefaultedEvent(i *Invoice) *InvoiceDefaultedEvent {
	defaultedAt := time.Now()
	if i.DefaultedAt != nil {
		defaultedAt = *i.DefaultedAt
	}
	return &InvoiceDefaultedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceDefaulted", "Invoice", i.ID),
		InvoiceID:       i.ID,
		InvoiceNumber:   i.InvoiceNumber,
		Buyer:           i.Buyer,
		FundingAmount:   i.FundingAmount,
		DefaultedAt:     defaultedAt,
	}
}

// InvoiceCancelledEvent is raised when an invoice is withdrawn before funding
type InvoiceCancelledEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	CancelReason  string    `json:"cancel_reason"`
	CancelledAt   time.Time `json:"cancelled_at"`
}

// EventType returns the event type name
func (e *InvoiceCancelledEvent) EventType() string {
	return "InvoiceCancelled"
}

// NewInvoiceCancelledEvent creates a new InvoiceCancelledEvent
func NewInvoiceCancelledEvent(i *Invoice) *InvoiceCancelledEvent {
	cancelledAt := time.Now()
	if i.CancelledAt != nil {
		cancelledAt = *i.CancelledAt
	}
	return &InvoiceCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceCancelled", "Invoice", i.ID),
		InvoiceID:       i.ID,
		InvoiceNumber:   i.InvoiceNumber,
		CancelReason:    i.CancelReason,
		CancelledAt:     cancelledAt,
	}
}
