package funding

import (
	"time"

	"github.com/google/uuid"
	"github.com/payflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// RecordFundedEvent is raised when capital is deployed and the supplier paid
type RecordFundedEvent struct {
	shared.BaseDomainEvent
	RecordID      uuid.UUID       `json:"record_id"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	Supplier      uuid.UUID       `json:"supplier"`
	FundingAmount decimal.Decimal `json:"funding_amount"`
	FaceValue     decimal.Decimal `json:"face_value"`
	FundedAt      time.Time       `json:"funded_at"`
}

// EventType returns the event type name
func (e *RecordFundedEvent) EventType() string {
	return "FundingRecordFunded"
}

// NewRecordFundedEvent creates a new RecordFundedEvent
func NewRecordFundedEvent(r *FundingRecord) *RecordFundedEvent {
	return &RecordFundedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("FundingRecordFunded", "FundingRecord", r.ID),
		RecordID:        r.ID,
		InvoiceID:       r.InvoiceID,
		Supplier:        r.Supplier,
		FundingAmount:   r.FundingAmount,
		FaceValue:       r.FaceValue,
		FundedAt:        r.FundedAt,
	}
}

// RecordRepaidEvent is raised when face value returns and yield is realized
type RecordRepaidEvent struct {
	shared.BaseDomainEvent
	RecordID  uuid.UUID       `json:"record_id"`
	InvoiceID uuid.UUID       `json:"invoice_id"`
	FaceValue decimal.Decimal `json:"face_value"`
	Yield     decimal.Decimal `json:"yield"`
	RepaidAt  time.Time       `json:"repaid_at"`
}

// EventType returns the event type name
func (e *RecordRepaidEvent) EventType() string {
	return "FundingRecordRepaid"
}

// NewRecordRepaidEvent creates a new RecordRepaidEvent
func NewRecordRepaidEvent(r *FundingRecord) *RecordRepaidEvent {
	repaidAt := time.Now()
	if r.RepaidAt != nil {
		repaidAt = *r.RepaidAt
	}
	return &RecordRepaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("FundingRecordRepaid", "FundingRecord", r.ID),
		RecordID:        r.ID,
		InvoiceID:       r.InvoiceID,
		FaceValue:       r.FaceValue,
		Yield:           r.Yield(),
		RepaidAt:        repaidAt,
	}
}

// RecordDefaultedEvent is raised when a funding is written off
type RecordDefaultedEvent struct {
	shared.BaseDomainEvent
	RecordID      uuid.UUID       `json:"record_id"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	FundingAmount decimal.Decimal `json:"funding_amount"`
	DefaultedAt   time.Time       `json:"defaulted_at"`
}

// EventType returns the event type name
func (e *RecordDefaultedEvent) EventType() string {
	return "FundingRecordDefaulted"
}

// NewRecordDefaultedEvent creates a new RecordDefaultedEvent
func NewRecordDefaultedEvent(r *FundingRecord) *RecordDefaultedEvent {
	defaultedAt := time.Now()
	if r.DefaultedAt != nil {
		defaultedAt = *r.DefaultedAt
	}
	return &RecordDefaultedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("FundingRecordDefaulted", "FundingRecord", r.ID),
		RecordID:        r.ID,
		InvoiceID:       r.InvoiceID,
		FundingAmount:   r.FundingAmount,
		DefaultedAt:     defaultedAt,
	}
}
