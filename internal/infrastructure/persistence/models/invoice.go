package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/payflow/backend/internal/domain/invoice"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	AggregateModel
	InvoiceNumber   string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Buyer           uuid.UUID       `gorm:"type:uuid;not null;index"`
	Supplier        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Creator         uuid.UUID       `gorm:"type:uuid;not null"`
	FaceValue       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	DiscountRateBps int64           `gorm:"not null"`
	MaturityDate    time.Time       `gorm:"not null;index"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	FundingAmount   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Status          invoice.Status  `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	ApprovedAt      *time.Time
	FundingApproved *time.Time
	FundedAt        *time.Time
	PaidAt          *time.Time
	DefaultedAt     *time.Time
	CancelledAt     *time.Time
	CancelReason    string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice aggregate.
func (m *InvoiceModel) ToDomain() *invoice.Invoice {
	return &invoice.Invoice{
		BaseAggregateRoot: m.toDomainAggregateRoot(),
		InvoiceNumber:     m.InvoiceNumber,
		Buyer:             m.Buyer,
		Supplier:          m.Supplier,
		Creator:           m.Creator,
		FaceValue:         m.FaceValue,
		DiscountRateBps:   m.DiscountRateBps,
		MaturityDate:      m.MaturityDate,
		DiscountAmount:    m.DiscountAmount,
		FundingAmount:     m.FundingAmount,
		Status:            m.Status,
		ApprovedAt:        m.ApprovedAt,
		FundingApproved:   m.FundingApproved,
		FundedAt:          m.FundedAt,
		PaidAt:            m.PaidAt,
		DefaultedAt:       m.DefaultedAt,
		CancelledAt:       m.CancelledAt,
		CancelReason:      m.CancelReason,
	}
}

// FromDomain populates the persistence model from a domain Invoice aggregate.
func (m *InvoiceModel) FromDomain(inv *invoice.Invoice) {
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	m.InvoiceNumber = inv.InvoiceNumber
	m.Buyer = inv.Buyer
	m.Supplier = inv.Supplier
	m.Creator = inv.Creator
	m.FaceValue = inv.FaceValue
	m.DiscountRateBps = inv.DiscountRateBps
	m.MaturityDate = inv.MaturityDate
	m.DiscountAmount = inv.DiscountAmount
	m.FundingAmount = inv.FundingAmount
	m.Status = inv.Status
	m.ApprovedAt = inv.ApprovedAt
	m.FundingApproved = inv.FundingApproved
	m.FundedAt = inv.FundedAt
	m.PaidAt = inv.PaidAt
	m.DefaultedAt = inv.DefaultedAt
	m.CancelledAt = inv.CancelledAt
	m.CancelReason = inv.CancelReason
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice.
func InvoiceModelFromDomain(inv *invoice.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}
