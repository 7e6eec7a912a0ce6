package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/payflow/backend/internal/domain/funding"
	"github.com/shopspring/decimal"
)

// FundingRecordModel is the persistence model for the FundingRecord aggregate root.
// The unique index on invoice ID is the durable idempotency guard for funding.
type FundingRecordModel struct {
	AggregateModel
	InvoiceID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	Supplier      uuid.UUID       `gorm:"type:uuid;not null;index"`
	FundingAmount decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	FaceValue     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	FundedAt      time.Time       `gorm:"not null"`
	Funded        bool            `gorm:"not null;default:true"`
	Repaid        bool            `gorm:"not null;default:false;index"`
	RepaidAt      *time.Time
	Defaulted     bool `gorm:"not null;default:false;index"`
	DefaultedAt   *time.Time
}

// TableName returns the table name for GORM
func (FundingRecordModel) TableName() string {
	return "funding_records"
}

// ToDomain converts the persistence model to a domain FundingRecord aggregate.
func (m *FundingRecordModel) ToDomain() *funding.FundingRecord {
	return &funding.FundingRecord{
		BaseAggregateRoot: m.toDomainAggregateRoot(),
		InvoiceID:         m.InvoiceID,
		Supplier:          m.Supplier,
		FundingAmount:     m.FundingAmount,
		FaceValue:         m.FaceValue,
		FundedAt:          m.FundedAt,
		Funded:            m.Funded,
		Repaid:            m.Repaid,
		RepaidAt:          m.RepaidAt,
		Defaulted:         m.Defaulted,
		DefaultedAt:       m.DefaultedAt,
	}
}

// FromDomain populates the persistence model from a domain FundingRecord aggregate.
func (m *FundingRecordModel) FromDomain(r *funding.FundingRecord) {
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	m.InvoiceID = r.InvoiceID
	m.Supplier = r.Supplier
	m.FundingAmount = r.FundingAmount
	m.FaceValue = r.FaceValue
	m.FundedAt = r.FundedAt
	m.Funded = r.Funded
	m.Repaid = r.Repaid
	m.RepaidAt = r.RepaidAt
	m.Defaulted = r.Defaulted
	m.DefaultedAt = r.DefaultedAt
}

// FundingRecordModelFromDomain creates a new persistence model from a domain FundingRecord.
func FundingRecordModelFromDomain(r *funding.FundingRecord) *FundingRecordModel {
	m := &FundingRecordModel{}
	m.FromDomain(r)
	return m
}

// LedgerModel is the persistence model for the execution ledger counters.
// It is a singleton row.
type LedgerModel struct {
	AggregateModel
	TotalFunded    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	TotalRepaid    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	TotalYield     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	TotalDefaulted decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ActiveInvoices int64           `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (LedgerModel) TableName() string {
	return "execution_ledgers"
}

// ToDomain converts the persistence model to a domain Ledger aggregate.
func (m *LedgerModel) ToDomain() *funding.Ledger {
	return &funding.Ledger{
		BaseAggregateRoot: m.toDomainAggregateRoot(),
		TotalFunded:       m.TotalFunded,
		TotalRepaid:       m.TotalRepaid,
		TotalYield:        m.TotalYield,
		TotalDefaulted:    m.TotalDefaulted,
		ActiveInvoices:    m.ActiveInvoices,
	}
}

// FromDomain populates the persistence model from a domain Ledger aggregate.
func (m *LedgerModel) FromDomain(l *funding.Ledger) {
	m.FromDomainAggregateRoot(l.BaseAggregateRoot)
	m.TotalFunded = l.TotalFunded
	m.TotalRepaid = l.TotalRepaid
	m.TotalYield = l.TotalYield
	m.TotalDefaulted = l.TotalDefaulted
	m.ActiveInvoices = l.ActiveInvoices
}

// LedgerModelFromDomain creates a new persistence model from a domain Ledger.
func LedgerModelFromDomain(l *funding.Ledger) *LedgerModel {
	m := &LedgerModel{}
	m.FromDomain(l)
	return m
}
