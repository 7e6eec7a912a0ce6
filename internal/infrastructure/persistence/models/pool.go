package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/payflow/backend/internal/domain/pool"
	"github.com/shopspring/decimal"
)

// CapitalPoolModel is the persistence model for the CapitalPool aggregate root.
// The pool is a singleton row.
type CapitalPoolModel struct {
	AggregateModel
	TotalAssets             decimal.Decimal `gorm:"type:decimal(18,8);not null"`
	TotalShares             decimal.Decimal `gorm:"type:decimal(28,8);not null"`
	LiquidBalance           decimal.Decimal `gorm:"type:decimal(18,8);not null"`
	TotalDeployedToInvoices decimal.Decimal `gorm:"type:decimal(18,8);not null"`
	TotalDeployedToTreasury decimal.Decimal `gorm:"type:decimal(18,8);not null"`
	Paused                  bool            `gorm:"not null;default:false"`
	PausedAt                *time.Time
}

// TableName returns the table name for GORM
func (CapitalPoolModel) TableName() string {
	return "capital_pools"
}

// ToDomain converts the persistence model to a domain CapitalPool aggregate.
func (m *CapitalPoolModel) ToDomain() *pool.CapitalPool {
	return &pool.CapitalPool{
		BaseAggregateRoot:       m.toDomainAggregateRoot(),
		TotalAssets:             m.TotalAssets,
		TotalShares:             m.TotalShares,
		LiquidBalance:           m.LiquidBalance,
		TotalDeployedToInvoices: m.TotalDeployedToInvoices,
		TotalDeployedToTreasury: m.TotalDeployedToTreasury,
		Paused:                  m.Paused,
		PausedAt:                m.PausedAt,
	}
}

// FromDomain populates the persistence model from a domain CapitalPool aggregate.
func (m *CapitalPoolModel) FromDomain(p *pool.CapitalPool) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.TotalAssets = p.TotalAssets
	m.TotalShares = p.TotalShares
	m.LiquidBalance = p.LiquidBalance
	m.TotalDeployedToInvoices = p.TotalDeployedToInvoices
	m.TotalDeployedToTreasury = p.TotalDeployedToTreasury
	m.Paused = p.Paused
	m.PausedAt = p.PausedAt
}

// CapitalPoolModelFromDomain creates a new persistence model from a domain CapitalPool.
func CapitalPoolModelFromDomain(p *pool.CapitalPool) *CapitalPoolModel {
	m := &CapitalPoolModel{}
	m.FromDomain(p)
	return m
}

// ShareHolderModel is the persistence model for pool share balances.
type ShareHolderModel struct {
	BaseModel
	Holder uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	Shares decimal.Decimal `gorm:"type:decimal(28,8);not null"`
}

// TableName returns the table name for GORM
func (ShareHolderModel) TableName() string {
	return "share_holders"
}

// ToDomain converts the persistence model to a domain ShareHolder.
func (m *ShareHolderModel) ToDomain() *pool.ShareHolder {
	return &pool.ShareHolder{
		BaseEntity: m.BaseModel.ToDomain(),
		Holder:     m.Holder,
		Shares:     m.Shares,
	}
}

// FromDomain populates the persistence model from a domain ShareHolder.
func (m *ShareHolderModel) FromDomain(h *pool.ShareHolder) {
	m.FromDomainBaseEntity(h.BaseEntity)
	m.Holder = h.Holder
	m.Shares = h.Shares
}

// ShareHolderModelFromDomain creates a new persistence model from a domain ShareHolder.
func ShareHolderModelFromDomain(h *pool.ShareHolder) *ShareHolderModel {
	m := &ShareHolderModel{}
	m.FromDomain(h)
	return m
}
