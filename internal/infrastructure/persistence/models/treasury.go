package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/payflow/backend/internal/domain/treasury"
	"github.com/shopspring/decimal"
)

// AllocatorModel is the persistence model for the treasury Allocator aggregate root.
// The allocator is a singleton row; its strategies are stored in their own table
// and loaded ordered by position.
type AllocatorModel struct {
	AggregateModel
	IdleBalance          decimal.Decimal `gorm:"type:decimal(18,8);not null"`
	MaxStrategies        int             `gorm:"not null"`
	SlippageToleranceBps int64           `gorm:"not null"`
	RebalanceCooldownSec int64           `gorm:"not null"`
	LastRebalance        *time.Time
	Strategies           []StrategyModel `gorm:"foreignKey:AllocatorID;references:ID"`
}

// TableName returns the table name for GORM
func (AllocatorModel) TableName() string {
	return "treasury_allocators"
}

// ToDomain converts the persistence model to a domain Allocator aggregate.
func (m *AllocatorModel) ToDomain() *treasury.Allocator {
	a := &treasury.Allocator{
		BaseAggregateRoot:    m.toDomainAggregateRoot(),
		IdleBalance:          m.IdleBalance,
		MaxStrategies:        m.MaxStrategies,
		SlippageToleranceBps: m.SlippageToleranceBps,
		RebalanceCooldown:    time.Duration(m.RebalanceCooldownSec) * time.Second,
		LastRebalance:        m.LastRebalance,
		Strategies:           make([]*treasury.Strategy, len(m.Strategies)),
	}
	for i, s := range m.Strategies {
		a.Strategies[i] = s.ToDomain()
	}
	return a
}

// FromDomain populates the persistence model from a domain Allocator aggregate.
func (m *AllocatorModel) FromDomain(a *treasury.Allocator) {
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	m.IdleBalance = a.IdleBalance
	m.MaxStrategies = a.MaxStrategies
	m.SlippageToleranceBps = a.SlippageToleranceBps
	m.RebalanceCooldownSec = int64(a.RebalanceCooldown / time.Second)
	m.LastRebalance = a.LastRebalance
	m.Strategies = make([]StrategyModel, len(a.Strategies))
	for i, s := range a.Strategies {
		m.Strategies[i] = *StrategyModelFromDomain(a.ID, s)
	}
}

// AllocatorModelFromDomain creates a new persistence model from a domain Allocator.
func AllocatorModelFromDomain(a *treasury.Allocator) *AllocatorModel {
	m := &AllocatorModel{}
	m.FromDomain(a)
	return m
}

// StrategyModel is the persistence model for a registered yield strategy.
type StrategyModel struct {
	BaseModel
	AllocatorID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name        string          `gorm:"type:varchar(100);not null;uniqueIndex"`
	Weight      int64           `gorm:"not null"`
	Deposited   decimal.Decimal `gorm:"type:decimal(18,8);not null"`
	Active      bool            `gorm:"not null;default:true"`
	Position    int             `gorm:"not null;index"`
	AddedAt     time.Time       `gorm:"not null"`
	LastHarvest *time.Time
}

// TableName returns the table name for GORM
func (StrategyModel) TableName() string {
	return "treasury_strategies"
}

// ToDomain converts the persistence model to a domain Strategy.
func (m *StrategyModel) ToDomain() *treasury.Strategy {
	return &treasury.Strategy{
		BaseEntity:  m.BaseModel.ToDomain(),
		Name:        m.Name,
		Weight:      m.Weight,
		Deposited:   m.Deposited,
		Active:      m.Active,
		Position:    m.Position,
		AddedAt:     m.AddedAt,
		LastHarvest: m.LastHarvest,
	}
}

// FromDomain populates the persistence model from a domain Strategy.
func (m *StrategyModel) FromDomain(allocatorID uuid.UUID, s *treasury.Strategy) {
	m.FromDomainBaseEntity(s.BaseEntity)
	m.AllocatorID = allocatorID
	m.Name = s.Name
	m.Weight = s.Weight
	m.Deposited = s.Deposited
	m.Active = s.Active
	m.Position = s.Position
	m.AddedAt = s.AddedAt
	m.LastHarvest = s.LastHarvest
}

// StrategyModelFromDomain creates a new persistence model from a domain Strategy.
func StrategyModelFromDomain(allocatorID uuid.UUID, s *treasury.Strategy) *StrategyModel {
	m := &StrategyModel{}
	m.FromDomain(allocatorID, s)
	return m
}
