package persistence

import (
	"context"
	"errors"

	"github.com/payflow/backend/internal/domain/shared"
	"github.com/payflow/backend/internal/domain/treasury"
	"github.com/payflow/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTreasuryRepository implements treasury.Repository using GORM
type GormTreasuryRepository struct {
	db *gorm.DB
}

// NewGormTreasuryRepository creates a new GormTreasuryRepository
func NewGormTreasuryRepository(db *gorm.DB) *GormTreasuryRepository {
	return &GormTreasuryRepository{db: db}
}

// Get loads the allocator singleton with its strategies ordered by position.
// Inside a transaction the allocator row is locked with SELECT ... FOR UPDATE.
func (r *GormTreasuryRepository) Get(ctx context.Context) (*treasury.Allocator, error) {
	var model models.AllocatorModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Order("created_at ASC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	if err := r.db.WithContext(ctx).
		Where("allocator_id = ?", model.ID).
		Order("position ASC").
		Find(&model.Strategies).Error; err != nil {
		return nil, err
	}

	return model.ToDomain(), nil
}

// Save persists the allocator and replaces its strategy registry.
// The strategy set is small and bounded, so a delete-and-insert keeps
// position compaction and removals simple.
func (r *GormTreasuryRepository) Save(ctx context.Context, a *treasury.Allocator) error {
	model := models.AllocatorModelFromDomain(a)
	strategies := model.Strategies
	model.Strategies = nil

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.AllocatorModel{}).
		Where("id = ?", a.ID).
		Count(&count).Error; err != nil {
		return err
	}

	if count == 0 {
		if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
			return err
		}
	} else {
		result := r.db.WithContext(ctx).
			Model(model).
			Where("id = ? AND version = ?", a.ID, a.Version-1).
			Select("*").
			Omit("Strategies").
			Updates(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
	}

	if err := r.db.WithContext(ctx).
		Where("allocator_id = ?", a.ID).
		Delete(&models.StrategyModel{}).Error; err != nil {
		return err
	}
	if len(strategies) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&strategies).Error
}
