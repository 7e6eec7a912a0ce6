package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/payflow/backend/internal/domain/pool"
	"github.com/payflow/backend/internal/domain/shared"
	"github.com/payflow/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPoolRepository implements pool.Repository using GORM
type GormPoolRepository struct {
	db *gorm.DB
}

// NewGormPoolRepository creates a new GormPoolRepository
func NewGormPoolRepository(db *gorm.DB) *GormPoolRepository {
	return &GormPoolRepository{db: db}
}

// Get loads the capital pool singleton. Inside a transaction the row is
// locked with SELECT ... FOR UPDATE so concurrent mutations serialize.
func (r *GormPoolRepository) Get(ctx context.Context) (*pool.CapitalPool, error) {
	var model models.CapitalPoolModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Order("created_at ASC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates the capital pool with optimistic locking
func (r *GormPoolRepository) Save(ctx context.Context, p *pool.CapitalPool) error {
	model := models.CapitalPoolModelFromDomain(p)

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.CapitalPoolModel{}).
		Where("id = ?", p.ID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return r.db.WithContext(ctx).Create(model).Error
	}

	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", p.ID, p.Version-1).
		Select("*").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindShareHolder finds a share holder by account
func (r *GormPoolRepository) FindShareHolder(ctx context.Context, holder uuid.UUID) (*pool.ShareHolder, error) {
	var model models.ShareHolderModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("holder = ?", holder).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// SaveShareHolder creates or updates a share holder balance
func (r *GormPoolRepository) SaveShareHolder(ctx context.Context, h *pool.ShareHolder) error {
	model := models.ShareHolderModelFromDomain(h)
	return r.db.WithContext(ctx).Save(model).Error
}

// DeleteShareHolder removes a holder whose balance reached zero
func (r *GormPoolRepository) DeleteShareHolder(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ShareHolderModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListShareHolders lists holders with pagination
func (r *GormPoolRepository) ListShareHolders(ctx context.Context, filter pool.ShareHolderFilter) ([]pool.ShareHolder, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ShareHolderModel{})
	if filter.Holder != nil {
		query = query.Where("holder = ?", *filter.Holder)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Filter, "shares")
	var holderModels []models.ShareHolderModel
	if err := query.Find(&holderModels).Error; err != nil {
		return nil, 0, err
	}

	holders := make([]pool.ShareHolder, len(holderModels))
	for i, m := range holderModels {
		holders[i] = *m.ToDomain()
	}
	return holders, total, nil
}

// applyPagination applies shared filter pagination and ordering to a query
func applyPagination(query *gorm.DB, filter shared.Filter, defaultOrder string) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + orderDir)
	} else if defaultOrder != "" {
		query = query.Order(defaultOrder + " DESC")
	}

	return query
}
