package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/payflow/backend/internal/domain/funding"
	"github.com/payflow/backend/internal/domain/shared"
	"github.com/payflow/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormFundingRepository implements funding.Repository using GORM
type GormFundingRepository struct {
	db *gorm.DB
}

// NewGormFundingRepository creates a new GormFundingRepository
func NewGormFundingRepository(db *gorm.DB) *GormFundingRepository {
	return &GormFundingRepository{db: db}
}

// FindByInvoice finds the funding record for an invoice
func (r *GormFundingRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) (*funding.FundingRecord, error) {
	var model models.FundingRecordModel
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// SaveRecord creates or updates a funding record with optimistic locking.
// The unique index on invoice_id rejects a second record for the same
// invoice at the database level.
func (r *GormFundingRepository) SaveRecord(ctx context.Context, rec *funding.FundingRecord) error {
	model := models.FundingRecordModelFromDomain(rec)

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.FundingRecordModel{}).
		Where("id = ?", rec.ID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return r.db.WithContext(ctx).Create(model).Error
	}

	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", rec.ID, rec.Version-1).
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

// ListRecords lists funding records with filtering and pagination
func (r *GormFundingRepository) ListRecords(ctx context.Context, filter funding.RecordFilter) ([]funding.FundingRecord, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.FundingRecordModel{})
	if filter.Supplier != nil {
		query = query.Where("supplier = ?", *filter.Supplier)
	}
	if filter.Settled != nil {
		if *filter.Settled {
			query = query.Where("repaid = ? OR defaulted = ?", true, true)
		} else {
			query = query.Where("repaid = ? AND defaulted = ?", false, false)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Filter, "funded_at")
	var recordModels []models.FundingRecordModel
	if err := query.Find(&recordModels).Error; err != nil {
		return nil, 0, err
	}

	records := make([]funding.FundingRecord, len(recordModels))
	for i, m := range recordModels {
		records[i] = *m.ToDomain()
	}
	return records, total, nil
}

// GetLedger loads the ledger singleton. Inside a transaction the row is
// locked with SELECT ... FOR UPDATE so counter updates serialize.
func (r *GormFundingRepository) GetLedger(ctx context.Context) (*funding.Ledger, error) {
	var model models.LedgerModel
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

// SaveLedger persists the counter row with optimistic locking
func (r *GormFundingRepository) SaveLedger(ctx context.Context, l *funding.Ledger) error {
	model := models.LedgerModelFromDomain(l)

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.LedgerModel{}).
		Where("id = ?", l.ID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return r.db.WithContext(ctx).Create(model).Error
	}

	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", l.ID, l.Version-1).
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
