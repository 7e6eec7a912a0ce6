package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/payflow/backend/internal/domain/invoice"
	"github.com/payflow/backend/internal/domain/shared"
	"github.com/payflow/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements invoice.Repository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by its ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber finds an invoice by its invoice number
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, invoiceNumber string) (*invoice.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("invoice_number = ?", invoiceNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists invoices with filtering and pagination
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter invoice.Filter) ([]invoice.Invoice, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{})
	query = r.applyFilter(query, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Filter, "created_at")
	var invoiceModels []models.InvoiceModel
	if err := query.Find(&invoiceModels).Error; err != nil {
		return nil, 0, err
	}

	invoices := make([]invoice.Invoice, len(invoiceModels))
	for i, m := range invoiceModels {
		invoices[i] = *m.ToDomain()
	}
	return invoices, total, nil
}

// FindOverdue lists funded invoices past maturity at the given instant
func (r *GormInvoiceRepository) FindOverdue(ctx context.Context, asOf time.Time) ([]invoice.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND maturity_date < ?", invoice.StatusFunded, asOf).
		Order("maturity_date ASC").
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	invoices := make([]invoice.Invoice, len(invoiceModels))
	for i, m := range invoiceModels {
		invoices[i] = *m.ToDomain()
	}
	return invoices, nil
}

// Save creates or updates an invoice with optimistic locking
func (r *GormInvoiceRepository) Save(ctx context.Context, inv *invoice.Invoice) error {
	model := models.InvoiceModelFromDomain(inv)

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("id = ?", inv.ID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return r.db.WithContext(ctx).Create(model).Error
	}

	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", inv.ID, inv.Version-1).
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

// CountByStatus counts invoices in a lifecycle state
func (r *GormInvoiceRepository) CountByStatus(ctx context.Context, status invoice.Status) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies invoice-specific filters to a query
func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter invoice.Filter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("invoice_number ILIKE ?", "%"+filter.Search+"%")
	}
	if filter.Buyer != nil {
		query = query.Where("buyer = ?", *filter.Buyer)
	}
	if filter.Supplier != nil {
		query = query.Where("supplier = ?", *filter.Supplier)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.MaturedBy != nil {
		query = query.Where("maturity_date <= ?", *filter.MaturedBy)
	}
	if filter.OverdueAsOf != nil {
		query = query.Where("status = ? AND maturity_date < ?", invoice.StatusFunded, *filter.OverdueAsOf)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	return query
}
