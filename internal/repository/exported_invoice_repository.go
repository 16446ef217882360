package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"ops-dashboard/internal/models"
)

// ExportedInvoiceRepository defines persistence for the exported_invoices table.
type ExportedInvoiceRepository interface {
	Create(ctx context.Context, invoice *models.ExportedInvoice) error
	Get(ctx context.Context, id uuid.UUID) (*models.ExportedInvoice, error)
	ListByBrand(ctx context.Context, brand models.Brand) ([]models.ExportedInvoice, error)
	SetPaid(ctx context.Context, id uuid.UUID, paid bool) error
	DeleteByBrand(ctx context.Context, brand models.Brand) (int64, error)
}

type ExportedInvoiceRepositoryImpl struct {
	db *gorm.DB
}

func NewExportedInvoiceRepository(db *gorm.DB) *ExportedInvoiceRepositoryImpl {
	return &ExportedInvoiceRepositoryImpl{db: db}
}

func (r *ExportedInvoiceRepositoryImpl) Create(ctx context.Context, invoice *models.ExportedInvoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *ExportedInvoiceRepositoryImpl) Get(ctx context.Context, id uuid.UUID) (*models.ExportedInvoice, error) {
	var invoice models.ExportedInvoice
	if err := r.db.WithContext(ctx).First(&invoice, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &invoice, nil
}

// ListByBrand returns the brand's invoice history, oldest first.
func (r *ExportedInvoiceRepositoryImpl) ListByBrand(ctx context.Context, brand models.Brand) ([]models.ExportedInvoice, error) {
	var invoices []models.ExportedInvoice
	err := r.db.WithContext(ctx).Where("brand = ?", brand).Order("exported_at ASC").Find(&invoices).Error
	return invoices, err
}

// SetPaid touches only the paid flag; the rest of the record is frozen.
func (r *ExportedInvoiceRepositoryImpl) SetPaid(ctx context.Context, id uuid.UUID, paid bool) error {
	res := r.db.WithContext(ctx).Model(&models.ExportedInvoice{}).Where("id = ?", id).Update("is_paid", paid)
	return rowsOrNotFound(res)
}

func (r *ExportedInvoiceRepositoryImpl) DeleteByBrand(ctx context.Context, brand models.Brand) (int64, error) {
	res := r.db.WithContext(ctx).Where("brand = ?", brand).Delete(&models.ExportedInvoice{})
	return res.RowsAffected, res.Error
}
