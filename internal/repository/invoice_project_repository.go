package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ops-dashboard/internal/models"
)

// InvoiceProjectRepository defines persistence for the invoice_projects table,
// the per-brand pending-invoice collections.
type InvoiceProjectRepository interface {
	Upsert(ctx context.Context, item *models.InvoiceProject) error
	ListByBrand(ctx context.Context, brand models.Brand) ([]models.InvoiceProject, error)
	Delete(ctx context.Context, brand models.Brand, projectID uuid.UUID) error
	DeleteByBrand(ctx context.Context, brand models.Brand) (int64, error)
}

type InvoiceProjectRepositoryImpl struct {
	db *gorm.DB
}

func NewInvoiceProjectRepository(db *gorm.DB) *InvoiceProjectRepositoryImpl {
	return &InvoiceProjectRepositoryImpl{db: db}
}

// Upsert stores the snapshot, replacing an earlier pending snapshot of the same project.
func (r *InvoiceProjectRepositoryImpl) Upsert(ctx context.Context, item *models.InvoiceProject) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "project_id"}}, UpdateAll: true}).
		Create(item).Error
}

func (r *InvoiceProjectRepositoryImpl) ListByBrand(ctx context.Context, brand models.Brand) ([]models.InvoiceProject, error) {
	var items []models.InvoiceProject
	err := r.db.WithContext(ctx).Where("brand = ?", brand).Order("added_to_invoice_at ASC").Find(&items).Error
	return items, err
}

func (r *InvoiceProjectRepositoryImpl) Delete(ctx context.Context, brand models.Brand, projectID uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("brand = ? AND project_id = ?", brand, projectID).Delete(&models.InvoiceProject{})
	return rowsOrNotFound(res)
}

func (r *InvoiceProjectRepositoryImpl) DeleteByBrand(ctx context.Context, brand models.Brand) (int64, error) {
	res := r.db.WithContext(ctx).Where("brand = ?", brand).Delete(&models.InvoiceProject{})
	return res.RowsAffected, res.Error
}
