package repository

import (
	"context"

	"gorm.io/gorm"

	"ops-dashboard/internal/models"
)

// nextInvoiceNumberSQL increments and returns the brand counter in one statement,
// creating the row on first use. Works on PostgreSQL and SQLite.
const nextInvoiceNumberSQL = `
	INSERT INTO invoice_counters (brand, current_number) VALUES (?, 1)
	ON CONFLICT (brand) DO UPDATE SET current_number = invoice_counters.current_number + 1
	RETURNING current_number
`

// InvoiceCounterRepository defines access to the per-brand invoice number sequence.
type InvoiceCounterRepository interface {
	Next(ctx context.Context, brand models.Brand) (int64, error)
	List(ctx context.Context) ([]models.InvoiceCounter, error)
}

type InvoiceCounterRepositoryImpl struct {
	db *gorm.DB
}

func NewInvoiceCounterRepository(db *gorm.DB) *InvoiceCounterRepositoryImpl {
	return &InvoiceCounterRepositoryImpl{db: db}
}

// Next atomically advances the brand's counter and returns the new value.
func (r *InvoiceCounterRepositoryImpl) Next(ctx context.Context, brand models.Brand) (int64, error) {
	var next int64
	if err := r.db.WithContext(ctx).Raw(nextInvoiceNumberSQL, brand).Row().Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}

func (r *InvoiceCounterRepositoryImpl) List(ctx context.Context) ([]models.InvoiceCounter, error) {
	var counters []models.InvoiceCounter
	err := r.db.WithContext(ctx).Find(&counters).Error
	return counters, err
}
