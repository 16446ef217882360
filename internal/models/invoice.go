package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// InvoiceProject is the priced snapshot of a project taken when it was completed.
// It lives in its brand's pending collection until exported or removed, and is
// independent of the source project row.
type InvoiceProject struct {
	ProjectID        uuid.UUID                        `json:"project_id" gorm:"type:uuid;primaryKey"`
	Title            string                           `json:"title"`
	Brand            Brand                            `json:"brand" gorm:"not null;index"`
	Type             ProjectType                      `json:"type"`
	Description      string                           `json:"description"`
	Deadline         time.Time                        `json:"deadline"`
	Priority         int                              `json:"priority"`
	Status           Status                           `json:"status"`
	CreatedAt        time.Time                        `json:"created_at"`
	Files            datatypes.JSONSlice[ProjectFile] `json:"files"`
	InvoicePrice     decimal.Decimal                  `json:"invoice_price" gorm:"type:decimal(12,2);not null"`
	AddedToInvoiceAt time.Time                        `json:"added_to_invoice_at"`
}

// MarshalJSON renders the price with exactly two fraction digits.
func (p InvoiceProject) MarshalJSON() ([]byte, error) {
	type plain InvoiceProject
	return json.Marshal(struct {
		plain
		InvoicePrice string `json:"invoice_price"`
	}{plain(p), FormatAmount(p.InvoicePrice)})
}

// NewInvoiceProject copies the project into a pending-invoice snapshot.
func NewInvoiceProject(p Project, price decimal.Decimal, at time.Time) InvoiceProject {
	files := make([]ProjectFile, len(p.Files))
	copy(files, p.Files)
	return InvoiceProject{
		ProjectID:        p.ID,
		Title:            p.Title,
		Brand:            p.Brand,
		Type:             p.Type,
		Description:      p.Description,
		Deadline:         p.Deadline,
		Priority:         p.Priority,
		Status:           StatusCompleted,
		CreatedAt:        p.CreatedAt,
		Files:            datatypes.NewJSONSlice(files),
		InvoicePrice:     price,
		AddedToInvoiceAt: at,
	}
}

// ExportedInvoice is an immutable record of an invoice document. Only IsPaid
// changes after export.
type ExportedInvoice struct {
	ID            uuid.UUID                           `json:"id" gorm:"type:uuid;primaryKey"`
	Brand         Brand                               `json:"brand" gorm:"not null;index"`
	InvoiceNumber string                              `json:"invoice_number" gorm:"not null"`
	FileName      string                              `json:"file_name"`
	DocumentKey   string                              `json:"-"`
	TotalAmount   decimal.Decimal                     `json:"total_amount" gorm:"type:decimal(12,2);not null"`
	ExportedAt    time.Time                           `json:"exported_at"`
	IsPaid        bool                                `json:"is_paid" gorm:"not null;default:false"`
	Projects      datatypes.JSONSlice[InvoiceProject] `json:"projects"`
}

func (e *ExportedInvoice) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

func (e ExportedInvoice) MarshalJSON() ([]byte, error) {
	type plain ExportedInvoice
	return json.Marshal(struct {
		plain
		TotalAmount string `json:"total_amount"`
	}{plain(e), FormatAmount(e.TotalAmount)})
}

// InvoiceCounter holds the last invoice number issued for a brand.
type InvoiceCounter struct {
	Brand         Brand `json:"brand" gorm:"primaryKey"`
	CurrentNumber int64 `json:"current_number" gorm:"not null;default:0"`
}

// SumPrices adds up the invoice prices of the given snapshots.
func SumPrices(items []InvoiceProject) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.InvoicePrice)
	}
	return total
}

// FormatAmount is the API form of a money value: plain digits with two
// fraction digits, e.g. "80.00".
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
