// Package invoice renders invoice documents.
package invoice

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"ops-dashboard/internal/models"
)

const (
	maxTitleRunes = 30
	pageBreakY    = 250.0
	pageTopY      = 30.0
	footerLimitY  = 280.0
)

// Issuer is the "FROM" block and payment footer printed on every invoice.
type Issuer struct {
	Name         string
	Tagline      string
	PaymentLines []string
}

// Document is everything needed to lay out one invoice.
type Document struct {
	Number string
	Date   time.Time
	Issuer Issuer
	Client string
	Items  []models.InvoiceProject
}

// Total sums the item prices.
func (d Document) Total() decimal.Decimal {
	return models.SumPrices(d.Items)
}

// FormatNumber zero-pads an invoice number to three digits.
func FormatNumber(n int64) string {
	return fmt.Sprintf("%03d", n)
}

// FormatMoney renders an amount with exactly two fraction digits.
func FormatMoney(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// FileName is <BRAND_UPPER_SNAKE>_Invoice_<M-dd-yy>.pdf.
func FileName(brand models.Brand, at time.Time) string {
	return fmt.Sprintf("%s_Invoice_%s.pdf", brand.UpperSnake(), at.Format("1-02-06"))
}

func truncateTitle(title string) string {
	r := []rune(title)
	if len(r) <= maxTitleRunes {
		return title
	}
	return string(r[:maxTitleRunes]) + "..."
}

// Render lays the document out on A4 pages and returns the PDF bytes.
func Render(doc Document) ([]byte, error) {
	return output(layout(doc))
}

// output serialises the laid-out document. Callers add the invoice number
// to the error.
func output(pdf *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "write pdf")
	}
	return buf.Bytes(), nil
}

func layout(doc Document) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(doc.Date)
	pdf.SetTitle("Invoice "+doc.Number, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.Text(20, 30, "INVOICE")

	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(20, 45, "Invoice #: "+doc.Number)
	pdf.Text(20, 55, "Date: "+doc.Date.Format("01/02/2006"))

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Text(20, 75, "FROM:")
	pdf.SetFont("Helvetica", "", 12)
	y := 85.0
	for _, line := range []string{doc.Issuer.Name, doc.Issuer.Tagline} {
		if line == "" {
			continue
		}
		pdf.Text(20, y, tr(line))
		y += 10
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Text(120, 75, "BILL TO:")
	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(120, 85, tr(doc.Client))

	y = 130
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Text(20, y, "Description")
	pdf.Text(100, y, "Type")
	pdf.Text(150, y, "Amount")
	pdf.Line(20, y+5, 190, y+5)
	y += 15

	pdf.SetFont("Helvetica", "", 12)
	for _, item := range doc.Items {
		pdf.Text(20, y, tr(truncateTitle(item.Title)))
		pdf.Text(100, y, tr(string(item.Type)))
		pdf.Text(150, y, FormatMoney(item.InvoicePrice))
		y += 10
		if y > pageBreakY {
			pdf.AddPage()
			y = pageTopY
		}
	}

	y += 10
	pdf.Line(140, y, 190, y)
	y += 10
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Text(140, y, "TOTAL: "+FormatMoney(doc.Total()))

	y += 30
	if y+10*float64(len(doc.Issuer.PaymentLines)) > footerLimitY {
		pdf.AddPage()
		y = pageTopY
	}
	pdf.Text(20, y, "PAYMENT INFORMATION:")
	pdf.SetFont("Helvetica", "", 12)
	for _, line := range doc.Issuer.PaymentLines {
		y += 10
		pdf.Text(20, y, tr(line))
	}
	return pdf
}
