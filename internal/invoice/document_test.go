package invoice

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ops-dashboard/internal/models"
)

func TestFileName(t *testing.T) {
	at := time.Date(2025, time.March, 7, 15, 4, 0, 0, time.UTC)
	assert.Equal(t, "WAMI_LIVE_Invoice_3-07-25.pdf", FileName(models.BrandWamiLive, at))
	assert.Equal(t, "LUCK_ON_FOURTH_Invoice_3-07-25.pdf", FileName(models.BrandLuckOnFourth, at))
	assert.Equal(t, "THE_HIDEOUT_Invoice_12-25-24.pdf",
		FileName(models.BrandTheHideout, time.Date(2024, time.December, 25, 0, 0, 0, 0, time.UTC)))
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "001", FormatNumber(1))
	assert.Equal(t, "042", FormatNumber(42))
	assert.Equal(t, "1234", FormatNumber(1234))
	assert.Equal(t, "$80.00", FormatMoney(decimal.NewFromInt(80)))
	assert.Equal(t, "$12.50", FormatMoney(decimal.RequireFromString("12.5")))
}

func TestTruncateTitle(t *testing.T) {
	assert.Equal(t, "Short", truncateTitle("Short"))
	long := "Friday Night Neon Party Flyer Extended Edition"
	assert.Equal(t, "Friday Night Neon Party Flyer ...", truncateTitle(long))
}

func TestRender(t *testing.T) {
	doc := Document{
		Number: "007",
		Date:   time.Date(2025, time.March, 7, 0, 0, 0, 0, time.UTC),
		Issuer: Issuer{Name: "Studio", Tagline: "Graphic Design Services", PaymentLines: []string{"Zelle: 555-0100"}},
		Client: models.BrandWamiLive.Client(),
		Items: []models.InvoiceProject{
			{Title: "Weekend Flyer", Type: models.TypeFlyer, InvoicePrice: decimal.NewFromInt(50)},
			{Title: "Promo", Type: models.TypePromoVideo, InvoicePrice: decimal.NewFromInt(30)},
		},
	}
	assert.Equal(t, "80", doc.Total().String())

	out, err := Render(doc)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestRender_ManyRowsPaginates(t *testing.T) {
	var items []models.InvoiceProject
	for i := 0; i < 40; i++ {
		items = append(items, models.InvoiceProject{
			Title:        fmt.Sprintf("Project %d", i),
			Type:         models.TypeFlyer,
			InvoicePrice: decimal.NewFromInt(10),
		})
	}
	pdf := layout(Document{Number: "001", Date: time.Now(), Client: "Client", Items: items})
	require.NoError(t, pdf.Error())
	assert.Equal(t, 3, pdf.PageCount())
}

func TestOutput_ErrorIsNotPrefixedTwice(t *testing.T) {
	pdf := layout(Document{Number: "009", Date: time.Now(), Client: models.BrandWamiLive.Client()})
	pdf.SetError(errors.New("disk full"))

	_, err := output(pdf)
	require.Error(t, err)
	assert.Equal(t, "write pdf: disk full", err.Error())
	assert.NotContains(t, err.Error(), "009")
}
