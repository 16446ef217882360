package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ops-dashboard/internal/models"
)

// newTestDB opens a private in-memory SQLite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Project{},
		&models.InvoiceProject{},
		&models.ExportedInvoice{},
		&models.InvoiceCounter{},
	))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func seedProject(t *testing.T, repo *ProjectRepositoryImpl, title string, priority int, status models.Status) *models.Project {
	t.Helper()
	p := &models.Project{
		Title:       title,
		Brand:       models.BrandWamiLive,
		Type:        models.TypeFlyer,
		Description: "desc",
		Deadline:    time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		Priority:    priority,
		Status:      status,
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestProjectRepository_CreateGetList(t *testing.T) {
	ctx := context.Background()
	repo := NewProjectRepository(newTestDB(t))

	second := seedProject(t, repo, "second", 2, models.StatusPending)
	first := seedProject(t, repo, "first", 1, "")

	got, err := repo.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Title)
	assert.Equal(t, models.StatusPending, got.Status)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	_, err = repo.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProjectRepository_UpdatePrioritiesIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	repo := NewProjectRepository(newTestDB(t))
	a := seedProject(t, repo, "a", 1, models.StatusPending)
	b := seedProject(t, repo, "b", 2, models.StatusPending)

	require.NoError(t, repo.UpdatePriorities(ctx, map[uuid.UUID]int{a.ID: 2, b.ID: 1}))
	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.ID, list[0].ID)

	err = repo.UpdatePriorities(ctx, map[uuid.UUID]int{a.ID: 5, uuid.New(): 6})
	require.ErrorIs(t, err, ErrNotFound)

	got, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Priority)
}

func TestProjectRepository_UpdateAndFiles(t *testing.T) {
	ctx := context.Background()
	repo := NewProjectRepository(newTestDB(t))
	p := seedProject(t, repo, "flyer", 1, models.StatusPending)

	p.Title = "Updated flyer"
	p.Type = models.TypePromoVideo
	require.NoError(t, repo.Update(ctx, p))

	files := []models.ProjectFile{{ID: uuid.New(), Name: "brief.pdf", Size: 12, Type: "application/pdf", StorageKey: "attachments/x/brief.pdf"}}
	require.NoError(t, repo.UpdateFiles(ctx, p.ID, files))
	require.NoError(t, repo.UpdateStatus(ctx, p.ID, models.StatusInProgress))

	got, err := repo.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Updated flyer", got.Title)
	assert.Equal(t, models.TypePromoVideo, got.Type)
	assert.Equal(t, models.StatusInProgress, got.Status)
	require.Len(t, got.Files, 1)
	assert.Equal(t, "brief.pdf", got.Files[0].Name)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, uuid.New(), models.StatusPending), ErrNotFound)
}

func TestProjectRepository_DeleteByStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewProjectRepository(newTestDB(t))
	keep := seedProject(t, repo, "keep", 1, models.StatusPending)
	seedProject(t, repo, "done-1", 1, models.StatusCompleted)
	seedProject(t, repo, "done-2", 2, models.StatusCompleted)

	n, err := repo.DeleteByStatus(ctx, models.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, repo.Delete(ctx, keep.ID))
	assert.ErrorIs(t, repo.Delete(ctx, keep.ID), ErrNotFound)
}

func TestInvoiceProjectRepository_UpsertReplaces(t *testing.T) {
	ctx := context.Background()
	repo := NewInvoiceProjectRepository(newTestDB(t))
	project := models.Project{ID: uuid.New(), Title: "logo", Brand: models.BrandTheHideout, Type: models.TypeFlyer}
	at := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)

	first := models.NewInvoiceProject(project, decimal.NewFromInt(40), at)
	require.NoError(t, repo.Upsert(ctx, &first))
	second := models.NewInvoiceProject(project, decimal.RequireFromString("55.50"), at.Add(time.Hour))
	require.NoError(t, repo.Upsert(ctx, &second))

	other := models.NewInvoiceProject(models.Project{ID: uuid.New(), Title: "menu", Brand: models.BrandTheHideout}, decimal.NewFromInt(10), at.Add(-time.Hour))
	require.NoError(t, repo.Upsert(ctx, &other))

	items, err := repo.ListByBrand(ctx, models.BrandTheHideout)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "menu", items[0].Title)
	assert.True(t, items[1].InvoicePrice.Equal(decimal.RequireFromString("55.50")))

	require.NoError(t, repo.Delete(ctx, models.BrandTheHideout, other.ProjectID))
	assert.ErrorIs(t, repo.Delete(ctx, models.BrandWamiLive, project.ID), ErrNotFound)

	n, err := repo.DeleteByBrand(ctx, models.BrandTheHideout)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestExportedInvoiceRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewExportedInvoiceRepository(newTestDB(t))

	inv := &models.ExportedInvoice{
		Brand:         models.BrandLuckOnFourth,
		InvoiceNumber: "004",
		FileName:      "LUCK_ON_FOURTH_Invoice_1-15-25.pdf",
		TotalAmount:   decimal.NewFromInt(200),
		ExportedAt:    time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		Projects:      []models.InvoiceProject{{ProjectID: uuid.New(), Title: "flyer", InvoicePrice: decimal.NewFromInt(200)}},
	}
	require.NoError(t, repo.Create(ctx, inv))
	require.NotEqual(t, uuid.Nil, inv.ID)

	require.NoError(t, repo.SetPaid(ctx, inv.ID, true))
	got, err := repo.Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPaid)
	assert.Equal(t, "004", got.InvoiceNumber)
	require.Len(t, got.Projects, 1)
	assert.Equal(t, "flyer", got.Projects[0].Title)

	list, err := repo.ListByBrand(ctx, models.BrandLuckOnFourth)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	n, err := repo.DeleteByBrand(ctx, models.BrandLuckOnFourth)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = repo.Get(ctx, inv.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInvoiceCounterRepository_Next(t *testing.T) {
	ctx := context.Background()
	repo := NewInvoiceCounterRepository(newTestDB(t))

	for want := int64(1); want <= 3; want++ {
		n, err := repo.Next(ctx, models.BrandWamiLive)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	n, err := repo.Next(ctx, models.BrandTheHideout)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	counters, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, counters, 2)
}
