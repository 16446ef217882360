package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"ops-dashboard/internal/invoice"
	"ops-dashboard/internal/metrics"
	"ops-dashboard/internal/models"
	"ops-dashboard/internal/repository"
	"ops-dashboard/internal/services/cache"
	"ops-dashboard/internal/storage"
)

// ObjectStore is the blob store used for attachments and archived invoices.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error)
	Remove(ctx context.Context, key string) error
}

type InvoiceOptions struct {
	Issuer invoice.Issuer
	// Totals at or above this are flagged in summaries.
	HighlightThreshold decimal.Decimal
}

// BrandSummary is the header line of a brand's invoice card.
type BrandSummary struct {
	Brand         models.Brand    `json:"brand"`
	Client        string          `json:"client"`
	Count         int             `json:"count"`
	Total         decimal.Decimal `json:"total"`
	OverThreshold bool            `json:"over_threshold"`
}

func (b BrandSummary) MarshalJSON() ([]byte, error) {
	type plain BrandSummary
	return json.Marshal(struct {
		plain
		Total string `json:"total"`
	}{plain(b), models.FormatAmount(b.Total)})
}

// CounterStatus reports the stored counters next to the fallback cache.
type CounterStatus struct {
	Counters []models.InvoiceCounter `json:"counters"`
	Cache    cache.LayerStats        `json:"cache"`
}

// InvoiceService manages each brand's pending collection, invoice export
// and the exported history.
type InvoiceService struct {
	pending  repository.InvoiceProjectRepository
	exported repository.ExportedInvoiceRepository
	counters repository.InvoiceCounterRepository
	numbers  cache.CounterCache
	store    ObjectStore
	metrics  *metrics.Metrics
	opts     InvoiceOptions
	now      func() time.Time

	mu     sync.Mutex
	queues map[models.Brand][]models.InvoiceProject
}

func NewInvoiceService(
	pending repository.InvoiceProjectRepository,
	exported repository.ExportedInvoiceRepository,
	counters repository.InvoiceCounterRepository,
	numbers cache.CounterCache,
	store ObjectStore,
	m *metrics.Metrics,
	opts InvoiceOptions,
) *InvoiceService {
	return &InvoiceService{
		pending:  pending,
		exported: exported,
		counters: counters,
		numbers:  numbers,
		store:    store,
		metrics:  m,
		opts:     opts,
		now:      time.Now,
		queues:   make(map[models.Brand][]models.InvoiceProject),
	}
}

// SeedCounters primes the fallback cache with the next number per brand.
func (s *InvoiceService) SeedCounters(ctx context.Context) error {
	stored, err := s.counters.List(ctx)
	if err != nil {
		return backend("list invoice counters", err)
	}
	current := make(map[models.Brand]int64, len(stored))
	for _, c := range stored {
		current[c.Brand] = c.CurrentNumber
	}
	for _, brand := range models.Brands {
		next := current[brand] + 1
		if err := s.numbers.Store(ctx, brand, next); err != nil {
			slog.Warn("seed invoice counter cache", "brand", brand, "cache", s.numbers.Name(), "error", err)
			continue
		}
		slog.Debug("seeded invoice counter", "brand", brand, "next", next)
	}
	return nil
}

func (s *InvoiceService) queueLocked(ctx context.Context, brand models.Brand) ([]models.InvoiceProject, error) {
	if q, ok := s.queues[brand]; ok {
		return q, nil
	}
	items, err := s.pending.ListByBrand(ctx, brand)
	if err != nil {
		return nil, backend("list pending invoice items", err)
	}
	s.queues[brand] = items
	s.metrics.SetPendingItems(string(brand), len(items))
	return items, nil
}

func checkBrand(brand models.Brand) error {
	if !brand.Valid() {
		return validationf("unknown brand %q", brand)
	}
	return nil
}

// ListPending returns a brand's pending items in the order they were added.
func (s *InvoiceService) ListPending(ctx context.Context, brand models.Brand) ([]models.InvoiceProject, error) {
	if err := checkBrand(brand); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.queueLocked(ctx, brand)
	if err != nil {
		return nil, err
	}
	return cloneItems(q), nil
}

func (s *InvoiceService) Total(ctx context.Context, brand models.Brand) (decimal.Decimal, error) {
	items, err := s.ListPending(ctx, brand)
	if err != nil {
		return decimal.Zero, err
	}
	return models.SumPrices(items), nil
}

func (s *InvoiceService) Summary(ctx context.Context, brand models.Brand) (BrandSummary, error) {
	items, err := s.ListPending(ctx, brand)
	if err != nil {
		return BrandSummary{}, err
	}
	total := models.SumPrices(items)
	return BrandSummary{
		Brand:         brand,
		Client:        brand.Client(),
		Count:         len(items),
		Total:         total,
		OverThreshold: total.GreaterThanOrEqual(s.opts.HighlightThreshold),
	}, nil
}

// Summaries returns one summary per brand, in brand order.
func (s *InvoiceService) Summaries(ctx context.Context) ([]BrandSummary, error) {
	out := make([]BrandSummary, 0, len(models.Brands))
	for _, brand := range models.Brands {
		sum, err := s.Summary(ctx, brand)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, nil
}

// AddToPending snapshots a completed project into its brand's collection.
// An earlier snapshot of the same project is replaced.
func (s *InvoiceService) AddToPending(ctx context.Context, project models.Project, price decimal.Decimal) (*models.InvoiceProject, error) {
	if err := checkBrand(project.Brand); err != nil {
		return nil, err
	}
	if !price.IsPositive() {
		return nil, validationf("price must be greater than zero")
	}
	item := models.NewInvoiceProject(project, price, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.pending.Upsert(ctx, &item); err != nil {
		return nil, backend("add pending invoice item", err)
	}

	for brand, q := range s.queues {
		if i := itemIndex(q, item.ProjectID); i >= 0 {
			s.queues[brand] = removeItem(q, i)
			s.metrics.SetPendingItems(string(brand), len(s.queues[brand]))
		}
	}
	if q, ok := s.queues[item.Brand]; ok {
		s.queues[item.Brand] = append(q, item)
		s.metrics.SetPendingItems(string(item.Brand), len(s.queues[item.Brand]))
	}
	slog.Info("added to pending invoice", "brand", item.Brand, "project", item.ProjectID, "price", item.InvoicePrice.StringFixed(2))
	return &item, nil
}

// RemoveFromPending drops one item without touching its project.
func (s *InvoiceService) RemoveFromPending(ctx context.Context, brand models.Brand, projectID uuid.UUID) error {
	if err := checkBrand(brand); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.pending.Delete(ctx, brand, projectID); err != nil {
		return backend("remove pending invoice item", err)
	}
	if q, ok := s.queues[brand]; ok {
		if i := itemIndex(q, projectID); i >= 0 {
			s.queues[brand] = removeItem(q, i)
		}
		s.metrics.SetPendingItems(string(brand), len(s.queues[brand]))
	}
	return nil
}

// ExportInvoice numbers and renders the brand's pending items, archives the
// PDF, records the export in history and clears the collection.
func (s *InvoiceService) ExportInvoice(ctx context.Context, brand models.Brand) (*models.ExportedInvoice, []byte, error) {
	if err := checkBrand(brand); err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.queueLocked(ctx, brand)
	if err != nil {
		return nil, nil, err
	}
	if len(items) == 0 {
		return nil, nil, ErrEmptyInvoice
	}
	items = cloneItems(items)

	number := s.nextNumber(ctx, brand)
	at := s.now()
	doc := invoice.Document{
		Number: invoice.FormatNumber(number),
		Date:   at,
		Issuer: s.opts.Issuer,
		Client: brand.Client(),
		Items:  items,
	}
	pdf, err := invoice.Render(doc)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "render invoice %s", doc.Number)
	}

	record := &models.ExportedInvoice{
		ID:            uuid.New(),
		Brand:         brand,
		InvoiceNumber: doc.Number,
		FileName:      invoice.FileName(brand, at),
		TotalAmount:   doc.Total(),
		ExportedAt:    at,
		Projects:      datatypes.NewJSONSlice(items),
	}
	key := fmt.Sprintf("invoices/%s/%s.pdf", brand.Slug(), record.ID)
	if err := s.store.Put(ctx, key, bytes.NewReader(pdf), int64(len(pdf)), "application/pdf"); err != nil {
		// The record keeps its snapshot, so the document can be rendered again.
		slog.Warn("archive invoice document", "brand", brand, "number", doc.Number, "error", err)
	} else {
		record.DocumentKey = key
	}

	if err := s.exported.Create(ctx, record); err != nil {
		return nil, nil, backend("record exported invoice", err)
	}

	s.queues[brand] = []models.InvoiceProject{}
	if _, err := s.pending.DeleteByBrand(ctx, brand); err != nil {
		delete(s.queues, brand)
		slog.Error("invoice exported but pending items not cleared", "brand", brand, "number", doc.Number, "error", err)
		return nil, nil, backend(fmt.Sprintf("clear pending items after invoice %s", doc.Number), err)
	}

	if err := s.numbers.Store(ctx, brand, number+1); err != nil {
		slog.Warn("update invoice counter cache", "brand", brand, "error", err)
	}
	total, _ := record.TotalAmount.Float64()
	s.metrics.RecordExport(string(brand), total)
	s.metrics.SetPendingItems(string(brand), 0)
	slog.Info("invoice exported", "brand", brand, "number", doc.Number, "items", len(items), "total", record.TotalAmount.StringFixed(2))
	return record, pdf, nil
}

// nextNumber asks the database counter first. When that fails the cached
// next number is used, or 1 when nothing is cached.
func (s *InvoiceService) nextNumber(ctx context.Context, brand models.Brand) int64 {
	n, err := s.counters.Next(ctx, brand)
	if err == nil {
		return n
	}
	s.metrics.IncCounterFallback(string(brand))
	cached, ok, cacheErr := s.numbers.Get(ctx, brand)
	if cacheErr != nil || !ok || cached < 1 {
		slog.Warn("invoice counter unavailable, starting from 1", "brand", brand, "error", err, "cache_error", cacheErr)
		return 1
	}
	slog.Warn("invoice counter unavailable, using cached number", "brand", brand, "next", cached, "error", err)
	return cached
}

// ListHistory returns a brand's exported invoices, oldest first.
func (s *InvoiceService) ListHistory(ctx context.Context, brand models.Brand) ([]models.ExportedInvoice, error) {
	if err := checkBrand(brand); err != nil {
		return nil, err
	}
	list, err := s.exported.ListByBrand(ctx, brand)
	if err != nil {
		return nil, backend("list invoice history", err)
	}
	return list, nil
}

func (s *InvoiceService) getExported(ctx context.Context, brand models.Brand, id uuid.UUID) (*models.ExportedInvoice, error) {
	if err := checkBrand(brand); err != nil {
		return nil, err
	}
	record, err := s.exported.Get(ctx, id)
	if err != nil {
		return nil, backend("get exported invoice", err)
	}
	if record.Brand != brand {
		return nil, errors.Wrapf(ErrNotFound, "invoice %s for %s", id, brand)
	}
	return record, nil
}

// TogglePaid flips the paid flag of one exported invoice.
func (s *InvoiceService) TogglePaid(ctx context.Context, brand models.Brand, id uuid.UUID) (*models.ExportedInvoice, error) {
	record, err := s.getExported(ctx, brand, id)
	if err != nil {
		return nil, err
	}
	if err := s.exported.SetPaid(ctx, id, !record.IsPaid); err != nil {
		return nil, backend("update paid flag", err)
	}
	record.IsPaid = !record.IsPaid
	slog.Info("invoice paid flag changed", "brand", brand, "number", record.InvoiceNumber, "paid", record.IsPaid)
	return record, nil
}

// Document returns the PDF of an exported invoice. It is read from the
// archive, or rendered again from the record when the archive has no copy.
func (s *InvoiceService) Document(ctx context.Context, brand models.Brand, id uuid.UUID) (*models.ExportedInvoice, []byte, error) {
	record, err := s.getExported(ctx, brand, id)
	if err != nil {
		return nil, nil, err
	}

	if record.DocumentKey != "" {
		data, err := s.readArchived(ctx, record.DocumentKey)
		if err == nil {
			return record, data, nil
		}
		if !errors.Is(err, storage.ErrObjectNotFound) {
			return nil, nil, backend("read invoice document", err)
		}
		slog.Warn("archived invoice document missing, rendering again", "key", record.DocumentKey)
	}

	pdf, err := invoice.Render(invoice.Document{
		Number: record.InvoiceNumber,
		Date:   record.ExportedAt,
		Issuer: s.opts.Issuer,
		Client: brand.Client(),
		Items:  record.Projects,
	})
	if err != nil {
		return nil, nil, errors.Wrapf(err, "render invoice %s", record.InvoiceNumber)
	}
	return record, pdf, nil
}

func (s *InvoiceService) readArchived(ctx context.Context, key string) ([]byte, error) {
	rc, _, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// ClearHistory deletes every exported invoice of a brand and their archived
// documents. Counters are not reset.
func (s *InvoiceService) ClearHistory(ctx context.Context, brand models.Brand) (int64, error) {
	list, err := s.ListHistory(ctx, brand)
	if err != nil {
		return 0, err
	}
	if len(list) == 0 {
		return 0, validationf("no invoice history to clear for %s", brand)
	}
	n, err := s.exported.DeleteByBrand(ctx, brand)
	if err != nil {
		return 0, backend("clear invoice history", err)
	}
	for _, record := range list {
		if record.DocumentKey == "" {
			continue
		}
		if err := s.store.Remove(ctx, record.DocumentKey); err != nil {
			slog.Warn("remove archived invoice document", "key", record.DocumentKey, "error", err)
		}
	}
	slog.Info("cleared invoice history", "brand", brand, "count", n)
	return n, nil
}

func (s *InvoiceService) Counters(ctx context.Context) (CounterStatus, error) {
	list, err := s.counters.List(ctx)
	if err != nil {
		return CounterStatus{}, backend("list invoice counters", err)
	}
	return CounterStatus{Counters: list, Cache: s.numbers.GetStats()}, nil
}

func itemIndex(items []models.InvoiceProject, projectID uuid.UUID) int {
	for i := range items {
		if items[i].ProjectID == projectID {
			return i
		}
	}
	return -1
}

func removeItem(items []models.InvoiceProject, i int) []models.InvoiceProject {
	out := make([]models.InvoiceProject, 0, len(items))
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}

func cloneItems(items []models.InvoiceProject) []models.InvoiceProject {
	out := make([]models.InvoiceProject, len(items))
	copy(out, items)
	return out
}
