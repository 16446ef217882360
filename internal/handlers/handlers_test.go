package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ops-dashboard/internal/invoice"
	"ops-dashboard/internal/metrics"
	"ops-dashboard/internal/models"
	"ops-dashboard/internal/repository"
	"ops-dashboard/internal/services"
	"ops-dashboard/internal/services/caches"
	"ops-dashboard/internal/storage"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (s *memStore) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	s.types[key] = contentType
	return nil
}

func (s *memStore) Get(_ context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), storage.ObjectInfo{Size: int64(len(data)), ContentType: s.types[key]}, nil
}

func (s *memStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

type testServer struct {
	app   *fiber.App
	store *memStore
}

func setupTestApp(t *testing.T) *testServer {
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

	store := &memStore{objects: map[string][]byte{}, types: map[string]string{}}
	m := metrics.NewMetrics(prometheus.NewRegistry())
	invoices := services.NewInvoiceService(
		repository.NewInvoiceProjectRepository(db),
		repository.NewExportedInvoiceRepository(db),
		repository.NewInvoiceCounterRepository(db),
		caches.NewMemoryCache(),
		store,
		m,
		services.InvoiceOptions{
			Issuer:             invoice.Issuer{Name: "Jordan Lee", Tagline: "Graphic Design Services"},
			HighlightThreshold: decimal.NewFromInt(200),
		},
	)
	projects := services.NewProjectService(repository.NewProjectRepository(db), invoices, m)
	attachments := services.NewAttachmentService(projects, store, 1<<20)

	app := fiber.New()
	RegisterRoutes(app.Group("/api/dashboard"),
		NewProjectHandler(projects, attachments),
		NewInvoiceHandler(invoices),
		NewFileHandler(attachments),
	)
	return &testServer{app: app, store: store}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, "/api/dashboard"+path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func (s *testServer) createProject(t *testing.T, title, brand string) models.Project {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/projects", ProjectRequest{
		Title:       title,
		Brand:       brand,
		Type:        "Flyer",
		Description: title + " artwork",
		Deadline:    "2025-03-01",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var p models.Project
	decode(t, resp, &p)
	return p
}

func TestCreateProject(t *testing.T) {
	s := setupTestApp(t)

	first := s.createProject(t, "Spring flyer", "Wami Live")
	second := s.createProject(t, "Summer flyer", "luck-on-fourth")

	assert.Equal(t, 1, first.Priority)
	assert.Equal(t, 2, second.Priority)
	assert.Equal(t, models.StatusPending, first.Status)
	assert.Equal(t, models.BrandLuckOnFourth, second.Brand)

	var list []models.Project
	decode(t, s.do(t, http.MethodGet, "/projects", nil), &list)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
}

func TestCreateProject_Invalid(t *testing.T) {
	s := setupTestApp(t)

	tests := []struct {
		name string
		req  ProjectRequest
	}{
		{"bad deadline", ProjectRequest{Title: "x", Brand: "Wami Live", Type: "Flyer", Description: "d", Deadline: "next week"}},
		{"missing title", ProjectRequest{Brand: "Wami Live", Type: "Flyer", Description: "d", Deadline: "2025-03-01"}},
		{"unknown brand", ProjectRequest{Title: "x", Brand: "Acme", Type: "Flyer", Description: "d", Deadline: "2025-03-01"}},
		{"unknown type", ProjectRequest{Title: "x", Brand: "Wami Live", Type: "Poster", Description: "d", Deadline: "2025-03-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.do(t, http.MethodPost, "/projects", tt.req)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var body map[string]interface{}
			decode(t, resp, &body)
			assert.Equal(t, true, body["error"])
		})
	}
}

func TestGetProject_NotFound(t *testing.T) {
	s := setupTestApp(t)

	resp := s.do(t, http.MethodGet, "/projects/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/projects/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChangeStatus_CompletionGate(t *testing.T) {
	s := setupTestApp(t)
	p := s.createProject(t, "Launch video", "The Hideout")

	resp := s.do(t, http.MethodPatch, "/projects/"+p.ID.String()+"/status", map[string]string{"status": "Completed"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = s.do(t, http.MethodPatch, "/projects/"+p.ID.String()+"/status", map[string]interface{}{"status": "Completed", "price": "abc"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodPatch, "/projects/"+p.ID.String()+"/status", map[string]interface{}{"status": "Completed", "price": 150})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out StatusResponse
	decode(t, resp, &out)
	assert.Equal(t, models.StatusCompleted, out.Project.Status)
	require.NotNil(t, out.InvoiceItem)
	assert.True(t, decimal.NewFromInt(150).Equal(out.InvoiceItem.InvoicePrice))

	var active []models.Project
	decode(t, s.do(t, http.MethodGet, "/projects", nil), &active)
	assert.Empty(t, active)

	var total map[string]string
	decode(t, s.do(t, http.MethodGet, "/invoices/the-hideout/total", nil), &total)
	assert.Equal(t, "150.00", total["total"])
}

func TestChangeStatus_InProgress(t *testing.T) {
	s := setupTestApp(t)
	p := s.createProject(t, "Poster", "Wami Live")

	resp := s.do(t, http.MethodPatch, "/projects/"+p.ID.String()+"/status", map[string]string{"status": "in-progress"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out StatusResponse
	decode(t, resp, &out)
	assert.Equal(t, models.StatusInProgress, out.Project.Status)
	assert.Nil(t, out.InvoiceItem)
}

func TestReorderProjects(t *testing.T) {
	s := setupTestApp(t)
	a := s.createProject(t, "a", "Wami Live")
	b := s.createProject(t, "b", "Wami Live")

	resp := s.do(t, http.MethodPut, "/projects/order", ReorderRequest{IDs: []string{b.ID.String(), a.ID.String()}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []models.Project
	decode(t, resp, &list)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, 1, list[0].Priority)

	resp = s.do(t, http.MethodPut, "/projects/order", ReorderRequest{IDs: []string{"bogus", a.ID.String()}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodPut, "/projects/order", ReorderRequest{IDs: []string{a.ID.String()}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExportInvoice(t *testing.T) {
	s := setupTestApp(t)

	resp := s.do(t, http.MethodPost, "/invoices/wami-live/export", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	p := s.createProject(t, "Menu flyer", "Wami Live")
	resp = s.do(t, http.MethodPatch, "/projects/"+p.ID.String()+"/status", map[string]interface{}{"status": "Completed", "price": "$250"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summaries []services.BrandSummary
	decode(t, s.do(t, http.MethodGet, "/invoices", nil), &summaries)
	require.Len(t, summaries, len(models.Brands))
	assert.Equal(t, 1, summaries[0].Count)
	assert.True(t, summaries[0].OverThreshold)

	resp = s.do(t, http.MethodPost, "/invoices/wami-live/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t, "001", resp.Header.Get("X-Invoice-Number"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "WAMI_LIVE_Invoice_")
	pdf, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
	invoiceID := resp.Header.Get("X-Invoice-Id")

	var pending []models.InvoiceProject
	decode(t, s.do(t, http.MethodGet, "/invoices/wami-live/pending", nil), &pending)
	assert.Empty(t, pending)

	var history []models.ExportedInvoice
	decode(t, s.do(t, http.MethodGet, "/invoices/Wami%20Live/history", nil), &history)
	require.Len(t, history, 1)
	assert.Equal(t, invoiceID, history[0].ID.String())

	resp = s.do(t, http.MethodGet, "/invoices/wami-live/history/"+invoiceID+"/document", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "inline")

	resp = s.do(t, http.MethodPatch, "/invoices/wami-live/history/"+invoiceID+"/paid", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var record models.ExportedInvoice
	decode(t, resp, &record)
	assert.True(t, record.IsPaid)

	resp = s.do(t, http.MethodGet, "/invoices/the-hideout/history/"+invoiceID+"/document", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInvoiceRoutes_UnknownBrand(t *testing.T) {
	s := setupTestApp(t)

	resp := s.do(t, http.MethodGet, "/invoices/acme/pending", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAttachAndDownloadFile(t *testing.T) {
	s := setupTestApp(t)
	p := s.createProject(t, "Banner", "Luck On Fourth")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("files", "brief notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("two colours only"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/dashboard/projects/"+p.ID.String()+"/files", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var updated models.Project
	decode(t, resp, &updated)
	require.Len(t, updated.Files, 1)
	file := updated.Files[0]
	assert.Equal(t, "brief notes.txt", file.Name)
	require.True(t, strings.HasPrefix(file.URL, services.FilesRoute))

	resp = s.do(t, http.MethodGet, strings.TrimPrefix(file.URL, "/api/dashboard"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "two colours only", string(body))

	resp = s.do(t, http.MethodDelete, "/projects/"+p.ID.String()+"/files/"+file.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, s.store.objects)
}

func TestClearCompleted_NothingToClear(t *testing.T) {
	s := setupTestApp(t)

	resp := s.do(t, http.MethodDelete, "/projects/completed", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func (s *testServer) complete(t *testing.T, p models.Project, price interface{}) {
	t.Helper()
	resp := s.do(t, http.MethodPatch, "/projects/"+p.ID.String()+"/status", map[string]interface{}{"status": "Completed", "price": price})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestMoneyFieldsHaveTwoDecimals(t *testing.T) {
	s := setupTestApp(t)
	s.complete(t, s.createProject(t, "Menu flyer", "Wami Live"), "50")
	s.complete(t, s.createProject(t, "Story video", "Wami Live"), 30)

	var summaries []map[string]interface{}
	decode(t, s.do(t, http.MethodGet, "/invoices", nil), &summaries)
	require.Len(t, summaries, len(models.Brands))
	assert.Equal(t, "80.00", summaries[0]["total"])
	assert.Equal(t, "0.00", summaries[1]["total"])

	var pending []map[string]interface{}
	decode(t, s.do(t, http.MethodGet, "/invoices/wami-live/pending", nil), &pending)
	require.Len(t, pending, 2)
	assert.Equal(t, "50.00", pending[0]["invoice_price"])
	assert.Equal(t, "30.00", pending[1]["invoice_price"])

	resp := s.do(t, http.MethodPost, "/invoices/wami-live/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var history []map[string]interface{}
	decode(t, s.do(t, http.MethodGet, "/invoices/wami-live/history", nil), &history)
	require.Len(t, history, 1)
	assert.Equal(t, "80.00", history[0]["total_amount"])
	projects, ok := history[0]["projects"].([]interface{})
	require.True(t, ok)
	require.Len(t, projects, 2)
	assert.Equal(t, "50.00", projects[0].(map[string]interface{})["invoice_price"])
}

func TestDeleteProject_KeepsPendingSnapshot(t *testing.T) {
	s := setupTestApp(t)
	p := s.createProject(t, "Menu flyer", "The Hideout")
	s.complete(t, p, "75.5")

	resp := s.do(t, http.MethodDelete, "/projects/"+p.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(t, http.MethodGet, "/projects/"+p.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var pending []models.InvoiceProject
	decode(t, s.do(t, http.MethodGet, "/invoices/the-hideout/pending", nil), &pending)
	require.Len(t, pending, 1)
	assert.Equal(t, p.ID, pending[0].ProjectID)
	assert.Equal(t, "Menu flyer", pending[0].Title)
	assert.Equal(t, "75.50", pending[0].InvoicePrice.StringFixed(2))
}

func TestClearCompleted_KeepsInvoices(t *testing.T) {
	s := setupTestApp(t)
	exported := s.createProject(t, "Banner", "Luck On Fourth")
	pendingOnly := s.createProject(t, "Poster", "Luck On Fourth")
	active := s.createProject(t, "Reel", "Luck On Fourth")

	s.complete(t, exported, "120")
	resp := s.do(t, http.MethodPost, "/invoices/luck-on-fourth/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	s.complete(t, pendingOnly, "40")

	resp = s.do(t, http.MethodDelete, "/projects/completed", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cleared map[string]interface{}
	decode(t, resp, &cleared)
	assert.EqualValues(t, 2, cleared["deleted"])

	var all []models.Project
	decode(t, s.do(t, http.MethodGet, "/projects?all=true", nil), &all)
	require.Len(t, all, 1)
	assert.Equal(t, active.ID, all[0].ID)

	var pending []models.InvoiceProject
	decode(t, s.do(t, http.MethodGet, "/invoices/luck-on-fourth/pending", nil), &pending)
	require.Len(t, pending, 1)
	assert.Equal(t, pendingOnly.ID, pending[0].ProjectID)

	var history []models.ExportedInvoice
	decode(t, s.do(t, http.MethodGet, "/invoices/luck-on-fourth/history", nil), &history)
	require.Len(t, history, 1)
	require.Len(t, history[0].Projects, 1)
	assert.Equal(t, exported.ID, history[0].Projects[0].ProjectID)
}

func TestExportInvoice_NumbersAdvanceByOne(t *testing.T) {
	s := setupTestApp(t)

	numbers := []string{}
	for _, title := range []string{"First flyer", "Second flyer"} {
		s.complete(t, s.createProject(t, title, "Wami Live"), "60")
		resp := s.do(t, http.MethodPost, "/invoices/wami-live/export", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
		numbers = append(numbers, resp.Header.Get("X-Invoice-Number"))
	}
	assert.Equal(t, []string{"001", "002"}, numbers)

	var status services.CounterStatus
	decode(t, s.do(t, http.MethodGet, "/invoices/counters", nil), &status)
	require.Len(t, status.Counters, 1)
	assert.Equal(t, models.BrandWamiLive, status.Counters[0].Brand)
	assert.EqualValues(t, 2, status.Counters[0].CurrentNumber)

	var history []models.ExportedInvoice
	decode(t, s.do(t, http.MethodGet, "/invoices/wami-live/history", nil), &history)
	require.Len(t, history, 2)
	assert.NotEqual(t, history[0].InvoiceNumber, history[1].InvoiceNumber)
}
