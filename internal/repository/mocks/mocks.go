package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"ops-dashboard/internal/models"
)

// ProjectRepository is a mock for repository.ProjectRepository.
type ProjectRepository struct {
	mock.Mock
}

func (m *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *ProjectRepository) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	args := m.Called(ctx, id)
	if p, ok := args.Get(0).(*models.Project); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) List(ctx context.Context) ([]models.Project, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]models.Project); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) Update(ctx context.Context, project *models.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *ProjectRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *ProjectRepository) UpdatePriorities(ctx context.Context, priorities map[uuid.UUID]int) error {
	args := m.Called(ctx, priorities)
	return args.Error(0)
}

func (m *ProjectRepository) UpdateFiles(ctx context.Context, id uuid.UUID, files []models.ProjectFile) error {
	args := m.Called(ctx, id, files)
	return args.Error(0)
}

func (m *ProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *ProjectRepository) DeleteByStatus(ctx context.Context, status models.Status) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

// InvoiceProjectRepository is a mock for repository.InvoiceProjectRepository.
type InvoiceProjectRepository struct {
	mock.Mock
}

func (m *InvoiceProjectRepository) Upsert(ctx context.Context, item *models.InvoiceProject) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *InvoiceProjectRepository) ListByBrand(ctx context.Context, brand models.Brand) ([]models.InvoiceProject, error) {
	args := m.Called(ctx, brand)
	if list, ok := args.Get(0).([]models.InvoiceProject); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *InvoiceProjectRepository) Delete(ctx context.Context, brand models.Brand, projectID uuid.UUID) error {
	args := m.Called(ctx, brand, projectID)
	return args.Error(0)
}

func (m *InvoiceProjectRepository) DeleteByBrand(ctx context.Context, brand models.Brand) (int64, error) {
	args := m.Called(ctx, brand)
	return args.Get(0).(int64), args.Error(1)
}

// ExportedInvoiceRepository is a mock for repository.ExportedInvoiceRepository.
type ExportedInvoiceRepository struct {
	mock.Mock
}

func (m *ExportedInvoiceRepository) Create(ctx context.Context, invoice *models.ExportedInvoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *ExportedInvoiceRepository) Get(ctx context.Context, id uuid.UUID) (*models.ExportedInvoice, error) {
	args := m.Called(ctx, id)
	if inv, ok := args.Get(0).(*models.ExportedInvoice); ok {
		return inv, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ExportedInvoiceRepository) ListByBrand(ctx context.Context, brand models.Brand) ([]models.ExportedInvoice, error) {
	args := m.Called(ctx, brand)
	if list, ok := args.Get(0).([]models.ExportedInvoice); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ExportedInvoiceRepository) SetPaid(ctx context.Context, id uuid.UUID, paid bool) error {
	args := m.Called(ctx, id, paid)
	return args.Error(0)
}

func (m *ExportedInvoiceRepository) DeleteByBrand(ctx context.Context, brand models.Brand) (int64, error) {
	args := m.Called(ctx, brand)
	return args.Get(0).(int64), args.Error(1)
}

// InvoiceCounterRepository is a mock for repository.InvoiceCounterRepository.
type InvoiceCounterRepository struct {
	mock.Mock
}

func (m *InvoiceCounterRepository) Next(ctx context.Context, brand models.Brand) (int64, error) {
	args := m.Called(ctx, brand)
	return args.Get(0).(int64), args.Error(1)
}

func (m *InvoiceCounterRepository) List(ctx context.Context) ([]models.InvoiceCounter, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]models.InvoiceCounter); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
