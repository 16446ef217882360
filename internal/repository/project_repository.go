package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"ops-dashboard/internal/models"
)

// ProjectRepository defines persistence for the projects table.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	Get(ctx context.Context, id uuid.UUID) (*models.Project, error)
	List(ctx context.Context) ([]models.Project, error)
	Update(ctx context.Context, project *models.Project) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status) error
	UpdatePriorities(ctx context.Context, priorities map[uuid.UUID]int) error
	UpdateFiles(ctx context.Context, id uuid.UUID, files []models.ProjectFile) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByStatus(ctx context.Context, status models.Status) (int64, error)
}

// ProjectRepositoryImpl provides methods to interact with the Project model in the database.
type ProjectRepositoryImpl struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepositoryImpl instance with the provided GORM database connection.
func NewProjectRepository(db *gorm.DB) *ProjectRepositoryImpl {
	return &ProjectRepositoryImpl{db: db}
}

// Create inserts a new Project.
func (r *ProjectRepositoryImpl) Create(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

// Get retrieves a Project by its ID.
func (r *ProjectRepositoryImpl) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).First(&project, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &project, nil
}

// List retrieves every Project ordered by priority, oldest first on ties.
func (r *ProjectRepositoryImpl) List(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.WithContext(ctx).Order("priority ASC").Order("created_at ASC").Find(&projects).Error
	return projects, err
}

// Update writes the editable fields of an existing Project.
func (r *ProjectRepositoryImpl) Update(ctx context.Context, project *models.Project) error {
	res := r.db.WithContext(ctx).Model(&models.Project{}).
		Where("id = ?", project.ID).
		Select("title", "brand", "type", "description", "deadline", "priority", "status", "files").
		Updates(project)
	return rowsOrNotFound(res)
}

// UpdateStatus sets only the status column.
func (r *ProjectRepositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status) error {
	res := r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).Update("status", status)
	return rowsOrNotFound(res)
}

// UpdatePriorities rewrites priorities for several projects in one transaction.
// Nothing is written unless every row exists.
func (r *ProjectRepositoryImpl) UpdatePriorities(ctx context.Context, priorities map[uuid.UUID]int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, priority := range priorities {
			res := tx.Model(&models.Project{}).Where("id = ?", id).Update("priority", priority)
			if err := rowsOrNotFound(res); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateFiles replaces the attachment list of a Project.
func (r *ProjectRepositoryImpl) UpdateFiles(ctx context.Context, id uuid.UUID, files []models.ProjectFile) error {
	res := r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).
		Update("files", datatypes.NewJSONSlice(files))
	return rowsOrNotFound(res)
}

// Delete removes a Project by its ID.
func (r *ProjectRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Project{}, "id = ?", id)
	return rowsOrNotFound(res)
}

// DeleteByStatus removes every Project in the given status and reports how many went.
func (r *ProjectRepositoryImpl) DeleteByStatus(ctx context.Context, status models.Status) (int64, error) {
	res := r.db.WithContext(ctx).Where("status = ?", status).Delete(&models.Project{})
	return res.RowsAffected, res.Error
}

func rowsOrNotFound(res *gorm.DB) error {
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
