package services

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"ops-dashboard/internal/metrics"
	"ops-dashboard/internal/models"
	"ops-dashboard/internal/repository"
)

// InvoiceQueue receives priced snapshots of completed projects.
type InvoiceQueue interface {
	AddToPending(ctx context.Context, project models.Project, price decimal.Decimal) (*models.InvoiceProject, error)
}

// ProjectInput carries the submission-form fields for Create and Update.
// A nil Priority means "append to the end" on create and "keep the current
// position" on update.
type ProjectInput struct {
	Title       string
	Brand       models.Brand
	Type        models.ProjectType
	Description string
	Deadline    time.Time
	Priority    *int
}

func (in *ProjectInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	switch {
	case in.Title == "":
		return validationf("title is required")
	case in.Brand == "":
		return validationf("brand is required")
	case !in.Brand.Valid():
		return validationf("unknown brand %q", in.Brand)
	case in.Type == "":
		return validationf("type is required")
	case !in.Type.Valid():
		return validationf("unknown project type %q", in.Type)
	case in.Description == "":
		return validationf("description is required")
	case in.Deadline.IsZero():
		return validationf("deadline is required")
	case in.Priority != nil && *in.Priority < 1:
		return validationf("priority must be a positive integer")
	}
	return nil
}

// Stats summarizes the whole project table.
type Stats struct {
	Total                int            `json:"total"`
	ByStatus             map[string]int `json:"by_status"`
	CompletionPercentage int            `json:"completion_percentage"`
	ActiveByPriorityBand map[string]int `json:"active_by_priority_band"`
}

// ProjectService owns the ordered list of active (non-Completed) projects.
// The list is loaded from the repository on first use and kept in step with
// every write; a failed multi-row write discards it and reloads.
type ProjectService struct {
	repo     repository.ProjectRepository
	invoices InvoiceQueue
	metrics  *metrics.Metrics
	now      func() time.Time

	mu     sync.Mutex
	active []models.Project
	loaded bool
}

func NewProjectService(repo repository.ProjectRepository, invoices InvoiceQueue, m *metrics.Metrics) *ProjectService {
	return &ProjectService{
		repo:     repo,
		invoices: invoices,
		metrics:  m,
		now:      time.Now,
	}
}

// Reload replaces the in-memory list with the repository's.
func (s *ProjectService) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloadLocked(ctx)
}

func (s *ProjectService) reloadLocked(ctx context.Context) error {
	all, err := s.repo.List(ctx)
	if err != nil {
		s.loaded = false
		s.active = nil
		return backend("load projects", err)
	}
	active := make([]models.Project, 0, len(all))
	for _, p := range all {
		if p.IsActive() {
			active = append(active, p)
		}
	}
	s.active = active
	s.loaded = true
	return nil
}

func (s *ProjectService) ensureLoadedLocked(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	return s.reloadLocked(ctx)
}

// recoverLocked is the compensating action after a failed write: drop the
// speculative list and fetch the stored one.
func (s *ProjectService) recoverLocked(ctx context.Context) {
	if err := s.reloadLocked(ctx); err != nil {
		slog.Error("reload after failed write", "error", err)
	}
}

// persistOrderLocked renumbers list to 1..N, installs it and writes the
// priorities that changed. On failure the stored order is reloaded.
func (s *ProjectService) persistOrderLocked(ctx context.Context, op string, list []models.Project) error {
	changes := renumber(list)
	s.active = list
	if len(changes) == 0 {
		return nil
	}
	if err := s.repo.UpdatePriorities(ctx, changes); err != nil {
		slog.Error("persist priorities failed", "op", op, "count", len(changes), "error", err)
		s.recoverLocked(ctx)
		return backend(op, err)
	}
	return nil
}

// ListActive returns active projects in display order.
func (s *ProjectService) ListActive(ctx context.Context) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		return nil, err
	}
	return cloneList(s.active), nil
}

// ListAll returns every project, Completed included, by priority.
func (s *ProjectService) ListAll(ctx context.Context) ([]models.Project, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, backend("list projects", err)
	}
	return all, nil
}

func (s *ProjectService) ListByStatus(ctx context.Context, status models.Status) ([]models.Project, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	filtered := make([]models.Project, 0, len(all))
	for _, p := range all {
		if p.Status == status {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

func (s *ProjectService) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, backend("get project", err)
	}
	return p, nil
}

// Create validates the input, stores the project as Pending and places it in
// the active list at its priority (end of the list when none is given).
func (s *ProjectService) Create(ctx context.Context, in ProjectInput) (*models.Project, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		return nil, err
	}

	pos := len(s.active)
	if in.Priority != nil {
		pos = clamp(*in.Priority-1, len(s.active))
	}
	project := &models.Project{
		ID:          uuid.New(),
		Title:       in.Title,
		Brand:       in.Brand,
		Type:        in.Type,
		Description: in.Description,
		Deadline:    in.Deadline,
		Priority:    pos + 1,
		Status:      models.StatusPending,
		CreatedAt:   s.now(),
		Files:       []models.ProjectFile{},
	}
	if err := s.repo.Create(ctx, project); err != nil {
		return nil, backend("create project", err)
	}
	s.metrics.IncProjectsCreated(string(project.Brand))
	slog.Info("project created", "id", project.ID, "brand", project.Brand, "priority", project.Priority)

	if err := s.persistOrderLocked(ctx, "create project", insertAt(s.active, *project, pos)); err != nil {
		return nil, err
	}
	return project, nil
}

// Update rewrites the form fields of a project. Status is never changed here.
func (s *ProjectService) Update(ctx context.Context, id uuid.UUID, in ProjectInput) (*models.Project, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		return nil, err
	}

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, backend("get project", err)
	}
	updated := *existing
	updated.Title = in.Title
	updated.Brand = in.Brand
	updated.Type = in.Type
	updated.Description = in.Description
	updated.Deadline = in.Deadline

	idx := indexOf(s.active, id)
	if idx < 0 {
		// Completed projects are outside the ordering; keep whatever they had.
		if in.Priority != nil {
			updated.Priority = *in.Priority
		}
		if err := s.repo.Update(ctx, &updated); err != nil {
			return nil, backend("update project", err)
		}
		return &updated, nil
	}

	pos := idx
	if in.Priority != nil {
		pos = clamp(*in.Priority-1, len(s.active)-1)
	}
	updated.Priority = pos + 1
	if err := s.repo.Update(ctx, &updated); err != nil {
		s.recoverLocked(ctx)
		return nil, backend("update project", err)
	}
	list := insertAt(removeAt(s.active, idx), updated, pos)
	if err := s.persistOrderLocked(ctx, "update project", list); err != nil {
		return nil, err
	}
	return &updated, nil
}

// ChangeStatus handles the plain transitions. Moving to Completed is refused
// with ErrPriceRequired; that path goes through CompleteProject.
func (s *ProjectService) ChangeStatus(ctx context.Context, id uuid.UUID, status models.Status) (*models.Project, error) {
	if !status.Valid() {
		return nil, validationf("unknown status %q", status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		return nil, err
	}

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, backend("get project", err)
	}
	if existing.Status == status {
		return existing, nil
	}
	if status == models.StatusCompleted {
		return nil, ErrPriceRequired
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, backend("update status", err)
	}
	updated := *existing
	updated.Status = status

	if idx := indexOf(s.active, id); idx >= 0 {
		s.active[idx].Status = status
		return &updated, nil
	}

	// Reopened: back into the ordering near where it used to be.
	pos := clamp(existing.Priority-1, len(s.active))
	if err := s.persistOrderLocked(ctx, "reopen project", insertAt(s.active, updated, pos)); err != nil {
		return nil, err
	}
	updated.Priority = pos + 1
	slog.Info("project reopened", "id", id, "status", status)
	return &updated, nil
}

// CompleteProject is the priced completion gate. The price must be a positive
// decimal. The status write and the invoice snapshot are separate calls: if
// the snapshot fails the project stays Completed and the error is returned.
func (s *ProjectService) CompleteProject(ctx context.Context, id uuid.UUID, price string) (*models.Project, *models.InvoiceProject, error) {
	amount, err := ParsePrice(price)
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		return nil, nil, err
	}

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, backend("get project", err)
	}
	if existing.Status == models.StatusCompleted {
		return nil, nil, validationf("project is already completed")
	}

	if err := s.repo.UpdateStatus(ctx, id, models.StatusCompleted); err != nil {
		return nil, nil, backend("complete project", err)
	}
	completed := *existing
	completed.Status = models.StatusCompleted
	s.metrics.IncProjectsCompleted(string(completed.Brand))

	item, snapErr := s.invoices.AddToPending(ctx, completed, amount)

	var orderErr error
	if idx := indexOf(s.active, id); idx >= 0 {
		orderErr = s.persistOrderLocked(ctx, "complete project", removeAt(s.active, idx))
	}

	if snapErr != nil {
		slog.Error("project completed without invoice record", "id", id, "brand", completed.Brand, "error", snapErr)
		return &completed, nil, errors.Wrap(snapErr, "project marked completed but not added to invoice")
	}
	if orderErr != nil {
		return &completed, item, orderErr
	}
	slog.Info("project completed", "id", id, "brand", completed.Brand, "price", amount.StringFixed(2))
	return &completed, item, nil
}

// Reorder takes the active list permuted into a new order and renumbers
// priorities to match. A failed write reloads the stored order.
func (s *ProjectService) Reorder(ctx context.Context, ids []uuid.UUID) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		return nil, err
	}

	if len(ids) != len(s.active) {
		return nil, validationf("expected %d project ids, got %d", len(s.active), len(ids))
	}
	byID := make(map[uuid.UUID]models.Project, len(s.active))
	for _, p := range s.active {
		byID[p.ID] = p
	}
	list := make([]models.Project, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, validationf("project %s is not in the active list or is repeated", id)
		}
		delete(byID, id)
		list = append(list, p)
	}

	if err := s.persistOrderLocked(ctx, "reorder projects", list); err != nil {
		s.metrics.IncReorderFailures()
		return nil, err
	}
	return cloneList(s.active), nil
}

// Delete removes a project permanently. Invoice snapshots are untouched.
func (s *ProjectService) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureLoadedLocked(ctx); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return backend("delete project", err)
	}
	slog.Info("project deleted", "id", id)
	if idx := indexOf(s.active, id); idx >= 0 {
		return s.persistOrderLocked(ctx, "delete project", removeAt(s.active, idx))
	}
	return nil
}

// ClearCompleted deletes every Completed project. Invoice data is untouched.
func (s *ProjectService) ClearCompleted(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteByStatus(ctx, models.StatusCompleted)
	if err != nil {
		return 0, backend("clear completed projects", err)
	}
	if n == 0 {
		return 0, validationf("no completed projects to clear")
	}
	slog.Info("cleared completed projects", "count", n)
	return n, nil
}

func (s *ProjectService) Stats(ctx context.Context) (Stats, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{
		Total: len(all),
		ByStatus: map[string]int{
			string(models.StatusPending):    0,
			string(models.StatusInProgress): 0,
			string(models.StatusCompleted):  0,
		},
		ActiveByPriorityBand: map[string]int{"high": 0, "medium": 0, "low": 0},
	}
	for _, p := range all {
		stats.ByStatus[string(p.Status)]++
		if p.IsActive() {
			stats.ActiveByPriorityBand[p.PriorityBand()]++
		}
	}
	if stats.Total > 0 {
		ratio := float64(stats.ByStatus[string(models.StatusCompleted)]) / float64(stats.Total)
		stats.CompletionPercentage = int(math.Round(ratio * 100))
	}
	return stats, nil
}

// AddFiles appends attachment records to a project.
func (s *ProjectService) AddFiles(ctx context.Context, id uuid.UUID, files []models.ProjectFile) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, backend("get project", err)
	}
	merged := make([]models.ProjectFile, 0, len(existing.Files)+len(files))
	merged = append(merged, existing.Files...)
	merged = append(merged, files...)
	if err := s.repo.UpdateFiles(ctx, id, merged); err != nil {
		return nil, backend("update project files", err)
	}
	existing.Files = merged
	s.syncCachedLocked(*existing)
	return existing, nil
}

// RemoveFile drops one attachment record and returns it.
func (s *ProjectService) RemoveFile(ctx context.Context, id, fileID uuid.UUID) (*models.Project, *models.ProjectFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, backend("get project", err)
	}
	idx := existing.FileIndex(fileID)
	if idx < 0 {
		return nil, nil, errors.Wrapf(ErrNotFound, "file %s", fileID)
	}
	removed := existing.Files[idx]
	remaining := make([]models.ProjectFile, 0, len(existing.Files)-1)
	remaining = append(remaining, existing.Files[:idx]...)
	remaining = append(remaining, existing.Files[idx+1:]...)
	if err := s.repo.UpdateFiles(ctx, id, remaining); err != nil {
		return nil, nil, backend("update project files", err)
	}
	existing.Files = remaining
	s.syncCachedLocked(*existing)
	return existing, &removed, nil
}

func (s *ProjectService) syncCachedLocked(p models.Project) {
	if idx := indexOf(s.active, p.ID); idx >= 0 {
		s.active[idx].Files = p.Files
	}
}

// ParsePrice accepts a positive decimal such as "50", "49.99" or "$12.50".
// Any value above zero is accepted; the result is rounded to cents.
func ParsePrice(raw string) (decimal.Decimal, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "$")
	if raw == "" {
		return decimal.Zero, validationf("price is required")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, validationf("price %q is not a number", raw)
	}
	if !d.IsPositive() {
		return decimal.Zero, validationf("price must be greater than zero")
	}
	return d.Round(2), nil
}

func indexOf(list []models.Project, id uuid.UUID) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func clamp(pos, max int) int {
	if pos < 0 {
		return 0
	}
	if pos > max {
		return max
	}
	return pos
}

func insertAt(list []models.Project, p models.Project, pos int) []models.Project {
	out := make([]models.Project, 0, len(list)+1)
	out = append(out, list[:pos]...)
	out = append(out, p)
	return append(out, list[pos:]...)
}

func removeAt(list []models.Project, idx int) []models.Project {
	out := make([]models.Project, 0, len(list))
	out = append(out, list[:idx]...)
	return append(out, list[idx+1:]...)
}

// renumber sets priority = position+1 and returns the rows that changed.
func renumber(list []models.Project) map[uuid.UUID]int {
	changes := make(map[uuid.UUID]int)
	for i := range list {
		if list[i].Priority != i+1 {
			list[i].Priority = i + 1
			changes[list[i].ID] = i + 1
		}
	}
	return changes
}

func cloneList(list []models.Project) []models.Project {
	out := make([]models.Project, len(list))
	copy(out, list)
	return out
}
