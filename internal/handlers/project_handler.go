// internal/handlers/project_handler.go
package handlers

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"ops-dashboard/internal/models"
	"ops-dashboard/internal/services"
)

// ProjectRequest is the submission form for creating or editing a project.
// Deadline is a calendar date (2006-01-02) or an RFC 3339 timestamp.
type ProjectRequest struct {
	Title       string `json:"title"`
	Brand       string `json:"brand"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Deadline    string `json:"deadline"`
	Priority    *int   `json:"priority,omitempty"`
}

func (r ProjectRequest) input() (services.ProjectInput, error) {
	in := services.ProjectInput{
		Title:       r.Title,
		Brand:       models.Brand(r.Brand),
		Type:        models.ProjectType(r.Type),
		Description: r.Description,
		Priority:    r.Priority,
	}
	if brand, ok := models.ParseBrand(r.Brand); ok {
		in.Brand = brand
	}
	if r.Deadline != "" {
		deadline, err := parseDeadline(r.Deadline)
		if err != nil {
			return in, err
		}
		in.Deadline = deadline
	}
	return in, nil
}

func parseDeadline(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, invalid("deadline %q is not a date", raw)
}

// StatusRequest moves a project to another status. Price is required when
// the target is Completed and may be a JSON string or number.
type StatusRequest struct {
	Status string     `json:"status"`
	Price  priceField `json:"price,omitempty"`
}

type priceField string

func (p *priceField) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*p = priceField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*p = priceField(n.String())
	return nil
}

// StatusResponse carries the project and, when it was just completed, the
// invoice item created for it.
type StatusResponse struct {
	Project     *models.Project        `json:"project"`
	InvoiceItem *models.InvoiceProject `json:"invoice_item,omitempty"`
}

type ReorderRequest struct {
	IDs []string `json:"ids"`
}

type ProjectHandler struct {
	projectService    *services.ProjectService
	attachmentService *services.AttachmentService
}

func NewProjectHandler(projectService *services.ProjectService, attachmentService *services.AttachmentService) *ProjectHandler {
	return &ProjectHandler{
		projectService:    projectService,
		attachmentService: attachmentService,
	}
}

// ListProjects returns projects in priority order
// @Summary List projects
// @Description Active projects by priority. Use all=true to include completed ones or status to filter.
// @Tags projects
// @Produce json
// @Param all query bool false "Include completed projects"
// @Param status query string false "Only projects in this status"
// @Success 200 {array} models.Project
// @Failure 400 {object} map[string]interface{} "Unknown status"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /projects [get]
func (h *ProjectHandler) ListProjects(c *fiber.Ctx) error {
	ctx := c.UserContext()
	var (
		projects []models.Project
		err      error
	)
	switch {
	case c.Query("status") != "":
		status, ok := models.ParseStatus(c.Query("status"))
		if !ok {
			return respondError(c, invalid("unknown status %q", c.Query("status")))
		}
		projects, err = h.projectService.ListByStatus(ctx, status)
	case c.QueryBool("all"):
		projects, err = h.projectService.ListAll(ctx)
	default:
		projects, err = h.projectService.ListActive(ctx)
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(projects)
}

// GetStats returns project counts
// @Summary Project statistics
// @Tags projects
// @Produce json
// @Success 200 {object} services.Stats
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /projects/stats [get]
func (h *ProjectHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.projectService.Stats(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// GetProject returns a project by ID
// @Summary Get a project by ID
// @Tags projects
// @Produce json
// @Param id path string true "Project ID" Format(uuid)
// @Success 200 {object} models.Project "Project found"
// @Failure 400 {object} map[string]interface{} "Invalid UUID"
// @Failure 404 {object} map[string]interface{} "Project not found"
// @Router /projects/{id} [get]
func (h *ProjectHandler) GetProject(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	project, err := h.projectService.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(project)
}

// CreateProject creates a new project
// @Summary Create a new project
// @Description New projects start Pending. Without a priority they go to the end of the list.
// @Tags projects
// @Accept json
// @Produce json
// @Param project body ProjectRequest true "Project data"
// @Success 201 {object} models.Project "Project successfully created"
// @Failure 400 {object} map[string]interface{} "Bad request - Invalid project data"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /projects [post]
func (h *ProjectHandler) CreateProject(c *fiber.Ctx) error {
	var req ProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, invalid("invalid request format: %v", err))
	}
	in, err := req.input()
	if err != nil {
		return respondError(c, err)
	}
	project, err := h.projectService.Create(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(project)
}

// UpdateProject updates a project
// @Summary Update a project
// @Description Rewrites the form fields. Status is changed through the status endpoint.
// @Tags projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID" Format(uuid)
// @Param project body ProjectRequest true "Updated project data"
// @Success 200 {object} models.Project "Updated project"
// @Failure 400 {object} map[string]interface{} "Bad request - Invalid UUID or data"
// @Failure 404 {object} map[string]interface{} "Project not found"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /projects/{id} [put]
func (h *ProjectHandler) UpdateProject(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req ProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, invalid("invalid request format: %v", err))
	}
	in, err := req.input()
	if err != nil {
		return respondError(c, err)
	}
	project, err := h.projectService.Update(c.UserContext(), id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(project)
}

// ChangeStatus moves a project between statuses
// @Summary Change project status
// @Description Moving to Completed requires an invoice price and adds the project to its brand's pending invoice.
// @Tags projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID" Format(uuid)
// @Param status body StatusRequest true "Target status and optional price"
// @Success 200 {object} StatusResponse
// @Failure 400 {object} map[string]interface{} "Invalid status or price"
// @Failure 404 {object} map[string]interface{} "Project not found"
// @Failure 422 {object} map[string]interface{} "Price required to complete"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /projects/{id}/status [patch]
func (h *ProjectHandler) ChangeStatus(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, invalid("invalid request format: %v", err))
	}
	status, ok := models.ParseStatus(req.Status)
	if !ok {
		return respondError(c, invalid("unknown status %q", req.Status))
	}

	ctx := c.UserContext()
	if status == models.StatusCompleted && req.Price != "" {
		project, item, err := h.projectService.CompleteProject(ctx, id, string(req.Price))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(StatusResponse{Project: project, InvoiceItem: item})
	}

	project, err := h.projectService.ChangeStatus(ctx, id, status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(StatusResponse{Project: project})
}

// ReorderProjects sets the priority order of the active list
// @Summary Reorder active projects
// @Description The ids must be exactly the active project ids in their new order.
// @Tags projects
// @Accept json
// @Produce json
// @Param order body ReorderRequest true "Active project ids in display order"
// @Success 200 {array} models.Project
// @Failure 400 {object} map[string]interface{} "Not a permutation of the active list"
// @Failure 500 {object} map[string]interface{} "Order could not be saved and was reloaded"
// @Router /projects/order [put]
func (h *ProjectHandler) ReorderProjects(c *fiber.Ctx) error {
	var req ReorderRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, invalid("invalid request format: %v", err))
	}
	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return respondError(c, invalid("invalid UUID %q", raw))
		}
		ids = append(ids, id)
	}
	projects, err := h.projectService.Reorder(c.UserContext(), ids)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(projects)
}

// DeleteProject deletes a project
// @Summary Delete a project
// @Description Removes the project. Pending invoice items and history are kept.
// @Tags projects
// @Produce json
// @Param id path string true "Project ID" Format(uuid)
// @Success 200 {object} map[string]interface{} "Project deleted successfully"
// @Failure 400 {object} map[string]interface{} "Invalid UUID"
// @Failure 404 {object} map[string]interface{} "Project not found"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /projects/{id} [delete]
func (h *ProjectHandler) DeleteProject(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := h.projectService.Delete(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Project deleted successfully",
		"id":      id.String(),
	})
}

// ClearCompleted deletes all completed projects
// @Summary Clear completed projects
// @Tags projects
// @Produce json
// @Success 200 {object} map[string]interface{} "Number of deleted projects"
// @Failure 400 {object} map[string]interface{} "No completed projects"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /projects/completed [delete]
func (h *ProjectHandler) ClearCompleted(c *fiber.Ctx) error {
	n, err := h.projectService.ClearCompleted(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Completed projects cleared",
		"deleted": n,
	})
}

// AttachFiles uploads attachments to a project
// @Summary Attach files to a project
// @Description Archives (.zip, .rar, .7z, .tar, .tgz, .tar.gz) are unpacked and each file is attached.
// @Tags projects
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Project ID" Format(uuid)
// @Param files formData file true "Files to attach"
// @Success 201 {object} models.Project
// @Failure 400 {object} map[string]interface{} "Missing or oversized file"
// @Failure 404 {object} map[string]interface{} "Project not found"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /projects/{id}/files [post]
func (h *ProjectHandler) AttachFiles(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	form, err := c.MultipartForm()
	if err != nil {
		return respondError(c, invalid("failed to read multipart form: %v", err))
	}
	var uploads []services.Upload
	for _, field := range []string{"files", "file"} {
		for _, fh := range form.File[field] {
			uploads = append(uploads, services.UploadFromHeader(fh))
		}
	}

	project, err := h.attachmentService.AttachFiles(c.UserContext(), id, uploads)
	if err != nil {
		return respondError(c, err)
	}
	slog.Info("files attached", "project", id, "uploads", len(uploads))
	return c.Status(fiber.StatusCreated).JSON(project)
}

// RemoveFile detaches one attachment
// @Summary Remove an attachment
// @Tags projects
// @Produce json
// @Param id path string true "Project ID" Format(uuid)
// @Param fileId path string true "File ID" Format(uuid)
// @Success 200 {object} models.Project
// @Failure 400 {object} map[string]interface{} "Invalid UUID"
// @Failure 404 {object} map[string]interface{} "Project or file not found"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /projects/{id}/files/{fileId} [delete]
func (h *ProjectHandler) RemoveFile(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	fileID, err := parseID(c, "fileId")
	if err != nil {
		return respondError(c, err)
	}
	project, err := h.attachmentService.RemoveFile(c.UserContext(), id, fileID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(project)
}
