package handlers

import "github.com/gofiber/fiber/v2"

// RegisterRoutes mounts the dashboard API on r. Fixed paths are registered
// before the parameterised ones they would otherwise match.
func RegisterRoutes(r fiber.Router, projects *ProjectHandler, invoices *InvoiceHandler, files *FileHandler) {
	p := r.Group("/projects")
	p.Get("/", projects.ListProjects)
	p.Post("/", projects.CreateProject)
	p.Get("/stats", projects.GetStats)
	p.Put("/order", projects.ReorderProjects)
	p.Delete("/completed", projects.ClearCompleted)
	p.Get("/:id", projects.GetProject)
	p.Put("/:id", projects.UpdateProject)
	p.Delete("/:id", projects.DeleteProject)
	p.Patch("/:id/status", projects.ChangeStatus)
	p.Post("/:id/files", projects.AttachFiles)
	p.Delete("/:id/files/:fileId", projects.RemoveFile)

	r.Get("/files/*", files.DownloadFile)

	inv := r.Group("/invoices")
	inv.Get("/", invoices.ListSummaries)
	inv.Get("/counters", invoices.GetCounters)
	inv.Get("/:brand/pending", invoices.ListPending)
	inv.Delete("/:brand/pending/:projectId", invoices.RemovePending)
	inv.Get("/:brand/total", invoices.GetTotal)
	inv.Post("/:brand/export", invoices.ExportInvoice)
	inv.Get("/:brand/history", invoices.ListHistory)
	inv.Delete("/:brand/history", invoices.ClearHistory)
	inv.Patch("/:brand/history/:id/paid", invoices.TogglePaid)
	inv.Get("/:brand/history/:id/document", invoices.DownloadDocument)
}
