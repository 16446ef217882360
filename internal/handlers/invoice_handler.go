package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"ops-dashboard/internal/models"
	"ops-dashboard/internal/services"
)

type InvoiceHandler struct {
	invoiceService *services.InvoiceService
}

func NewInvoiceHandler(invoiceService *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

// ListSummaries returns the pending-invoice header of every brand
// @Summary Pending invoice summaries
// @Tags invoices
// @Produce json
// @Success 200 {array} services.BrandSummary
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /invoices [get]
func (h *InvoiceHandler) ListSummaries(c *fiber.Ctx) error {
	summaries, err := h.invoiceService.Summaries(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(summaries)
}

// GetCounters reports the invoice number counters
// @Summary Invoice counters
// @Tags invoices
// @Produce json
// @Success 200 {object} services.CounterStatus
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /invoices/counters [get]
func (h *InvoiceHandler) GetCounters(c *fiber.Ctx) error {
	status, err := h.invoiceService.Counters(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status)
}

// ListPending returns a brand's pending invoice items
// @Summary Pending invoice items
// @Tags invoices
// @Produce json
// @Param brand path string true "Brand name or slug"
// @Success 200 {array} models.InvoiceProject
// @Failure 400 {object} map[string]interface{} "Unknown brand"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /invoices/{brand}/pending [get]
func (h *InvoiceHandler) ListPending(c *fiber.Ctx) error {
	brand, err := parseBrand(c)
	if err != nil {
		return respondError(c, err)
	}
	items, err := h.invoiceService.ListPending(c.UserContext(), brand)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(items)
}

// GetTotal returns the sum of a brand's pending prices
// @Summary Pending invoice total
// @Tags invoices
// @Produce json
// @Param brand path string true "Brand name or slug"
// @Success 200 {object} map[string]interface{} "brand and total"
// @Failure 400 {object} map[string]interface{} "Unknown brand"
// @Router /invoices/{brand}/total [get]
func (h *InvoiceHandler) GetTotal(c *fiber.Ctx) error {
	brand, err := parseBrand(c)
	if err != nil {
		return respondError(c, err)
	}
	total, err := h.invoiceService.Total(c.UserContext(), brand)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"brand": brand, "total": models.FormatAmount(total)})
}

// RemovePending drops one item from a brand's pending invoice
// @Summary Remove pending invoice item
// @Description The source project is not changed.
// @Tags invoices
// @Produce json
// @Param brand path string true "Brand name or slug"
// @Param projectId path string true "Project ID" Format(uuid)
// @Success 200 {object} map[string]interface{} "Removed"
// @Failure 400 {object} map[string]interface{} "Unknown brand or invalid UUID"
// @Failure 404 {object} map[string]interface{} "Item not found"
// @Router /invoices/{brand}/pending/{projectId} [delete]
func (h *InvoiceHandler) RemovePending(c *fiber.Ctx) error {
	brand, err := parseBrand(c)
	if err != nil {
		return respondError(c, err)
	}
	projectID, err := parseID(c, "projectId")
	if err != nil {
		return respondError(c, err)
	}
	if err := h.invoiceService.RemoveFromPending(c.UserContext(), brand, projectID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Removed from pending invoice",
		"id":      projectID.String(),
	})
}

// ExportInvoice produces the brand's invoice PDF
// @Summary Export invoice
// @Description Numbers the invoice, returns the PDF, records it in history and clears the pending items.
// @Tags invoices
// @Produce application/pdf
// @Param brand path string true "Brand name or slug"
// @Success 200 {file} file "Invoice PDF"
// @Failure 400 {object} map[string]interface{} "Unknown brand"
// @Failure 409 {object} map[string]interface{} "Nothing to invoice"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /invoices/{brand}/export [post]
func (h *InvoiceHandler) ExportInvoice(c *fiber.Ctx) error {
	brand, err := parseBrand(c)
	if err != nil {
		return respondError(c, err)
	}
	record, pdf, err := h.invoiceService.ExportInvoice(c.UserContext(), brand)
	if err != nil {
		return respondError(c, err)
	}
	c.Set("X-Invoice-Id", record.ID.String())
	c.Set("X-Invoice-Number", record.InvoiceNumber)
	return sendPDF(c, record.FileName, "attachment", pdf)
}

// ListHistory returns a brand's exported invoices
// @Summary Invoice history
// @Tags invoices
// @Produce json
// @Param brand path string true "Brand name or slug"
// @Success 200 {array} models.ExportedInvoice
// @Failure 400 {object} map[string]interface{} "Unknown brand"
// @Router /invoices/{brand}/history [get]
func (h *InvoiceHandler) ListHistory(c *fiber.Ctx) error {
	brand, err := parseBrand(c)
	if err != nil {
		return respondError(c, err)
	}
	list, err := h.invoiceService.ListHistory(c.UserContext(), brand)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(list)
}

// TogglePaid flips the paid flag of an exported invoice
// @Summary Toggle paid
// @Tags invoices
// @Produce json
// @Param brand path string true "Brand name or slug"
// @Param id path string true "Invoice ID" Format(uuid)
// @Success 200 {object} models.ExportedInvoice
// @Failure 404 {object} map[string]interface{} "Invoice not found"
// @Router /invoices/{brand}/history/{id}/paid [patch]
func (h *InvoiceHandler) TogglePaid(c *fiber.Ctx) error {
	brand, err := parseBrand(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	record, err := h.invoiceService.TogglePaid(c.UserContext(), brand, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(record)
}

// DownloadDocument returns the PDF of an exported invoice again
// @Summary Download exported invoice
// @Tags invoices
// @Produce application/pdf
// @Param brand path string true "Brand name or slug"
// @Param id path string true "Invoice ID" Format(uuid)
// @Success 200 {file} file "Invoice PDF"
// @Failure 404 {object} map[string]interface{} "Invoice not found"
// @Router /invoices/{brand}/history/{id}/document [get]
func (h *InvoiceHandler) DownloadDocument(c *fiber.Ctx) error {
	brand, err := parseBrand(c)
	if err != nil {
		return respondError(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	record, pdf, err := h.invoiceService.Document(c.UserContext(), brand, id)
	if err != nil {
		return respondError(c, err)
	}
	return sendPDF(c, record.FileName, "inline", pdf)
}

// ClearHistory deletes a brand's exported invoices
// @Summary Clear invoice history
// @Description Invoice numbering continues from where it was.
// @Tags invoices
// @Produce json
// @Param brand path string true "Brand name or slug"
// @Success 200 {object} map[string]interface{} "Number of deleted invoices"
// @Failure 400 {object} map[string]interface{} "No history to clear"
// @Router /invoices/{brand}/history [delete]
func (h *InvoiceHandler) ClearHistory(c *fiber.Ctx) error {
	brand, err := parseBrand(c)
	if err != nil {
		return respondError(c, err)
	}
	n, err := h.invoiceService.ClearHistory(c.UserContext(), brand)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Invoice history cleared",
		"deleted": n,
	})
}

func sendPDF(c *fiber.Ctx, fileName, disposition string, pdf []byte) error {
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("%s; filename=%q", disposition, fileName))
	return c.Send(pdf)
}
