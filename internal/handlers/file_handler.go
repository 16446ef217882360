package handlers

import (
	"fmt"
	"net/url"
	"path"

	"github.com/gofiber/fiber/v2"

	"ops-dashboard/internal/services"
)

type FileHandler struct {
	attachmentService *services.AttachmentService
}

func NewFileHandler(attachmentService *services.AttachmentService) *FileHandler {
	return &FileHandler{attachmentService: attachmentService}
}

// DownloadFile streams a project attachment
// @Summary Download an attachment
// @Tags files
// @Produce octet-stream
// @Param key path string true "Storage key"
// @Success 200 {file} file "Attachment"
// @Failure 404 {object} map[string]interface{} "File not found"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /files/{key} [get]
func (h *FileHandler) DownloadFile(c *fiber.Ctx) error {
	key, err := url.PathUnescape(c.Params("*"))
	if err != nil {
		return respondError(c, invalid("invalid file path"))
	}
	rc, info, err := h.attachmentService.Open(c.UserContext(), key)
	if err != nil {
		return respondError(c, err)
	}
	if info.ContentType != "" {
		c.Set(fiber.HeaderContentType, info.ContentType)
	}
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", path.Base(key)))
	// fasthttp closes the stream once the body is written.
	return c.SendStream(rc, int(info.Size))
}
