package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"ops-dashboard/internal/models"
	"ops-dashboard/internal/services"
)

// statusFor maps the service error classes onto HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrPriceRequired):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, services.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrEmptyInvoice):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "status", status, "error", err)
	} else {
		slog.Debug("request rejected", "method", c.Method(), "path", c.Path(), "status", status, "error", err)
	}
	return c.Status(status).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

func invalid(format string, args ...interface{}) error {
	return errors.Wrapf(services.ErrValidation, format, args...)
}

func parseID(c *fiber.Ctx, param string) (uuid.UUID, error) {
	raw := c.Params(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, invalid("invalid UUID %q", raw)
	}
	return id, nil
}

func parseBrand(c *fiber.Ctx) (models.Brand, error) {
	raw := c.Params("brand")
	brand, ok := models.ParseBrand(raw)
	if !ok {
		return "", invalid("unknown brand %q", raw)
	}
	return brand, nil
}
