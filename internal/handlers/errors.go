package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/nagaralert/alerthub/internal/dto"
	"github.com/nagaralert/alerthub/internal/services"
	"github.com/nagaralert/alerthub/internal/storage"
)

func errorJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}

func unauthorized(c *fiber.Ctx) error {
	return errorJSON(c, fiber.StatusUnauthorized, "Unauthorized")
}

// serviceError answers errors shared by the alert, moderation and engagement
// services. Anything unrecognised is logged and reported as fallback with a 500.
func serviceError(c *fiber.Ctx, err error, fallback string) error {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return errorJSON(c, fiber.StatusBadRequest, verr.Error())
	case errors.Is(err, services.ErrAlertNotFound):
		return errorJSON(c, fiber.StatusNotFound, "Alert not found")
	case errors.Is(err, services.ErrProfileNotFound):
		return errorJSON(c, fiber.StatusNotFound, "Profile not found")
	case errors.Is(err, services.ErrInvalidTransition):
		return errorJSON(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, services.ErrStaleStatus):
		return errorJSON(c, fiber.StatusConflict, "Alert was changed by another moderator. Reload and try again.")
	case errors.Is(err, services.ErrSelfRoleChange):
		return errorJSON(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrImageTooLarge):
		return errorJSON(c, fiber.StatusRequestEntityTooLarge, "Image must be 5MB or smaller")
	case errors.Is(err, services.ErrNotAnImage):
		return errorJSON(c, fiber.StatusUnsupportedMediaType, "Only image uploads are accepted")
	case errors.Is(err, storage.ErrNotConfigured):
		return errorJSON(c, fiber.StatusServiceUnavailable, "Image uploads are not available. Submit without a photo.")
	}

	slog.Error(fallback, "method", c.Method(), "path", c.Path(), "error", err)
	return errorJSON(c, fiber.StatusInternalServerError, fallback)
}

func alertID(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("id"))
}
