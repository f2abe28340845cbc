package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/nagaralert/alerthub/internal/dto"
	"github.com/nagaralert/alerthub/internal/identity"
	"github.com/nagaralert/alerthub/internal/models"
	"github.com/nagaralert/alerthub/internal/services"
)

type ModerationHandler struct {
	moderation *services.ModerationService
	feeds      *services.FeedService
	analytics  *services.AnalyticsService
}

func NewModerationHandler(moderation *services.ModerationService, feeds *services.FeedService, analytics *services.AnalyticsService) *ModerationHandler {
	return &ModerationHandler{moderation: moderation, feeds: feeds, analytics: analytics}
}

// ListAlerts is the admin feed: the latest alerts in every status, grouped into tabs.
func (h *ModerationHandler) ListAlerts(c *fiber.Ctx) error {
	tabs, err := h.feeds.Admin(c.UserContext(), c.Query("q"))
	if err != nil {
		return serviceError(c, err, "Failed to load alerts")
	}
	return c.JSON(tabs)
}

type transitionFunc func(ctx context.Context, actorID, alertID uuid.UUID, req *dto.ModerationRequest) (*models.Alert, error)

func (h *ModerationHandler) Verify(c *fiber.Ctx) error {
	return h.transition(c, h.moderation.Verify)
}

func (h *ModerationHandler) Reject(c *fiber.Ctx) error {
	return h.transition(c, h.moderation.Reject)
}

func (h *ModerationHandler) Resolve(c *fiber.Ctx) error {
	return h.transition(c, h.moderation.Resolve)
}

func (h *ModerationHandler) transition(c *fiber.Ctx, apply transitionFunc) error {
	actorID, err := identity.UserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := alertID(c)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid alert id")
	}

	var req dto.ModerationRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
		}
	}

	alert, err := apply(c.UserContext(), actorID, id, &req)
	if err != nil {
		return serviceError(c, err, "Failed to update alert status")
	}
	return c.JSON(alert)
}

// Delete needs ?confirm=true. Without it nothing is removed.
func (h *ModerationHandler) Delete(c *fiber.Ctx) error {
	actorID, err := identity.UserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := alertID(c)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid alert id")
	}
	if !c.QueryBool("confirm", false) {
		return errorJSON(c, fiber.StatusPreconditionRequired, "Deleting an alert is permanent. Repeat the request with confirm=true.")
	}

	if err := h.moderation.Delete(c.UserContext(), actorID, id, c.Query("notes")); err != nil {
		return serviceError(c, err, "Failed to delete alert")
	}
	return c.JSON(fiber.Map{"message": "Alert deleted successfully"})
}

func (h *ModerationHandler) ListActions(c *fiber.Ctx) error {
	limit := services.ActionLimit(c.QueryInt("limit", 0))
	actions, err := h.moderation.ListActions(c.UserContext(), limit)
	if err != nil {
		return serviceError(c, err, "Failed to load admin actions")
	}
	return c.JSON(dto.ActionListResponse{Actions: actions, Limit: limit})
}

func (h *ModerationHandler) Analytics(c *fiber.Ctx) error {
	summary, err := h.analytics.Summary(c.UserContext(), time.Now())
	if err != nil {
		return serviceError(c, err, "Failed to compute analytics")
	}
	return c.JSON(summary)
}
