package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/nagaralert/alerthub/internal/dto"
	"github.com/nagaralert/alerthub/internal/identity"
	"github.com/nagaralert/alerthub/internal/services"
)

// EngagementHandler serves votes and comments on a single alert.
type EngagementHandler struct {
	alerts   *services.AlertService
	votes    *services.VoteService
	comments *services.CommentService
}

func NewEngagementHandler(alerts *services.AlertService, votes *services.VoteService, comments *services.CommentService) *EngagementHandler {
	return &EngagementHandler{alerts: alerts, votes: votes, comments: comments}
}

func (h *EngagementHandler) ListComments(c *fiber.Ctx) error {
	id, err := alertID(c)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid alert id")
	}
	if _, err := h.alerts.GetVisible(c.UserContext(), id, identity.ViewerOf(c)); err != nil {
		return serviceError(c, err, "Failed to load alert")
	}

	comments, err := h.comments.List(c.UserContext(), id)
	if err != nil {
		return serviceError(c, err, "Failed to load comments")
	}
	return c.JSON(fiber.Map{"comments": comments})
}

func (h *EngagementHandler) AddComment(c *fiber.Ctx) error {
	userID, err := identity.UserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := alertID(c)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid alert id")
	}

	var req dto.CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if _, err := h.alerts.GetVisible(c.UserContext(), id, identity.ViewerOf(c)); err != nil {
		return serviceError(c, err, "Failed to load alert")
	}

	comment, err := h.comments.Append(c.UserContext(), id, userID, req.Content)
	if err != nil {
		return serviceError(c, err, "Failed to post comment")
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

func (h *EngagementHandler) Vote(c *fiber.Ctx) error {
	userID, err := identity.UserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := alertID(c)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid alert id")
	}

	var req dto.VoteRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}

	result, err := h.votes.Cast(c.UserContext(), userID, id, req.VoteType)
	if err != nil {
		return serviceError(c, err, "Failed to record vote")
	}
	return c.JSON(result)
}

func (h *EngagementHandler) MyVote(c *fiber.Ctx) error {
	userID, err := identity.UserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := alertID(c)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid alert id")
	}

	vote, err := h.votes.Mine(c.UserContext(), userID, id)
	if err != nil {
		return serviceError(c, err, "Failed to load vote")
	}
	if vote == nil {
		return c.JSON(fiber.Map{"vote_type": nil})
	}
	return c.JSON(fiber.Map{"vote_type": vote.VoteType})
}
