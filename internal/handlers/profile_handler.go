package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/nagaralert/alerthub/internal/dto"
	"github.com/nagaralert/alerthub/internal/identity"
	"github.com/nagaralert/alerthub/internal/services"
)

type ProfileHandler struct {
	profiles *services.ProfileService
}

func NewProfileHandler(profiles *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	userID, err := identity.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	profile, err := h.profiles.Get(c.UserContext(), userID)
	if err != nil {
		return serviceError(c, err, "Failed to load profile")
	}
	return c.JSON(profile)
}

func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	userID, err := identity.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}

	profile, err := h.profiles.Update(c.UserContext(), userID, &req)
	if err != nil {
		return serviceError(c, err, "Failed to update profile")
	}
	return c.JSON(profile)
}

// SetRole is mounted behind the admin-only gate.
func (h *ProfileHandler) SetRole(c *fiber.Ctx) error {
	actorID, err := identity.UserID(c)
	if err != nil {
		return unauthorized(c)
	}

	targetID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid profile id")
	}

	var req dto.SetRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}

	profile, err := h.profiles.SetRole(c.UserContext(), actorID, targetID, req.Role)
	if err != nil {
		return serviceError(c, err, "Failed to update role")
	}
	return c.JSON(profile)
}
