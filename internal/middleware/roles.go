package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/nagaralert/alerthub/internal/dto"
	"github.com/nagaralert/alerthub/internal/identity"
	"github.com/nagaralert/alerthub/internal/models"
	"gorm.io/gorm"
)

// RoleRequired re-fetches the caller's profile on every request and admits only
// the listed roles. A missing profile is denied. Must run after JWTProtected.
func RoleRequired(db *gorm.DB, roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := identity.UserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		var profile models.Profile
		if err := db.WithContext(c.UserContext()).First(&profile, "id = ?", userID).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				slog.Error("role gate profile lookup failed", "user_id", userID.String(), "error", err)
			}
			return forbidden(c)
		}

		if !hasRole(profile.Role, roles) {
			return forbidden(c)
		}

		identity.SetProfile(c, &profile)
		return c.Next()
	}
}

// StaffRequired admits admins and moderators.
func StaffRequired(db *gorm.DB) fiber.Handler {
	return RoleRequired(db, models.RoleAdmin, models.RoleModerator)
}

// LoadProfile resolves the profile of an authenticated caller without gating.
// Anonymous requests and callers without a profile pass through untouched.
func LoadProfile(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := identity.UserID(c)
		if err != nil {
			return c.Next()
		}
		var profile models.Profile
		if err := db.WithContext(c.UserContext()).First(&profile, "id = ?", userID).Error; err == nil {
			identity.SetProfile(c, &profile)
		}
		return c.Next()
	}
}

func forbidden(c *fiber.Ctx) error {
	return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
		Error: true, Message: "Insufficient permissions",
	})
}

func hasRole(role models.Role, allowed []models.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
