// Package identity resolves the caller behind a request from fiber locals.
package identity

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nagaralert/alerthub/internal/models"
)

const (
	tokenKey   = "user"
	profileKey = "profile"
)

var ErrAnonymous = errors.New("no authenticated caller")

// UserID extracts the user UUID from the JWT claims placed in locals by the JWT middleware.
func UserID(c *fiber.Ctx) (uuid.UUID, error) {
	token, ok := c.Locals(tokenKey).(*jwt.Token)
	if !ok || token == nil {
		return uuid.Nil, ErrAnonymous
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, errors.New("invalid claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, errors.New("missing sub claim")
	}

	return uuid.Parse(sub)
}

// OptionalUserID returns nil for anonymous callers.
func OptionalUserID(c *fiber.Ctx) *uuid.UUID {
	id, err := UserID(c)
	if err != nil {
		return nil
	}
	return &id
}

// SetProfile stores the profile resolved by the role gate for downstream handlers.
func SetProfile(c *fiber.Ctx, p *models.Profile) {
	c.Locals(profileKey, p)
}

// Profile returns the profile resolved for this request, if any.
func Profile(c *fiber.Ctx) (*models.Profile, bool) {
	p, ok := c.Locals(profileKey).(*models.Profile)
	return p, ok && p != nil
}

// Viewer describes who is reading, for visibility decisions.
type Viewer struct {
	UserID *uuid.UUID
	Staff  bool
}

// CanSee reports whether the viewer may read the alert.
func (v Viewer) CanSee(a *models.Alert) bool {
	if a.Status.Public() || v.Staff {
		return true
	}
	return v.UserID != nil && a.OwnedBy(*v.UserID)
}

// ViewerOf builds the Viewer for the current request. Staff status comes only
// from a profile loaded during this request.
func ViewerOf(c *fiber.Ctx) Viewer {
	v := Viewer{UserID: OptionalUserID(c)}
	if p, ok := Profile(c); ok {
		v.Staff = p.Role.Staff()
	}
	return v
}
