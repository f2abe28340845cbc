package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleCitizen   Role = "citizen"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
)

func (r Role) Valid() bool {
	return r == RoleCitizen || r == RoleAdmin || r == RoleModerator
}

// Staff reports whether the role may moderate alerts.
func (r Role) Staff() bool {
	return r == RoleAdmin || r == RoleModerator
}

// Profile is 1:1 with a User and shares its id.
type Profile struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FullName    string    `gorm:"size:120" json:"full_name"`
	PhoneNumber string    `gorm:"size:32" json:"phone_number,omitempty"`
	AvatarURL   string    `gorm:"size:1000" json:"avatar_url,omitempty"`
	Role        Role      `gorm:"size:20;not null;default:'citizen';index" json:"role"`
	Verified    bool      `gorm:"not null;default:false" json:"verified"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
