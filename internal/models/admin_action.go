package models

import (
	"time"

	"github.com/google/uuid"
)

type ActionType string

const (
	ActionVerified ActionType = "verified"
	ActionRejected ActionType = "rejected"
	ActionResolved ActionType = "resolved"
	ActionDeleted  ActionType = "deleted"
)

// AdminAction is the append-only audit trail of moderation decisions.
// AlertID carries no foreign key so rows outlive deleted alerts.
type AdminAction struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	AdminID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"admin_id"`
	ActionType     ActionType `gorm:"size:16;not null" json:"action_type"`
	AlertID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"alert_id"`
	PreviousStatus Status     `gorm:"size:16" json:"previous_status,omitempty"`
	Notes          *string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
}
