package models

import (
	"time"

	"github.com/google/uuid"
)

type VoteType string

const (
	VoteUp   VoteType = "up"
	VoteDown VoteType = "down"
)

func (v VoteType) Valid() bool {
	return v == VoteUp || v == VoteDown
}

// Vote is one user's polarity on one alert. At most one row per (user, alert).
type Vote struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_votes_user_alert" json:"user_id"`
	AlertID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_votes_user_alert;index" json:"alert_id"`
	VoteType  VoteType  `gorm:"size:8;not null" json:"vote_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Vote) TableName() string { return "user_votes" }
