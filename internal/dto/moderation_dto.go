package dto

import "github.com/nagaralert/alerthub/internal/models"

type ModerationRequest struct {
	Notes    string           `json:"notes"`
	Severity *models.Severity `json:"severity,omitempty"`
}

type ActionListResponse struct {
	Actions []models.AdminAction `json:"actions"`
	Limit   int                  `json:"limit"`
}
