package dto

import (
	"github.com/nagaralert/alerthub/internal/models"
)

// CreateAlertRequest binds from JSON or from multipart form fields.
type CreateAlertRequest struct {
	Category        models.Category `json:"category" form:"category"`
	Title           string          `json:"title" form:"title"`
	Description     string          `json:"description" form:"description"`
	LocationLat     *float64        `json:"location_lat" form:"location_lat"`
	LocationLng     *float64        `json:"location_lng" form:"location_lng"`
	LocationAddress string          `json:"location_address" form:"location_address"`
	Severity        models.Severity `json:"severity" form:"severity"`
}

// UpdateAlertRequest carries the descriptive fields staff may correct.
type UpdateAlertRequest struct {
	Title           *string          `json:"title"`
	Description     *string          `json:"description"`
	LocationAddress *string          `json:"location_address"`
	Severity        *models.Severity `json:"severity"`
}

type AlertListResponse struct {
	Alerts []models.Alert `json:"alerts"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// TabbedAlerts groups alerts into the four fixed status tabs.
type TabbedAlerts struct {
	Pending  []models.Alert        `json:"pending"`
	Verified []models.Alert        `json:"verified"`
	Rejected []models.Alert        `json:"rejected"`
	Resolved []models.Alert        `json:"resolved"`
	Counts   map[models.Status]int `json:"counts"`
}
