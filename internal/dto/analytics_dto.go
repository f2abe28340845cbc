package dto

import "github.com/nagaralert/alerthub/internal/models"

type TrendPoint struct {
	Date     string `json:"date"`
	Total    int    `json:"total"`
	Verified int    `json:"verified"`
	Pending  int    `json:"pending"`
}

type AnalyticsResponse struct {
	TotalAlerts      int64                     `json:"total_alerts"`
	ByStatus         map[models.Status]int64   `json:"by_status"`
	VerificationRate float64                   `json:"verification_rate"`
	ByCategory       map[models.Category]int64 `json:"by_category"`
	BySeverity       map[models.Severity]int64 `json:"by_severity"`
	Trend            []TrendPoint              `json:"trend"`
	AvgHoursToVerify *float64                  `json:"avg_hours_to_verify"`
	RecentActions    []models.AdminAction      `json:"recent_actions"`
}
