package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/nagaralert/alerthub/internal/dto"
	"github.com/nagaralert/alerthub/internal/models"
	"gorm.io/gorm"
)

const (
	trendDays           = 30
	recentActionsInView = 50
	trendDateLayout     = "2006-01-02"
)

type AnalyticsService struct {
	db *gorm.DB
}

func NewAnalyticsService(db *gorm.DB) *AnalyticsService {
	return &AnalyticsService{db: db}
}

type countRow struct {
	Key   string
	Count int64
}

// Summary builds the moderation dashboard figures as of now.
func (s *AnalyticsService) Summary(ctx context.Context, now time.Time) (*dto.AnalyticsResponse, error) {
	resp := &dto.AnalyticsResponse{
		ByStatus:   make(map[models.Status]int64, len(models.Statuses)),
		ByCategory: make(map[models.Category]int64, len(models.Categories)),
		BySeverity: make(map[models.Severity]int64, len(models.Severities)),
	}
	for _, st := range models.Statuses {
		resp.ByStatus[st] = 0
	}
	for _, c := range models.Categories {
		resp.ByCategory[c] = 0
	}
	for _, sv := range models.Severities {
		resp.BySeverity[sv] = 0
	}

	byStatus, err := s.countBy(ctx, "status")
	if err != nil {
		return nil, err
	}
	for k, n := range byStatus {
		resp.ByStatus[models.Status(k)] = n
		resp.TotalAlerts += n
	}
	resp.VerificationRate = verificationRate(resp.ByStatus[models.StatusVerified], resp.TotalAlerts)

	byCategory, err := s.countBy(ctx, "category")
	if err != nil {
		return nil, err
	}
	for k, n := range byCategory {
		resp.ByCategory[models.Category(k)] = n
	}

	bySeverity, err := s.countBy(ctx, "severity")
	if err != nil {
		return nil, err
	}
	for k, n := range bySeverity {
		resp.BySeverity[models.Severity(k)] = n
	}

	start := windowStart(now, trendDays)
	var window []models.Alert
	err = s.db.WithContext(ctx).
		Select("id", "status", "created_at", "verified_at").
		Where("created_at >= ?", start).
		Find(&window).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load trend window: %w", err)
	}
	resp.Trend, resp.AvgHoursToVerify = summarizeWindow(window, now, trendDays)

	resp.RecentActions = []models.AdminAction{}
	err = s.db.WithContext(ctx).Order("created_at DESC").Limit(recentActionsInView).Find(&resp.RecentActions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent actions: %w", err)
	}
	return resp, nil
}

func (s *AnalyticsService) countBy(ctx context.Context, column string) (map[string]int64, error) {
	var rows []countRow
	err := s.db.WithContext(ctx).
		Model(&models.Alert{}).
		Select(column + " AS key, COUNT(*) AS count").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count alerts by %s: %w", column, err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Count
	}
	return out, nil
}

// verificationRate is the verified share as a percentage rounded to one decimal.
func verificationRate(verified, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(verified)/float64(total)*1000) / 10
}

// windowStart is midnight UTC of the first day in a window of days ending today.
func windowStart(now time.Time, days int) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))
}

// summarizeWindow buckets alerts into a zero-filled daily trend, oldest first,
// and averages creation-to-verification time in the same pass.
func summarizeWindow(alerts []models.Alert, now time.Time, days int) ([]dto.TrendPoint, *float64) {
	start := windowStart(now, days)
	trend := make([]dto.TrendPoint, days)
	for i := range trend {
		trend[i].Date = start.AddDate(0, 0, i).Format(trendDateLayout)
	}

	var (
		verifiedHours float64
		verifiedCount int
	)
	for _, a := range alerts {
		if a.VerifiedAt != nil {
			verifiedHours += a.VerifiedAt.Sub(a.CreatedAt).Hours()
			verifiedCount++
		}

		day := int(a.CreatedAt.UTC().Sub(start).Hours() / 24)
		if day < 0 || day >= days {
			continue
		}
		trend[day].Total++
		switch a.Status {
		case models.StatusVerified:
			trend[day].Verified++
		case models.StatusPending:
			trend[day].Pending++
		}
	}

	if verifiedCount == 0 {
		return trend, nil
	}
	avg := math.Round(verifiedHours/float64(verifiedCount)*10) / 10
	return trend, &avg
}
