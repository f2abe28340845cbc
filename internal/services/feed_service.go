package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/nagaralert/alerthub/internal/dto"
	"github.com/nagaralert/alerthub/internal/models"
)

const (
	DefaultFeedLimit = 20
	MaxFeedLimit     = 100
	// AdminWindow bounds the admin feed and its live board.
	AdminWindow = 100
)

// PublicQuery holds the filters a public reader may apply. It cannot name a status.
type PublicQuery struct {
	Categories []models.Category
	Severity   models.Severity
	Limit      int
	Offset     int
}

type FeedService struct {
	alerts *AlertService
}

func NewFeedService(alerts *AlertService) *FeedService {
	return &FeedService{alerts: alerts}
}

// Public lists verified alerts only, whatever the filters.
func (s *FeedService) Public(ctx context.Context, q PublicQuery) ([]models.Alert, error) {
	for _, c := range q.Categories {
		if !c.Valid() {
			return nil, invalid("category", "is not a known category: "+string(c))
		}
	}
	if q.Severity != "" && !q.Severity.Valid() {
		return nil, invalid("severity", "must be low, medium, high or critical")
	}

	return s.alerts.List(ctx, AlertFilter{
		Statuses:   []models.Status{models.StatusVerified},
		Categories: q.Categories,
		Severity:   q.Severity,
		Limit:      ClampLimit(q.Limit),
		Offset:     max(q.Offset, 0),
	})
}

// Personal groups everything the user submitted into the four status tabs.
func (s *FeedService) Personal(ctx context.Context, userID uuid.UUID) (*dto.TabbedAlerts, error) {
	alerts, err := s.alerts.List(ctx, AlertFilter{OwnerID: &userID})
	if err != nil {
		return nil, err
	}
	return GroupTabs(alerts), nil
}

// Admin loads the most recent alerts, optionally searched, grouped into tabs.
func (s *FeedService) Admin(ctx context.Context, search string) (*dto.TabbedAlerts, error) {
	alerts, err := s.Recent(ctx, search)
	if err != nil {
		return nil, err
	}
	return GroupTabs(alerts), nil
}

// Recent is the admin window before grouping. The live feed seeds its board with it.
func (s *FeedService) Recent(ctx context.Context, search string) ([]models.Alert, error) {
	return s.alerts.List(ctx, AlertFilter{Search: search, Limit: AdminWindow})
}

func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultFeedLimit
	}
	if limit > MaxFeedLimit {
		return MaxFeedLimit
	}
	return limit
}

// GroupTabs splits alerts by status keeping their order. Every tab is present even when empty.
func GroupTabs(alerts []models.Alert) *dto.TabbedAlerts {
	tabs := &dto.TabbedAlerts{
		Pending:  []models.Alert{},
		Verified: []models.Alert{},
		Rejected: []models.Alert{},
		Resolved: []models.Alert{},
		Counts:   make(map[models.Status]int, len(models.Statuses)),
	}
	for _, a := range alerts {
		switch a.Status {
		case models.StatusPending:
			tabs.Pending = append(tabs.Pending, a)
		case models.StatusVerified:
			tabs.Verified = append(tabs.Verified, a)
		case models.StatusRejected:
			tabs.Rejected = append(tabs.Rejected, a)
		case models.StatusResolved:
			tabs.Resolved = append(tabs.Resolved, a)
		}
	}
	tabs.Counts[models.StatusPending] = len(tabs.Pending)
	tabs.Counts[models.StatusVerified] = len(tabs.Verified)
	tabs.Counts[models.StatusRejected] = len(tabs.Rejected)
	tabs.Counts[models.StatusResolved] = len(tabs.Resolved)
	return tabs
}
