package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/nagaralert/alerthub/internal/dto"
	"github.com/nagaralert/alerthub/internal/identity"
	"github.com/nagaralert/alerthub/internal/models"
	"github.com/nagaralert/alerthub/internal/realtime"
	"gorm.io/gorm"
)

const maxTitleLength = 200

// AlertFilter narrows List. Zero values mean no constraint; Limit <= 0 means unbounded.
type AlertFilter struct {
	Statuses   []models.Status
	Categories []models.Category
	Severity   models.Severity
	OwnerID    *uuid.UUID
	Search     string
	Limit      int
	Offset     int
}

type AlertService struct {
	db     *gorm.DB
	images *ImageService
	events realtime.Publisher
}

func NewAlertService(db *gorm.DB, images *ImageService, events realtime.Publisher) *AlertService {
	return &AlertService{db: db, images: images, events: events}
}

// Create validates a submission, stores its optional image and inserts it as pending.
func (s *AlertService) Create(ctx context.Context, ownerID *uuid.UUID, req *dto.CreateAlertRequest, image *Upload) (*models.Alert, error) {
	alert, err := newAlert(ownerID, req)
	if err != nil {
		return nil, err
	}

	if image != nil {
		url, err := s.images.Store(ctx, image)
		if err != nil {
			return nil, err
		}
		alert.ImageURL = url
	}

	if err := s.db.WithContext(ctx).Create(alert).Error; err != nil {
		s.images.Remove(ctx, alert.ImageURL)
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}

	publish(ctx, s.events, realtime.Inserted(alert))
	return alert, nil
}

func newAlert(ownerID *uuid.UUID, req *dto.CreateAlertRequest) (*models.Alert, error) {
	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)

	switch {
	case title == "":
		return nil, invalid("title", "is required")
	case utf8.RuneCountInString(title) > maxTitleLength:
		return nil, invalid("title", fmt.Sprintf("must be at most %d characters", maxTitleLength))
	case description == "":
		return nil, invalid("description", "is required")
	case req.LocationLat == nil || req.LocationLng == nil:
		return nil, invalid("location", "latitude and longitude are required")
	case *req.LocationLat < -90 || *req.LocationLat > 90:
		return nil, invalid("location_lat", "must be between -90 and 90")
	case *req.LocationLng < -180 || *req.LocationLng > 180:
		return nil, invalid("location_lng", "must be between -180 and 180")
	}

	category := req.Category
	if category == "" {
		category = models.CategoryOther
	}
	if !category.Valid() {
		return nil, invalid("category", "is not a known category")
	}

	severity := req.Severity
	if severity == "" {
		severity = models.SeverityMedium
	}
	if !severity.Valid() {
		return nil, invalid("severity", "must be low, medium, high or critical")
	}

	return &models.Alert{
		ID:              uuid.New(),
		UserID:          ownerID,
		Category:        category,
		Title:           title,
		Description:     description,
		LocationLat:     *req.LocationLat,
		LocationLng:     *req.LocationLng,
		LocationAddress: strings.TrimSpace(req.LocationAddress),
		Severity:        severity,
		Status:          models.StatusPending,
	}, nil
}

func (s *AlertService) List(ctx context.Context, f AlertFilter) ([]models.Alert, error) {
	query := s.db.WithContext(ctx).Model(&models.Alert{})

	if len(f.Statuses) > 0 {
		query = query.Where("status IN ?", f.Statuses)
	}
	if len(f.Categories) > 0 {
		query = query.Where("category IN ?", f.Categories)
	}
	if f.Severity != "" {
		query = query.Where("severity = ?", f.Severity)
	}
	if f.OwnerID != nil {
		query = query.Where("user_id = ?", *f.OwnerID)
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		like := "%" + escapeLike(q) + "%"
		query = query.Where("title ILIKE ? OR description ILIKE ? OR location_address ILIKE ?", like, like, like)
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}
	if f.Offset > 0 {
		query = query.Offset(f.Offset)
	}

	alerts := []models.Alert{}
	if err := query.Order("created_at DESC, id DESC").Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}

func (s *AlertService) Get(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	var alert models.Alert
	if err := s.db.WithContext(ctx).First(&alert, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to load alert: %w", err)
	}
	return &alert, nil
}

// GetVisible hides alerts the viewer may not read behind ErrAlertNotFound.
func (s *AlertService) GetVisible(ctx context.Context, id uuid.UUID, viewer identity.Viewer) (*models.Alert, error) {
	alert, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !viewer.CanSee(alert) {
		return nil, ErrAlertNotFound
	}
	return alert, nil
}

// Update applies a staff correction of the descriptive fields.
func (s *AlertService) Update(ctx context.Context, id uuid.UUID, req *dto.UpdateAlertRequest) (*models.Alert, error) {
	updates, err := alertUpdates(req)
	if err != nil {
		return nil, err
	}

	alert, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return alert, nil
	}

	if err := s.db.WithContext(ctx).Model(alert).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update alert: %w", err)
	}
	if alert, err = s.Get(ctx, id); err != nil {
		return nil, err
	}

	publish(ctx, s.events, realtime.Updated(alert))
	return alert, nil
}

func alertUpdates(req *dto.UpdateAlertRequest) (map[string]any, error) {
	updates := map[string]any{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" || utf8.RuneCountInString(title) > maxTitleLength {
			return nil, invalid("title", fmt.Sprintf("must be 1 to %d characters", maxTitleLength))
		}
		updates["title"] = title
	}
	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		if description == "" {
			return nil, invalid("description", "cannot be empty")
		}
		updates["description"] = description
	}
	if req.LocationAddress != nil {
		updates["location_address"] = strings.TrimSpace(*req.LocationAddress)
	}
	if req.Severity != nil {
		if !req.Severity.Valid() {
			return nil, invalid("severity", "must be low, medium, high or critical")
		}
		updates["severity"] = *req.Severity
	}
	return updates, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
