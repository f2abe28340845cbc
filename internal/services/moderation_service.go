package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nagaralert/alerthub/internal/dto"
	"github.com/nagaralert/alerthub/internal/models"
	"github.com/nagaralert/alerthub/internal/notifications"
	"github.com/nagaralert/alerthub/internal/realtime"
	"gorm.io/gorm"
)

const (
	defaultActionLimit = 50
	maxActionLimit     = 100
	notifyTimeout      = 30 * time.Second
)

// transitions lists the statuses reachable from each status. Rejected and resolved are terminal.
var transitions = map[models.Status][]models.Status{
	models.StatusPending:  {models.StatusVerified, models.StatusRejected},
	models.StatusVerified: {models.StatusResolved},
}

// planTransition reports whether moving from current to target is a no-op,
// or ErrInvalidTransition when the state machine forbids it.
func planTransition(current, target models.Status) (bool, error) {
	if current == target && target == models.StatusVerified {
		return true, nil
	}
	for _, next := range transitions[current] {
		if next == target {
			return false, nil
		}
	}
	return false, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current, target)
}

type ModerationService struct {
	db       *gorm.DB
	events   realtime.Publisher
	notifier notifications.Notifier
	images   *ImageService
}

// NewModerationService wires the after-commit collaborators. notifier may be nil.
func NewModerationService(db *gorm.DB, events realtime.Publisher, notifier notifications.Notifier, images *ImageService) *ModerationService {
	return &ModerationService{db: db, events: events, notifier: notifier, images: images}
}

func (s *ModerationService) Verify(ctx context.Context, actorID, alertID uuid.UUID, req *dto.ModerationRequest) (*models.Alert, error) {
	return s.transition(ctx, actorID, alertID, models.StatusVerified, req)
}

func (s *ModerationService) Reject(ctx context.Context, actorID, alertID uuid.UUID, req *dto.ModerationRequest) (*models.Alert, error) {
	return s.transition(ctx, actorID, alertID, models.StatusRejected, req)
}

func (s *ModerationService) Resolve(ctx context.Context, actorID, alertID uuid.UUID, req *dto.ModerationRequest) (*models.Alert, error) {
	return s.transition(ctx, actorID, alertID, models.StatusResolved, req)
}

// transition moves one alert along the state machine. The conditional update
// and its audit row commit together, or not at all.
func (s *ModerationService) transition(ctx context.Context, actorID, alertID uuid.UUID, target models.Status, req *dto.ModerationRequest) (*models.Alert, error) {
	if req == nil {
		req = &dto.ModerationRequest{}
	}
	if req.Severity != nil && !req.Severity.Valid() {
		return nil, invalid("severity", "must be low, medium, high or critical")
	}

	var (
		alert   models.Alert
		changed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&alert, "id = ?", alertID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAlertNotFound
			}
			return err
		}

		noop, err := planTransition(alert.Status, target)
		if err != nil || noop {
			return err
		}

		previous := alert.Status
		now := time.Now().UTC()
		updates := map[string]any{"status": target, "updated_at": now}
		switch target {
		case models.StatusVerified:
			updates["verified_by"] = actorID
			updates["verified_at"] = now
			if req.Severity != nil {
				updates["severity"] = *req.Severity
			}
		case models.StatusResolved:
			updates["resolved_at"] = now
		}

		result := tx.Model(&models.Alert{}).
			Where("id = ? AND status = ?", alertID, previous).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrStaleStatus
		}

		if err := tx.Create(auditRow(actorID, alertID, models.ActionType(target), previous, req.Notes)).Error; err != nil {
			return fmt.Errorf("failed to record admin action: %w", err)
		}

		applyTransition(&alert, target, actorID, now, req.Severity)
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		slog.Info("alert moderated", "action", string(target), "alert_id", alertID.String(), "user_id", actorID.String())
		publish(ctx, s.events, realtime.Updated(&alert))
		s.notify(ctx, models.ActionType(target), alert, actorID, req.Notes)
	}
	return &alert, nil
}

func applyTransition(a *models.Alert, target models.Status, actorID uuid.UUID, at time.Time, severity *models.Severity) {
	a.Status = target
	a.UpdatedAt = at
	switch target {
	case models.StatusVerified:
		a.VerifiedBy = &actorID
		a.VerifiedAt = &at
		if severity != nil {
			a.Severity = *severity
		}
	case models.StatusResolved:
		a.ResolvedAt = &at
	}
}

func auditRow(actorID, alertID uuid.UUID, action models.ActionType, previous models.Status, notes string) *models.AdminAction {
	row := &models.AdminAction{
		ID:             uuid.New(),
		AdminID:        actorID,
		ActionType:     action,
		AlertID:        alertID,
		PreviousStatus: previous,
	}
	if n := strings.TrimSpace(notes); n != "" {
		row.Notes = &n
	}
	return row
}

// Delete removes an alert with its votes and comments and audits the removal.
// Confirmation is the caller's responsibility.
func (s *ModerationService) Delete(ctx context.Context, actorID, alertID uuid.UUID, notes string) error {
	var alert models.Alert
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&alert, "id = ?", alertID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAlertNotFound
			}
			return err
		}
		if err := tx.Where("alert_id = ?", alertID).Delete(&models.Vote{}).Error; err != nil {
			return fmt.Errorf("failed to delete votes: %w", err)
		}
		if err := tx.Where("alert_id = ?", alertID).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("failed to delete comments: %w", err)
		}
		if err := tx.Delete(&models.Alert{}, "id = ?", alertID).Error; err != nil {
			return fmt.Errorf("failed to delete alert: %w", err)
		}
		return tx.Create(auditRow(actorID, alertID, models.ActionDeleted, alert.Status, notes)).Error
	})
	if err != nil {
		return err
	}

	slog.Info("alert deleted", "action", string(models.ActionDeleted), "alert_id", alertID.String(), "user_id", actorID.String())
	publish(ctx, s.events, realtime.Deleted(alertID))
	s.images.Remove(ctx, alert.ImageURL)
	s.notify(ctx, models.ActionDeleted, alert, actorID, notes)
	return nil
}

// ListActions returns the audit log newest first.
func (s *ModerationService) ListActions(ctx context.Context, limit int) ([]models.AdminAction, error) {
	limit = ActionLimit(limit)
	actions := []models.AdminAction{}
	if err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&actions).Error; err != nil {
		return nil, fmt.Errorf("failed to list admin actions: %w", err)
	}
	return actions, nil
}

// ActionLimit applies the audit log page default and cap.
func ActionLimit(limit int) int {
	if limit <= 0 {
		return defaultActionLimit
	}
	return min(limit, maxActionLimit)
}

// notify runs in the background so slow channels never hold up the moderator.
func (s *ModerationService) notify(ctx context.Context, action models.ActionType, alert models.Alert, actorID uuid.UUID, notes string) {
	if s.notifier == nil {
		return
	}

	notice := notifications.Notice{
		Action:  action,
		Alert:   alert,
		ActorID: actorID,
		Notes:   strings.TrimSpace(notes),
		At:      time.Now().UTC(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()

		if alert.UserID != nil {
			var user models.User
			if err := s.db.WithContext(ctx).Select("email").First(&user, "id = ?", *alert.UserID).Error; err == nil {
				notice.SubmitterEmail = user.Email
			}
		}
		if err := s.notifier.AlertModerated(ctx, notice); err != nil {
			slog.Error("failed to send moderation notice", "action", string(action), "alert_id", alert.ID.String(), "error", err)
		}
	}()
}
