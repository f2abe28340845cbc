package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nagaralert/alerthub/internal/dto"
	"github.com/nagaralert/alerthub/internal/models"
	"github.com/nagaralert/alerthub/internal/realtime"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	VoteAdded   = "added"
	VoteRemoved = "removed"
	VoteChanged = "changed"
)

// voteChange is the effect of casting a vote against the caller's existing one.
type voteChange struct {
	action    string
	current   *models.VoteType
	upDelta   int
	downDelta int
}

func delta(t models.VoteType, n int) (up, down int) {
	if t == models.VoteUp {
		return n, 0
	}
	return 0, n
}

// resolveVote implements the toggle: same polarity removes, opposite polarity switches.
func resolveVote(existing *models.Vote, cast models.VoteType) voteChange {
	switch {
	case existing == nil:
		up, down := delta(cast, 1)
		return voteChange{action: VoteAdded, current: &cast, upDelta: up, downDelta: down}
	case existing.VoteType == cast:
		up, down := delta(cast, -1)
		return voteChange{action: VoteRemoved, upDelta: up, downDelta: down}
	default:
		addUp, addDown := delta(cast, 1)
		subUp, subDown := delta(existing.VoteType, -1)
		return voteChange{action: VoteChanged, current: &cast, upDelta: addUp + subUp, downDelta: addDown + subDown}
	}
}

type VoteService struct {
	db     *gorm.DB
	events realtime.Publisher
}

func NewVoteService(db *gorm.DB, events realtime.Publisher) *VoteService {
	return &VoteService{db: db, events: events}
}

// Cast toggles the caller's vote. The alert row is locked so the ledger and
// the denormalized counters move together.
func (s *VoteService) Cast(ctx context.Context, userID, alertID uuid.UUID, cast models.VoteType) (*dto.VoteResponse, error) {
	if !cast.Valid() {
		return nil, invalid("vote_type", "must be up or down")
	}

	var (
		alert  models.Alert
		change voteChange
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&alert, "id = ?", alertID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAlertNotFound
			}
			return err
		}
		if !alert.Status.Public() {
			return ErrAlertNotFound
		}

		var existing *models.Vote
		var row models.Vote
		err = tx.Where("user_id = ? AND alert_id = ?", userID, alertID).First(&row).Error
		switch {
		case err == nil:
			existing = &row
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		change = resolveVote(existing, cast)
		switch change.action {
		case VoteAdded:
			err = tx.Create(&models.Vote{ID: uuid.New(), UserID: userID, AlertID: alertID, VoteType: cast}).Error
		case VoteRemoved:
			err = tx.Delete(&models.Vote{}, "id = ?", existing.ID).Error
		case VoteChanged:
			err = tx.Model(&models.Vote{}).Where("id = ?", existing.ID).Update("vote_type", cast).Error
		}
		if err != nil {
			return fmt.Errorf("failed to record vote: %w", err)
		}

		err = tx.Model(&models.Alert{}).Where("id = ?", alertID).UpdateColumns(map[string]any{
			"upvotes":   gorm.Expr("GREATEST(upvotes + ?, 0)", change.upDelta),
			"downvotes": gorm.Expr("GREATEST(downvotes + ?, 0)", change.downDelta),
		}).Error
		if err != nil {
			return fmt.Errorf("failed to update vote counters: %w", err)
		}

		alert.Upvotes = max(alert.Upvotes+change.upDelta, 0)
		alert.Downvotes = max(alert.Downvotes+change.downDelta, 0)
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.events, realtime.Updated(&alert))
	return &dto.VoteResponse{
		Action:    change.action,
		VoteType:  change.current,
		Upvotes:   alert.Upvotes,
		Downvotes: alert.Downvotes,
	}, nil
}

// Mine returns the caller's current vote, or nil.
func (s *VoteService) Mine(ctx context.Context, userID, alertID uuid.UUID) (*models.Vote, error) {
	var vote models.Vote
	err := s.db.WithContext(ctx).Where("user_id = ? AND alert_id = ?", userID, alertID).First(&vote).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load vote: %w", err)
	}
	return &vote, nil
}

const reconcileVotesSQL = `
UPDATE alerts AS a
SET upvotes = c.up, downvotes = c.down
FROM (
	SELECT al.id,
		COUNT(v.id) FILTER (WHERE v.vote_type = 'up') AS up,
		COUNT(v.id) FILTER (WHERE v.vote_type = 'down') AS down
	FROM alerts al
	LEFT JOIN user_votes v ON v.alert_id = al.id
	GROUP BY al.id
) AS c
WHERE a.id = c.id AND (a.upvotes <> c.up OR a.downvotes <> c.down)`

// Reconcile rewrites counters that drifted from the ledger and returns how many rows it fixed.
func (s *VoteService) Reconcile(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Exec(reconcileVotesSQL)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to reconcile vote counters: %w", result.Error)
	}
	return result.RowsAffected, nil
}
