package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/nagaralert/alerthub/internal/dto"
	"github.com/nagaralert/alerthub/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxCommentLength = 1000

type CommentService struct {
	db     *gorm.DB
	filter *ContentFilter
}

func NewCommentService(db *gorm.DB, filter *ContentFilter) *CommentService {
	return &CommentService{db: db, filter: filter}
}

// List returns the thread oldest first with each author's public profile.
func (s *CommentService) List(ctx context.Context, alertID uuid.UUID) ([]dto.CommentView, error) {
	views := []dto.CommentView{}
	err := s.db.WithContext(ctx).
		Table("alert_comments AS c").
		Select("c.id, c.alert_id, c.user_id, c.content, c.created_at, " +
			"COALESCE(p.full_name, '') AS author_name, COALESCE(p.avatar_url, '') AS author_avatar_url").
		Joins("LEFT JOIN profiles p ON p.id = c.user_id").
		Where("c.alert_id = ?", alertID).
		Order("c.created_at ASC, c.id ASC").
		Scan(&views).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return views, nil
}

// Append stores a screened comment and returns it ready for display.
func (s *CommentService) Append(ctx context.Context, alertID, authorID uuid.UUID, text string) (*dto.CommentView, error) {
	content, err := s.screen(text)
	if err != nil {
		return nil, err
	}

	comment := models.Comment{
		ID:      uuid.New(),
		AlertID: alertID,
		UserID:  authorID,
		Content: content,
	}
	// The alert row is locked so a concurrent delete cannot leave the comment orphaned.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var alert models.Alert
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&alert, "id = ?", alertID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAlertNotFound
			}
			return fmt.Errorf("failed to lock alert: %w", err)
		}
		if err := tx.Create(&comment).Error; err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	view := &dto.CommentView{
		ID:        comment.ID,
		AlertID:   comment.AlertID,
		UserID:    comment.UserID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
	}

	var author models.Profile
	err = s.db.WithContext(ctx).Select("full_name", "avatar_url").First(&author, "id = ?", authorID).Error
	switch {
	case err == nil:
		view.AuthorName = author.FullName
		view.AuthorAvatarURL = author.AvatarURL
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("failed to load comment author: %w", err)
	}
	return view, nil
}

func (s *CommentService) screen(text string) (string, error) {
	content := strings.TrimSpace(text)
	if content == "" {
		return "", invalid("content", "cannot be empty")
	}
	if utf8.RuneCountInString(content) > maxCommentLength {
		return "", invalid("content", fmt.Sprintf("must be at most %d characters", maxCommentLength))
	}
	if s.filter != nil {
		if ok, reason := s.filter.Check(content); !ok {
			return "", invalid("content", RejectionMessage(reason))
		}
	}
	return content, nil
}
