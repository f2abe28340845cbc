package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/nagaralert/alerthub/internal/models"
)

type VoteRequest struct {
	VoteType models.VoteType `json:"vote_type"`
}

type VoteResponse struct {
	Action    string           `json:"action"`
	VoteType  *models.VoteType `json:"vote_type"`
	Upvotes   int              `json:"upvotes"`
	Downvotes int              `json:"downvotes"`
}

type CommentRequest struct {
	Content string `json:"content"`
}

// CommentView is a comment joined with its author's public profile.
type CommentView struct {
	ID              uuid.UUID `json:"id"`
	AlertID         uuid.UUID `json:"alert_id"`
	UserID          uuid.UUID `json:"user_id"`
	Content         string    `json:"content"`
	CreatedAt       time.Time `json:"created_at"`
	AuthorName      string    `json:"author_name"`
	AuthorAvatarURL string    `json:"author_avatar_url,omitempty"`
}
