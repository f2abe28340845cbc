// Package notifications tells submitters and downstream systems about moderation decisions.
package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nagaralert/alerthub/internal/models"
)

// Notice describes one moderation decision.
type Notice struct {
	Action         models.ActionType `json:"action"`
	Alert          models.Alert      `json:"alert"`
	ActorID        uuid.UUID         `json:"actor_id"`
	Notes          string            `json:"notes,omitempty"`
	SubmitterEmail string            `json:"-"`
	At             time.Time         `json:"at"`
}

type Notifier interface {
	AlertModerated(ctx context.Context, n Notice) error
}
