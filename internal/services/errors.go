package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nagaralert/alerthub/internal/realtime"
)

var (
	ErrAlertNotFound     = errors.New("alert not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStaleStatus       = errors.New("alert status changed concurrently")
	ErrProfileNotFound   = errors.New("profile not found")
)

// ValidationError is a caller mistake in one field. Handlers answer it with 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// publish hands a committed change to the live views. Delivery problems are logged only.
func publish(ctx context.Context, p realtime.Publisher, e realtime.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		slog.Error("failed to publish change event", "alert_id", e.AlertID.String(), "type", string(e.Type), "error", err)
	}
}
