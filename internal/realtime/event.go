// Package realtime carries alert change events from writers to live admin views.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nagaralert/alerthub/internal/models"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
	// EventResync tells a subscriber that events may have been lost and its view must be reloaded.
	EventResync EventType = "RESYNC"
)

// Event is one change to the alerts table. Alert is nil for deletes, resyncs,
// and for notifications that were too large to carry the row.
type Event struct {
	ID      uuid.UUID     `json:"id"`
	Type    EventType     `json:"type"`
	AlertID uuid.UUID     `json:"alert_id"`
	Alert   *models.Alert `json:"alert,omitempty"`
	At      time.Time     `json:"at"`
}

// Publisher delivers change events to every live view, possibly across instances.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

func newEvent(t EventType, alertID uuid.UUID, alert *models.Alert) Event {
	return Event{ID: uuid.New(), Type: t, AlertID: alertID, Alert: alert, At: time.Now().UTC()}
}

func Inserted(a *models.Alert) Event {
	cp := *a
	return newEvent(EventInsert, a.ID, &cp)
}

func Updated(a *models.Alert) Event {
	cp := *a
	return newEvent(EventUpdate, a.ID, &cp)
}

func Deleted(alertID uuid.UUID) Event {
	return newEvent(EventDelete, alertID, nil)
}

func Resync() Event {
	return newEvent(EventResync, uuid.Nil, nil)
}

func decodeEvent(payload string) (Event, error) {
	var e Event
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return Event{}, fmt.Errorf("failed to decode change event: %w", err)
	}
	switch e.Type {
	case EventInsert, EventUpdate, EventDelete, EventResync:
		return e, nil
	default:
		return Event{}, fmt.Errorf("unknown change event type %q", e.Type)
	}
}
