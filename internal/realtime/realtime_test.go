package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/nagaralert/alerthub/internal/models"
	"github.com/nagaralert/alerthub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func alertAt(minutes int, status models.Status) models.Alert {
	ts := base.Add(time.Duration(minutes) * time.Minute)
	return models.Alert{
		ID:        uuid.New(),
		Title:     "alert",
		Status:    status,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

func ids(alerts []models.Alert) []uuid.UUID {
	out := make([]uuid.UUID, len(alerts))
	for i, a := range alerts {
		out[i] = a.ID
	}
	return out
}

func TestBoardInsertKeepsNewestFirstAndBounded(t *testing.T) {
	b := NewBoard(3)
	a1, a2, a3, a4 := alertAt(1, models.StatusPending), alertAt(2, models.StatusPending), alertAt(3, models.StatusPending), alertAt(4, models.StatusPending)
	b.Reset([]models.Alert{a1, a3})

	assert.True(t, b.Apply(Inserted(&a2)))
	assert.Equal(t, []uuid.UUID{a3.ID, a2.ID, a1.ID}, ids(b.Alerts("")))

	assert.True(t, b.Apply(Inserted(&a4)))
	assert.Equal(t, []uuid.UUID{a4.ID, a3.ID, a2.ID}, ids(b.Alerts("")), "oldest falls off")

	old := alertAt(0, models.StatusPending)
	assert.False(t, b.Apply(Inserted(&old)), "older than the window is ignored")
	assert.Equal(t, 3, b.Len())
}

func TestBoardApplyIsIdempotent(t *testing.T) {
	b := NewBoard(10)
	a := alertAt(1, models.StatusPending)

	b.Apply(Inserted(&a))
	b.Apply(Inserted(&a))
	assert.Equal(t, 1, b.Len())

	del := Deleted(a.ID)
	assert.True(t, b.Apply(del))
	assert.False(t, b.Apply(del))
	assert.Equal(t, 0, b.Len())
}

func TestBoardUpdateRejectsStaleRows(t *testing.T) {
	b := NewBoard(10)
	a := alertAt(1, models.StatusPending)
	b.Reset([]models.Alert{a})

	verified := a
	verified.Status = models.StatusVerified
	verified.UpdatedAt = a.UpdatedAt.Add(time.Minute)
	require.True(t, b.Apply(Updated(&verified)))

	assert.False(t, b.Apply(Updated(&a)), "late delivery of an older version")
	assert.Equal(t, models.StatusVerified, b.Alerts("")[0].Status)
}

func TestBoardIgnoresBodilessEvents(t *testing.T) {
	b := NewBoard(10)
	e := Inserted(&models.Alert{ID: uuid.New()})
	e.Alert = nil
	assert.False(t, b.Apply(e))
	assert.False(t, b.Apply(Resync()))
}

func TestBoardRefillAfterDeleteFromFullBoard(t *testing.T) {
	b := NewBoard(2)
	a1, a2 := alertAt(1, models.StatusPending), alertAt(2, models.StatusPending)
	b.Reset([]models.Alert{a1, a2})

	b.Apply(Deleted(a1.ID))
	assert.True(t, b.NeedsRefill())

	b.Reset([]models.Alert{a2})
	assert.False(t, b.NeedsRefill())
}

func TestBoardSearch(t *testing.T) {
	b := NewBoard(10)
	pipe := alertAt(1, models.StatusPending)
	pipe.Title = "Pipe burst on Main St"
	lamp := alertAt(2, models.StatusPending)
	lamp.LocationAddress = "Station Road"
	b.Reset([]models.Alert{pipe, lamp})

	assert.Equal(t, []uuid.UUID{pipe.ID}, ids(b.Alerts("main st")))
	assert.Equal(t, []uuid.UUID{lamp.ID}, ids(b.Alerts("STATION")))
	assert.Len(t, b.Alerts("  "), 2)
}

func TestHubFanOutAndRelease(t *testing.T) {
	h := NewHub(4)
	s1 := h.Subscribe()
	s2 := h.Subscribe()
	require.Equal(t, 2, h.Subscribers())

	a := alertAt(1, models.StatusPending)
	require.NoError(t, h.Publish(context.Background(), Inserted(&a)))

	assert.Equal(t, a.ID, (<-s1.C).AlertID)
	assert.Equal(t, a.ID, (<-s2.C).AlertID)

	s1.Close()
	s1.Close()
	assert.Equal(t, 1, h.Subscribers())
	_, open := <-s1.C
	assert.False(t, open)

	h.Close()
	_, open = <-s2.C
	assert.False(t, open)
	s2.Close()
}

func TestHubOverflowBecomesResync(t *testing.T) {
	h := NewHub(2)
	s := h.Subscribe()
	defer s.Close()

	for i := 0; i < 5; i++ {
		h.Broadcast(Deleted(uuid.New()))
	}

	var got []EventType
	for len(s.C) > 0 {
		got = append(got, (<-s.C).Type)
	}
	require.NotEmpty(t, got)
	assert.Contains(t, got, EventResync, "a lagging subscriber is told to reload")
	assert.LessOrEqual(t, len(got), 2)
}

func TestEncodeNotificationDropsOversizedBody(t *testing.T) {
	a := alertAt(1, models.StatusPending)
	a.Description = strings.Repeat("x", 9000)

	payload, err := encodeNotification(Updated(&a))
	require.NoError(t, err)
	assert.Less(t, len(payload), maxNotifyPayload)

	e, err := decodeEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, EventUpdate, e.Type)
	assert.Equal(t, a.ID, e.AlertID)
	assert.Nil(t, e.Alert)
}

func TestDecodeEventRejectsUnknownTypes(t *testing.T) {
	raw, _ := json.Marshal(map[string]string{"type": "TRUNCATE"})
	_, err := decodeEvent(string(raw))
	assert.Error(t, err)

	_, err = decodeEvent("{not json")
	assert.Error(t, err)
}

func TestPGPublisherNotifies(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	a := alertAt(1, models.StatusVerified)

	mock.ExpectExec(`SELECT pg_notify\(\$1, \$2\)`).
		WithArgs("alert_changes", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := NewPGPublisher(db, "alert_changes").Publish(context.Background(), Updated(&a))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
