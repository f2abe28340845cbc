package handlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/nagaralert/alerthub/internal/dto"
	"github.com/nagaralert/alerthub/internal/models"
	"github.com/nagaralert/alerthub/internal/realtime"
	"github.com/nagaralert/alerthub/internal/services"
)

const (
	livePingInterval = 30 * time.Second
	liveWriteTimeout = 10 * time.Second
)

// liveMessage is one frame of the admin live feed.
type liveMessage struct {
	Type   string                `json:"type"`
	Tabs   *dto.TabbedAlerts     `json:"tabs,omitempty"`
	Event  *realtime.Event       `json:"event,omitempty"`
	Counts map[models.Status]int `json:"counts,omitempty"`
}

// liveSession keeps one connection's board in step with the event stream.
type liveSession struct {
	board  *realtime.Board
	query  string
	reload func(ctx context.Context) ([]models.Alert, error)
	fetch  func(ctx context.Context, id uuid.UUID) (*models.Alert, error)
}

func newLiveSession(query string, reload func(context.Context) ([]models.Alert, error), fetch func(context.Context, uuid.UUID) (*models.Alert, error)) *liveSession {
	return &liveSession{
		board:  realtime.NewBoard(services.AdminWindow),
		query:  query,
		reload: reload,
		fetch:  fetch,
	}
}

func (s *liveSession) snapshot(ctx context.Context) (*liveMessage, error) {
	alerts, err := s.reload(ctx)
	if err != nil {
		return nil, err
	}
	s.board.Reset(alerts)
	return &liveMessage{Type: "snapshot", Tabs: services.GroupTabs(s.board.Alerts(s.query))}, nil
}

// handle applies one event and returns the frame to send, or nil when the view did not change.
func (s *liveSession) handle(ctx context.Context, e realtime.Event) (*liveMessage, error) {
	if e.Type == realtime.EventResync {
		return s.snapshot(ctx)
	}

	if (e.Type == realtime.EventInsert || e.Type == realtime.EventUpdate) && e.Alert == nil {
		alert, err := s.fetch(ctx, e.AlertID)
		switch {
		case errors.Is(err, services.ErrAlertNotFound):
			e = realtime.Event{ID: e.ID, Type: realtime.EventDelete, AlertID: e.AlertID, At: e.At}
		case err != nil:
			return nil, err
		default:
			e.Alert = alert
		}
	}

	if !s.board.Apply(e) {
		return nil, nil
	}
	if s.board.NeedsRefill() {
		return s.snapshot(ctx)
	}
	return &liveMessage{
		Type:   "event",
		Event:  &e,
		Counts: services.GroupTabs(s.board.Alerts(s.query)).Counts,
	}, nil
}

type LiveHandler struct {
	hub    *realtime.Hub
	feeds  *services.FeedService
	alerts *services.AlertService
}

func NewLiveHandler(hub *realtime.Hub, feeds *services.FeedService, alerts *services.AlertService) *LiveHandler {
	return &LiveHandler{hub: hub, feeds: feeds, alerts: alerts}
}

// Upgrade rejects plain HTTP requests to the live endpoint.
func (h *LiveHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

func (h *LiveHandler) Stream() fiber.Handler {
	return websocket.New(h.serve)
}

func (h *LiveHandler) serve(conn *websocket.Conn) {
	// Subscribe before the snapshot so no change falls between the two.
	sub := h.hub.Subscribe()
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	session := newLiveSession(
		conn.Query("q"),
		func(ctx context.Context) ([]models.Alert, error) { return h.feeds.Recent(ctx, "") },
		h.alerts.Get,
	)

	first, err := session.snapshot(ctx)
	if err != nil {
		slog.Error("live feed snapshot failed", "error", err)
		return
	}
	if err := writeFrame(conn, first); err != nil {
		return
	}

	ping := time.NewTicker(livePingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteTimeout)); err != nil {
				return
			}
		case e, ok := <-sub.C:
			if !ok {
				return
			}
			msg, err := session.handle(ctx, e)
			if err != nil {
				slog.Warn("live feed event failed, resyncing", "type", string(e.Type), "error", err)
				if msg, err = session.snapshot(ctx); err != nil {
					return
				}
			}
			if msg == nil {
				continue
			}
			if err := writeFrame(conn, msg); err != nil {
				return
			}
		}
	}
}

func writeFrame(conn *websocket.Conn, msg *liveMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}
