package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// pg_notify rejects payloads of 8000 bytes or more.
const maxNotifyPayload = 7900

// PGPublisher sends events through Postgres NOTIFY so every instance's PGBridge sees them.
type PGPublisher struct {
	db      *gorm.DB
	channel string
}

var _ Publisher = (*PGPublisher)(nil)

func NewPGPublisher(db *gorm.DB, channel string) *PGPublisher {
	return &PGPublisher{db: db, channel: channel}
}

func (p *PGPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := encodeNotification(e)
	if err != nil {
		return err
	}
	if err := p.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", p.channel, payload).Error; err != nil {
		return fmt.Errorf("failed to notify %s: %w", p.channel, err)
	}
	return nil
}

// encodeNotification drops the row body when the payload would not fit. Receivers
// load the alert by id in that case.
func encodeNotification(e Event) (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("failed to encode change event: %w", err)
	}
	if len(b) <= maxNotifyPayload {
		return string(b), nil
	}
	e.Alert = nil
	b, err = json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("failed to encode change event: %w", err)
	}
	return string(b), nil
}

// PGBridge listens on the notification channel and rebroadcasts into the local hub.
type PGBridge struct {
	dsn     string
	channel string
	hub     *Hub
}

func NewPGBridge(dsn, channel string, hub *Hub) *PGBridge {
	return &PGBridge{dsn: dsn, channel: channel, hub: hub}
}

// Run blocks until ctx is cancelled. A dropped connection loses notifications, so
// every reconnect is announced to subscribers as a RESYNC.
func (b *PGBridge) Run(ctx context.Context) error {
	listener := pq.NewListener(b.dsn, 2*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			slog.Warn("realtime listener event", "event", int(ev), "error", err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(b.channel); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", b.channel, err)
	}
	slog.Info("realtime bridge listening", "channel", b.channel)

	keepalive := time.NewTicker(90 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			if n == nil {
				b.hub.Broadcast(Resync())
				continue
			}
			e, err := decodeEvent(n.Extra)
			if err != nil {
				slog.Warn("dropping malformed change notification", "error", err)
				continue
			}
			b.hub.Broadcast(e)
		case <-keepalive.C:
			go func() {
				if err := listener.Ping(); err != nil {
					slog.Warn("realtime listener ping failed", "error", err)
				}
			}()
		}
	}
}
