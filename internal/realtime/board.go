package realtime

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/nagaralert/alerthub/internal/models"
)

// Board is the in-memory admin collection: the newest alerts by creation time,
// bounded to a fixed size. Events are applied incrementally and replays are harmless.
type Board struct {
	limit  int
	alerts []models.Alert
	refill bool
}

func NewBoard(limit int) *Board {
	return &Board{limit: limit}
}

// Reset replaces the contents with a freshly loaded snapshot.
func (b *Board) Reset(snapshot []models.Alert) {
	b.alerts = append(b.alerts[:0:0], snapshot...)
	sort.SliceStable(b.alerts, func(i, j int) bool { return newer(&b.alerts[i], &b.alerts[j]) })
	if len(b.alerts) > b.limit {
		b.alerts = b.alerts[:b.limit]
	}
	b.refill = false
}

// Apply diffs one event into the collection and reports whether anything changed.
func (b *Board) Apply(e Event) bool {
	switch e.Type {
	case EventDelete:
		return b.remove(e.AlertID)
	case EventInsert, EventUpdate:
		if e.Alert == nil {
			return false
		}
		return b.upsert(*e.Alert)
	default:
		return false
	}
}

// NeedsRefill reports that a delete left a previously full board short, so rows
// beyond the window must be loaded to restore it.
func (b *Board) NeedsRefill() bool {
	return b.refill
}

func (b *Board) Len() int {
	return len(b.alerts)
}

// Alerts returns a copy of the collection, newest first, filtered by a
// case-insensitive match on title, description and address.
func (b *Board) Alerts(query string) []models.Alert {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]models.Alert, 0, len(b.alerts))
	for _, a := range b.alerts {
		if q == "" || matches(&a, q) {
			out = append(out, a)
		}
	}
	return out
}

func (b *Board) indexOf(id uuid.UUID) int {
	for i := range b.alerts {
		if b.alerts[i].ID == id {
			return i
		}
	}
	return -1
}

func (b *Board) remove(id uuid.UUID) bool {
	i := b.indexOf(id)
	if i < 0 {
		return false
	}
	if len(b.alerts) == b.limit {
		b.refill = true
	}
	b.alerts = append(b.alerts[:i], b.alerts[i+1:]...)
	return true
}

func (b *Board) upsert(a models.Alert) bool {
	if i := b.indexOf(a.ID); i >= 0 {
		if a.UpdatedAt.Before(b.alerts[i].UpdatedAt) {
			return false
		}
		b.alerts[i] = a
		return true
	}

	pos := sort.Search(len(b.alerts), func(i int) bool { return newer(&a, &b.alerts[i]) })
	if pos >= b.limit {
		return false
	}
	b.alerts = append(b.alerts, models.Alert{})
	copy(b.alerts[pos+1:], b.alerts[pos:])
	b.alerts[pos] = a
	if len(b.alerts) > b.limit {
		b.alerts = b.alerts[:b.limit]
	}
	return true
}

func newer(a, b *models.Alert) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() > b.ID.String()
}

func matches(a *models.Alert, q string) bool {
	return strings.Contains(strings.ToLower(a.Title), q) ||
		strings.Contains(strings.ToLower(a.Description), q) ||
		strings.Contains(strings.ToLower(a.LocationAddress), q)
}
