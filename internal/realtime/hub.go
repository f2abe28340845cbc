package realtime

import (
	"context"
	"log/slog"
	"sync"
)

// Hub fans events out to in-process subscribers. It never blocks a publisher:
// a subscriber that falls behind has its backlog replaced by a single RESYNC.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	buffer int
	closed bool
}

// Subscription is one live consumer. Close must be called when the consumer goes away.
type Subscription struct {
	C    <-chan Event
	ch   chan Event
	hub  *Hub
	once sync.Once
}

var _ Publisher = (*Hub)(nil)

func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{subs: make(map[*Subscription]struct{}), buffer: buffer}
}

func (h *Hub) Subscribe() *Subscription {
	ch := make(chan Event, h.buffer)
	s := &Subscription{C: ch, ch: ch, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return s
	}
	h.subs[s] = struct{}{}
	slog.Debug("realtime subscriber added", "subscribers", len(h.subs))
	return s
}

// Close releases the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[s]; ok {
			delete(h.subs, s)
			close(s.ch)
		}
	})
}

// Publish delivers locally. It satisfies Publisher for single-instance deployments.
func (h *Hub) Publish(_ context.Context, e Event) error {
	h.Broadcast(e)
	return nil
}

func (h *Hub) Broadcast(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.ch <- e:
		default:
			s.overflow()
		}
	}
}

// overflow drops the pending backlog and leaves a RESYNC marker. Caller holds h.mu,
// so no other sender can refill the channel in between.
func (s *Subscription) overflow() {
drain:
	for {
		select {
		case <-s.ch:
		default:
			break drain
		}
	}
	s.ch <- Resync()
	slog.Warn("realtime subscriber lagged, resync scheduled")
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription. Consumers observe a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		delete(h.subs, s)
		close(s.ch)
	}
}
