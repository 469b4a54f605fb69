// Package notify fans committed mutations out to live subscribers, one
// channel per rundown. Delivery is best-effort broadcast: a slow consumer
// drops events rather than stalling the write path, and a reconnecting
// client re-reads the document instead of replaying missed events.
package notify

import (
	"log/slog"
	"sync"

	models "rundown/internal/domain/models/rundown"
)

// Hub is an in-process broadcast hub keyed by rundown ID.
type Hub struct {
	subscribers map[string]map[string]chan models.Event // rundownID -> subscriberID -> channel
	mu          sync.RWMutex
	buffer      int
	logger      *slog.Logger
}

// NewHub creates a hub. buffer is the per-subscriber channel depth; once
// it fills, further events for that subscriber drop.
func NewHub(buffer int, logger *slog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]map[string]chan models.Event),
		buffer:      buffer,
		logger:      logger,
	}
}

// Subscribe registers a subscriber for one rundown's events. The caller
// reads from the returned channel until Unsubscribe closes it.
func (h *Hub) Subscribe(rundownID, subscriberID string) <-chan models.Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subscribers[rundownID] == nil {
		h.subscribers[rundownID] = make(map[string]chan models.Event)
	}

	// Buffered so Publish never blocks on a live consumer
	ch := make(chan models.Event, h.buffer)
	h.subscribers[rundownID][subscriberID] = ch

	return ch
}

// Unsubscribe removes a subscriber and closes its channel. Safe to call
// for an unknown subscriber.
func (h *Hub) Unsubscribe(rundownID, subscriberID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subscribers[rundownID]
	if ch, exists := subs[subscriberID]; exists {
		close(ch)
		delete(subs, subscriberID)
	}
	if len(subs) == 0 {
		delete(h.subscribers, rundownID)
	}
}

// Publish delivers an event to every subscriber of its rundown. The
// event carries its OriginTag so each client can discard its own echoes;
// the hub itself delivers to everyone, including the originator.
func (h *Hub) Publish(event models.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for subscriberID, ch := range h.subscribers[event.RundownID] {
		select {
		case ch <- event:
		default:
			h.logger.Warn("subscriber buffer full, dropping event",
				"rundown_id", event.RundownID,
				"subscriber_id", subscriberID,
				"event_type", event.Type,
			)
		}
	}
}

// SubscriberCount reports the live subscriber count for a rundown.
func (h *Hub) SubscriberCount(rundownID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[rundownID])
}
