package store

import "sync"

// Hub fans change notifications out to subscribers. Notifications carry no
// payload; subscribers re-query whatever they are watching.
type Hub struct {
	mu   sync.Mutex
	subs map[uint64]chan struct{}
	next uint64
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]chan struct{})}
}

// Subscribe registers a subscriber. Pending notifications coalesce, so a
// slow subscriber sees at most one. The returned func unsubscribes.
func (h *Hub) Subscribe() (<-chan struct{}, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan struct{}, 1)
	id := h.next
	h.next++
	h.subs[id] = ch

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

// Invalidate notifies every subscriber that stored data changed.
func (h *Hub) Invalidate() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
