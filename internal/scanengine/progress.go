package scanengine

import (
	"sync"
	"time"
)

// Broadcaster receives progress events for running scans. The SSE and
// websocket handlers subscribe through the Hub implementation.
type Broadcaster interface {
	Publish(event ProgressEvent)
}

// Hub fans progress events out to per-scan subscribers. Slow subscribers
// are skipped rather than blocking the scan workers.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan ProgressEvent]struct{}
}

// NewHub creates an empty progress hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[chan ProgressEvent]struct{}),
	}
}

// Subscribe registers a listener for a scan's progress events. The returned
// function removes the subscription and closes the channel.
func (h *Hub) Subscribe(scanUID string) (<-chan ProgressEvent, func()) {
	ch := make(chan ProgressEvent, 32)

	h.mu.Lock()
	if h.subs[scanUID] == nil {
		h.subs[scanUID] = make(map[chan ProgressEvent]struct{})
	}
	h.subs[scanUID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[scanUID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(h.subs, scanUID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber of its scan.
func (h *Hub) Publish(event ProgressEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[event.ScanUID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// SubscriberCount returns the number of listeners for a scan.
func (h *Hub) SubscriberCount(scanUID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[scanUID])
}
