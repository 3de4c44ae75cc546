// Package telemetry fans control frames out to live subscribers.
package telemetry

import (
	"sync"
	"sync/atomic"

	"github.com/ayusman/handvolume/internal/control"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 16

// Hub implements control.Observer. Publishing never blocks: a subscriber
// whose buffer is full misses the frame.
type Hub struct {
	buffer int
	onDrop func()

	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	latest control.Frame
	has    bool

	dropped atomic.Uint64
}

// NewHub creates a hub with the given per-subscriber buffer. onDrop, if
// non-nil, is called for every dropped frame.
func NewHub(buffer int, onDrop func()) *Hub {
	if buffer < 1 {
		buffer = DefaultBuffer
	}
	return &Hub{
		buffer: buffer,
		onDrop: onDrop,
		subs:   make(map[*Subscription]struct{}),
	}
}

// Subscription receives frames on C until Close.
type Subscription struct {
	C <-chan control.Frame

	ch   chan control.Frame
	hub  *Hub
	once sync.Once
}

// Close unsubscribes and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		close(s.ch)
		s.hub.mu.Unlock()
	})
}

// Subscribe registers a new subscriber.
func (h *Hub) Subscribe() *Subscription {
	ch := make(chan control.Frame, h.buffer)
	s := &Subscription{C: ch, ch: ch, hub: h}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	return s
}

func (h *Hub) ObserveFrame(f control.Frame) {
	h.mu.Lock()
	h.latest = f
	h.has = true
	h.mu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.subs {
		select {
		case s.ch <- f:
		default:
			h.dropped.Add(1)
			if h.onDrop != nil {
				h.onDrop()
			}
		}
	}
}

// Latest returns the most recent frame.
func (h *Hub) Latest() (control.Frame, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest, h.has
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns the number of frames dropped across all subscribers.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}
