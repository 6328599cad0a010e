package chat

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/onnwee/trirk/parser"
	"github.com/onnwee/trirk/telemetry"
)

// Event is one message as delivered to subscribers.
type Event struct {
	Session    string          `json:"session"`
	ReceivedAt time.Time       `json:"received_at"`
	Message    *parser.Message `json:"message"`
	// Line is the canonical rendering of Message.
	Line string `json:"line"`
}

// Hub fans events out to subscribers. A subscriber that is not keeping up loses events rather
// than stalling the read loop.
type Hub struct {
	mu      sync.RWMutex
	subs    map[chan Event]struct{}
	dropped atomic.Uint64
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a subscriber with the given buffer. Call cancel to unsubscribe; the
// channel is closed afterwards.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	telemetry.AddEventSubscribers(1)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
			telemetry.AddEventSubscribers(-1)
		})
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber with room in its buffer.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// Len returns the current subscriber count.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }
