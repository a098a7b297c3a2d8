// Package hub fans pipeline events out to live subscribers (SSE streams and
// websocket connections). Delivery is best effort: a subscriber that cannot
// keep up has events dropped rather than stalling the pipeline.
package hub

import (
	"sync"
	"time"

	"github.com/worq1337/parcer-sub001/internal/logging"
	"github.com/worq1337/parcer-sub001/internal/models"
)

// Broadcast event types, as seen by stream consumers.
const (
	EventConnected         = "connected"
	EventCheckReceived     = "check_received"
	EventCheckParsed       = "check_parsed"
	EventCheckSaved        = "check_saved"
	EventDuplicateDetected = "duplicate_detected"
	EventCheckFailed       = "check_failed"
)

// Event is the wire shape pushed to subscribers.
type Event struct {
	Type      string                 `json:"type"`
	CheckID   string                 `json:"check_id,omitempty"`
	Stage     models.Stage           `json:"stage,omitempty"`
	Status    models.EventStatus     `json:"status,omitempty"`
	Source    models.Source          `json:"source,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

type subscriber struct {
	ch chan Event
}

// Hub is a broadcast registry of live subscribers. Subscribe returns a
// buffered channel plus a cancel func; Publish never blocks.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
	buffer      int
	logger      logging.Logger
}

// New creates a hub whose subscriber channels hold up to buffer undelivered
// events each.
func New(buffer int, logger logging.Logger) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Hub{
		subscribers: make(map[*subscriber]struct{}),
		buffer:      buffer,
		logger:      logger,
	}
}

// Subscribe registers a new consumer. The returned cancel func must be called
// when the consumer goes away; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, h.buffer)}

	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	count := len(h.subscribers)
	h.mu.Unlock()

	h.logger.WithField(logging.FieldCount, count).Debug("Subscriber connected")

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			// Closing under the write lock so no Publish is mid-send.
			h.mu.Lock()
			delete(h.subscribers, sub)
			close(sub.ch)
			h.mu.Unlock()
		})
	}
	return sub.ch, cancel
}

// Publish delivers the event to every subscriber whose buffer has room.
// Slow subscribers lose events; the pipeline never waits on them.
func (h *Hub) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers {
		select {
		case sub.ch <- event:
		default:
			h.logger.WithField(logging.FieldCheckID, event.CheckID).
				Debug("Dropping event for slow subscriber")
		}
	}
}

// SubscriberCount reports the number of live subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
