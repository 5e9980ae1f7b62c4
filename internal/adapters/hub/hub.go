// Package hub fans live updates out to an arbitrary set of listeners,
// best effort. Publishing never blocks the producer: a listener whose
// buffer is full simply misses that message, and the next full-state
// update makes it whole again.
package hub

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/tallyops/clickerd/pkg/logger"
	"github.com/tallyops/clickerd/pkg/metrics"
)

const defaultBufferSize = 64

// Message type discriminators carried on the wire.
const (
	TypeScoreUpdate  = "score_update"
	TypeStatusUpdate = "status_update"
)

// Message is one broadcast envelope.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Hub is a best-effort broadcaster. Listeners come and go freely;
// the producer never learns who is subscribed.
type Hub struct {
	mu        sync.RWMutex
	listeners map[string]chan Message
	closed    bool

	bufferSize int
	logger     logger.Logger
}

// New creates a hub.
func New(opts ...Option) *Hub {
	h := &Hub{
		listeners:  make(map[string]chan Message),
		bufferSize: defaultBufferSize,
		logger:     logger.Get().Named("hub"),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Subscribe registers a listener and returns its id plus the receive
// channel. The channel is closed on Unsubscribe or Close.
func (h *Hub) Subscribe() (string, <-chan Message, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return "", nil, ErrHubClosed
	}

	id := uuid.NewString()
	ch := make(chan Message, h.bufferSize)
	h.listeners[id] = ch
	metrics.UpdateHubListeners(len(h.listeners))

	h.logger.Debug(context.Background(), "listener subscribed", logger.String("listener", id))
	return id, ch, nil
}

// Unsubscribe removes a listener and closes its channel. Unknown ids
// are a no-op.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.listeners[id]
	if !ok {
		return
	}
	delete(h.listeners, id)
	close(ch)
	metrics.UpdateHubListeners(len(h.listeners))

	h.logger.Debug(context.Background(), "listener unsubscribed", logger.String("listener", id))
}

// Publish delivers a message to every listener that has buffer space.
// Slow listeners are skipped, not waited for.
func (h *Hub) Publish(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}

	for id, ch := range h.listeners {
		select {
		case ch <- msg:
			metrics.RecordHubPublish()
		default:
			metrics.RecordHubDrop()
			h.logger.Debug(context.Background(), "listener buffer full, dropping",
				logger.String("listener", id),
				logger.String("type", msg.Type),
			)
		}
	}
}

// Listeners returns the current listener count.
func (h *Hub) Listeners() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}

// Close shuts the hub down and closes every listener channel. Further
// Subscribe calls fail and further Publish calls are dropped.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for id, ch := range h.listeners {
		delete(h.listeners, id)
		close(ch)
	}
	metrics.UpdateHubListeners(0)
}
