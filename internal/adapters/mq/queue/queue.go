// Package queue provides the bounded buffer between the live scoring
// path and the event log writer. Enqueue never blocks: when the buffer
// is full the record is dropped and counted, because holding up the
// notification handler would be worse than losing one log line.
package queue

import (
	"context"
	"sync"

	"github.com/tallyops/clickerd/internal/domain/model"
	"github.com/tallyops/clickerd/pkg/metrics"
)

const defaultCapacity = 4096

// Record is the payload type flowing through the queue.
type Record = model.ScoreRecord

// Queue provides non-blocking enqueue and channel-based dequeue.
type Queue interface {
	// Enqueue adds a record. Returns false if the queue is full or
	// closed and the record was dropped.
	Enqueue(ctx context.Context, r Record) bool

	// Dequeue returns a channel that receives records in enqueue
	// order. The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Record

	// Len returns the current number of buffered records.
	Len(ctx context.Context) int

	// Close shuts the queue down. Buffered records remain readable.
	Close() error

	// IsClosed reports whether Close has been called.
	IsClosed() bool
}

// InMemoryQueue implements Queue on a buffered channel.
type InMemoryQueue struct {
	records  chan Record
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.records = make(chan Record, q.capacity)

	metrics.UpdateAppendQueueCapacity(q.capacity)
	metrics.UpdateAppendQueueSize(0)

	return q
}

// Enqueue adds a record, dropping it when the buffer is full.
func (q *InMemoryQueue) Enqueue(ctx context.Context, r Record) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordAppendQueueDrop()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	select {
	case q.records <- r:
		metrics.UpdateAppendQueueSize(len(q.records))
		return true
	case <-ctx.Done():
		metrics.RecordAppendQueueDrop()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
		metrics.RecordAppendQueueDrop()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns a channel delivering records in enqueue order.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Record {
	out := make(chan Record)
	go func() {
		defer close(out)
		for r := range q.records {
			select {
			case out <- r:
				metrics.UpdateAppendQueueSize(len(q.records))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of buffered records.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	size := len(q.records)
	metrics.UpdateAppendQueueSize(size)
	return size
}

// Close shuts the queue down.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.records)
	q.closed = true

	return nil
}

// IsClosed reports whether Close has been called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
