// Package worker drains the append queue into the event log. A single
// writer consumes the queue, which keeps every log stream in arrival
// order without per-stream locking.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/tallyops/clickerd/internal/adapters/mq/queue"
	"github.com/tallyops/clickerd/internal/domain/model"
	"github.com/tallyops/clickerd/pkg/logger"
	"github.com/tallyops/clickerd/pkg/metrics"
)

// Record is what the worker reads off the queue.
type Record = model.ScoreRecord

// Appender persists one score record to its log stream.
type Appender interface {
	Append(ctx context.Context, r Record) error
}

// Queue defines how the worker receives records.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Record
}

// Writer is the single consumer of the append queue.
type Writer struct {
	queue    Queue
	appender Appender
	name     string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewWriter creates a writer with configuration options.
func NewWriter(q Queue, appender Appender, opts ...Option) *Writer {
	w := &Writer{
		queue:    q,
		appender: appender,
		name:     "log-writer",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("log-writer"),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Run consumes the queue until ctx is canceled, the queue closes, or
// Shutdown is called.
func (w *Writer) Run(ctx context.Context) {
	defer close(w.done)

	records := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			// Drain what is already buffered before stopping so a
			// teardown does not lose tail records.
			w.drain(ctx, records)
			return
		case r, ok := <-records:
			if !ok {
				return
			}
			w.persist(ctx, r)
		}
	}
}

func (w *Writer) drain(ctx context.Context, records <-chan queue.Record) {
	for {
		select {
		case r, ok := <-records:
			if !ok {
				return
			}
			w.persist(ctx, r)
		default:
			return
		}
	}
}

// persist appends one record, counting the outcome. Append failures
// are logged and dropped; the live scoring path must not stall on a
// bad disk.
func (w *Writer) persist(ctx context.Context, r Record) {
	start := time.Now()
	err := w.appender.Append(ctx, r)
	metrics.RecordAppendLatency(float64(time.Since(start).Milliseconds()))

	if err != nil {
		metrics.RecordLogAppendError()
		metrics.RecordErrorByComponent("log-writer", "append_error")
		w.logger.Error(ctx, "event log append failed",
			logger.String("group", r.Group),
			logger.String("contestant", r.Contestant),
			logger.Int("judge", r.Judge),
			logger.Error(err),
		)
		return
	}
	metrics.RecordLogAppend()
}

// Shutdown stops the writer and waits for it to finish.
func (w *Writer) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
