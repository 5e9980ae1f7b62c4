package worker

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/tallyops/clickerd/internal/adapters/mq/queue"
	"github.com/tallyops/clickerd/internal/domain/model"
	"github.com/tallyops/clickerd/internal/domain/protocol"
	"github.com/tallyops/clickerd/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fakeAppender struct {
	mu      sync.Mutex
	records []Record
	err     error
}

func (a *fakeAppender) Append(ctx context.Context, r Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.records = append(a.records, r)
	return nil
}

func (a *fakeAppender) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.records)
}

func rec(contestant string, judge int, plus int32) Record {
	return Record{
		Group:      "Qualifiers",
		Contestant: contestant,
		Judge:      judge,
		Role:       model.RolePrimary,
		SystemTime: time.Now(),
		Event:      protocol.Event{TotalPlus: plus, CurrentTotal: plus, EventType: 1},
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestWriterPersistsInOrder(t *testing.T) {
	q := queue.NewInMemoryQueue(queue.WithCapacity(16))
	app := &fakeAppender{}
	w := NewWriter(q, app)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	for i := int32(1); i <= 5; i++ {
		if !q.Enqueue(ctx, rec("Alice", 1, i)) {
			t.Fatalf("enqueue %d failed", i)
		}
	}

	waitFor(t, time.Second, func() bool { return app.count() == 5 })

	app.mu.Lock()
	defer app.mu.Unlock()
	for i, r := range app.records {
		if r.Event.TotalPlus != int32(i+1) {
			t.Fatalf("record %d has plus %d, want %d", i, r.Event.TotalPlus, i+1)
		}
	}
}

func TestWriterSurvivesAppendErrors(t *testing.T) {
	q := queue.NewInMemoryQueue(queue.WithCapacity(16))
	app := &fakeAppender{err: errors.New("disk full")}
	w := NewWriter(q, app, WithName("test-writer"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	q.Enqueue(ctx, rec("Alice", 1, 1))
	time.Sleep(20 * time.Millisecond)

	// Clear the fault; the writer must still be consuming.
	app.mu.Lock()
	app.err = nil
	app.mu.Unlock()

	q.Enqueue(ctx, rec("Alice", 1, 2))
	waitFor(t, time.Second, func() bool { return app.count() == 1 })
}

func TestWriterShutdownDrainsBuffered(t *testing.T) {
	q := queue.NewInMemoryQueue(queue.WithCapacity(16))
	app := &fakeAppender{}
	w := NewWriter(q, app)

	ctx := context.Background()
	for i := int32(1); i <= 3; i++ {
		q.Enqueue(ctx, rec("Bob", 2, i))
	}

	go w.Run(ctx)
	time.Sleep(10 * time.Millisecond)

	shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := w.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if got := app.count(); got != 3 {
		t.Fatalf("persisted %d records, want 3", got)
	}
}

func TestWriterStopsWhenQueueCloses(t *testing.T) {
	q := queue.NewInMemoryQueue(queue.WithCapacity(4))
	app := &fakeAppender{}
	w := NewWriter(q, app)

	ctx := context.Background()
	go w.Run(ctx)

	q.Enqueue(ctx, rec("Alice", 1, 1))
	if err := q.Close(); err != nil {
		t.Fatalf("close queue: %v", err)
	}

	select {
	case <-w.done:
	case <-time.After(time.Second):
		t.Fatal("writer did not stop after queue close")
	}
	if got := app.count(); got != 1 {
		t.Fatalf("persisted %d records, want 1", got)
	}
}
