package queue

import (
	"context"
	"testing"
	"time"

	"github.com/tallyops/clickerd/internal/domain/model"
	"github.com/tallyops/clickerd/internal/domain/protocol"
)

func record(group, contestant string, judge int, plus int32) Record {
	return Record{
		Group:      group,
		Contestant: contestant,
		Judge:      judge,
		Role:       model.RolePrimary,
		SystemTime: time.Now(),
		Event:      protocol.Event{TotalPlus: plus, CurrentTotal: plus, EventType: 1},
	}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, record("GroupA", "Alice", 1, 1)) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	out := q.Dequeue(ctx)
	r := <-out
	if r.Contestant != "Alice" || r.Event.TotalPlus != 1 {
		t.Errorf("unexpected record %+v", r)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_DropsWhenFull(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, record("GroupA", "Alice", 1, 1)) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, record("GroupA", "Alice", 1, 2)) {
		t.Error("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, record("GroupA", "Alice", 1, 3)) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_PreservesOrder(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(16))
	ctx := context.Background()

	for i := int32(1); i <= 5; i++ {
		if !q.Enqueue(ctx, record("GroupA", "Alice", 1, i)) {
			t.Fatalf("enqueue %d failed", i)
		}
	}

	out := q.Dequeue(ctx)
	for i := int32(1); i <= 5; i++ {
		r := <-out
		if r.Event.TotalPlus != i {
			t.Fatalf("got plus %d at position %d, want %d", r.Event.TotalPlus, i, i)
		}
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, record("GroupA", "Alice", 1, 1)) {
		t.Error("expected enqueue to succeed")
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to report closed")
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	// Enqueue after close is a counted drop.
	if q.Enqueue(ctx, record("GroupA", "Alice", 1, 2)) {
		t.Error("expected enqueue after close to fail")
	}

	// Buffered records drain, then the channel closes.
	out := q.Dequeue(ctx)
	if r, ok := <-out; !ok || r.Event.TotalPlus != 1 {
		t.Fatalf("expected buffered record, got %+v ok=%v", r, ok)
	}
	if _, ok := <-out; ok {
		t.Error("expected dequeue channel to close")
	}
}
