package hub

import (
	"errors"
	"os"
	"testing"

	"github.com/tallyops/clickerd/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestHubPublishReachesAllListeners(t *testing.T) {
	h := New()
	defer h.Close()

	idA, chA, err := h.Subscribe()
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	_, chB, err := h.Subscribe()
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if got := h.Listeners(); got != 2 {
		t.Fatalf("listeners = %d, want 2", got)
	}

	h.Publish(Message{Type: TypeScoreUpdate, Payload: map[string]int{"total": 3}})

	for _, ch := range []<-chan Message{chA, chB} {
		select {
		case msg := <-ch:
			if msg.Type != TypeScoreUpdate {
				t.Fatalf("type = %q, want %q", msg.Type, TypeScoreUpdate)
			}
		default:
			t.Fatal("listener did not receive message")
		}
	}

	h.Unsubscribe(idA)
	if got := h.Listeners(); got != 1 {
		t.Fatalf("listeners after unsubscribe = %d, want 1", got)
	}
	if _, ok := <-chA; ok {
		t.Fatal("unsubscribed channel not closed")
	}
}

func TestHubSlowListenerDoesNotBlockPublish(t *testing.T) {
	h := New(WithBufferSize(1))
	defer h.Close()

	_, ch, err := h.Subscribe()
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// The second publish finds the buffer full and must return
	// immediately instead of waiting for the reader.
	h.Publish(Message{Type: TypeStatusUpdate, Payload: "connected"})
	h.Publish(Message{Type: TypeStatusUpdate, Payload: "error"})

	msg := <-ch
	if msg.Payload != "connected" {
		t.Fatalf("payload = %v, want the first message", msg.Payload)
	}
	select {
	case extra := <-ch:
		t.Fatalf("unexpected second message %v, want drop", extra)
	default:
	}
}

func TestHubUnsubscribeUnknownIDIsNoop(t *testing.T) {
	h := New()
	defer h.Close()
	h.Unsubscribe("no-such-listener")
}

func TestHubClose(t *testing.T) {
	h := New()

	_, ch, err := h.Subscribe()
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	h.Close()
	h.Close() // idempotent

	if _, ok := <-ch; ok {
		t.Fatal("channel not closed on hub close")
	}
	if _, _, err := h.Subscribe(); !errors.Is(err, ErrHubClosed) {
		t.Fatalf("subscribe after close = %v, want ErrHubClosed", err)
	}

	// Publishing after close is a silent no-op.
	h.Publish(Message{Type: TypeScoreUpdate})
}
