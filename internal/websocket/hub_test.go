package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"choreboard/internal/notify"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub) *Client {
	return &Client{
		hub:  hub,
		conn: nil,
		send: make(chan []byte, sendBufferSize),
	}
}

func occEvent(kind notify.EventKind, occID int64) notify.Event {
	return notify.NewEvent(kind, &occID, nil, nil)
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub)
	c2 := mockClient(hub)

	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)

	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub)
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestDeliverBroadcastsToAllClients(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub)
	c2 := mockClient(hub)
	hub.Register(c1)
	hub.Register(c2)

	ev := occEvent(notify.EventClaimed, 42)
	if err := hub.Deliver(context.Background(), ev); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	for _, c := range []*Client{c1, c2} {
		select {
		case data := <-c.send:
			var got Frame
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Type != "claimed" {
				t.Errorf("expected type claimed, got %s", got.Type)
			}
			if got.OccurrenceID == nil || *got.OccurrenceID != 42 {
				t.Errorf("expected occurrence 42, got %v", got.OccurrenceID)
			}
			if got.EventID != ev.ID {
				t.Errorf("expected event id %s, got %s", ev.ID, got.EventID)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for frame")
		}
	}

	hub.Unregister(c1)
	hub.Unregister(c2)
}

func TestDeliverEmptyHub(t *testing.T) {
	hub := NewHub(slog.Default())
	// Should not panic
	if err := hub.Deliver(context.Background(), occEvent(notify.EventCompleted, 1)); err != nil {
		t.Fatalf("deliver: %v", err)
	}
}

func TestDeliverFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub)
	hub.Register(c)

	// Fill the send buffer
	for i := 0; i < sendBufferSize; i++ {
		if err := hub.Deliver(context.Background(), occEvent(notify.EventAssigned, int64(i))); err != nil {
			t.Fatalf("deliver %d: %v", i, err)
		}
	}

	// This should drop the frame, not panic or block
	if err := hub.Deliver(context.Background(), occEvent(notify.EventAssigned, 999)); err != nil {
		t.Fatalf("deliver overflow: %v", err)
	}

	// Drain to verify buffer was full
	count := 0
	for {
		select {
		case <-c.send:
			count++
		default:
			goto done
		}
	}
done:
	if count != sendBufferSize {
		t.Errorf("expected %d frames, got %d", sendBufferSize, count)
	}

	hub.Unregister(c)
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	// Spawn goroutines that register, deliver, and unregister concurrently
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := mockClient(hub)
			hub.Register(c)
			hub.Deliver(context.Background(), occEvent(notify.EventOverdue, 0))
			// Drain any frames
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}()
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}
