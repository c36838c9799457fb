package http

import (
	"testing"
	"time"
)

func receive(t *testing.T, ch <-chan outboundMessage) outboundMessage {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatalf("queue closed")
		}
		return msg
	case <-time.After(time.Second):
		t.Fatalf("no message delivered")
		return outboundMessage{}
	}
}

func TestHubDeliversToChannel(t *testing.T) {
	hub := NewHub()
	ch := hub.Register("c1")

	hub.ToChannel("c1", "ping", map[string]int{"n": 1})
	msg := receive(t, ch)
	if msg.Type != "ping" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestHubRoomFanout(t *testing.T) {
	hub := NewHub()
	a := hub.Register("a")
	b := hub.Register("b")
	c := hub.Register("c")
	hub.JoinRoom("ROOM01", "a")
	hub.JoinRoom("ROOM01", "b")

	hub.ToRoom("ROOM01", "tick", nil)
	if msg := receive(t, a); msg.Type != "tick" {
		t.Fatalf("unexpected message for a: %+v", msg)
	}
	if msg := receive(t, b); msg.Type != "tick" {
		t.Fatalf("unexpected message for b: %+v", msg)
	}
	select {
	case msg := <-c:
		t.Fatalf("c is not a room member, got %+v", msg)
	default:
	}
}

func TestHubUnregisterClosesQueue(t *testing.T) {
	hub := NewHub()
	ch := hub.Register("c1")
	hub.JoinRoom("ROOM01", "c1")

	hub.Unregister("c1")
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed queue")
	}
	// Sends after unregister must not panic or block.
	hub.ToChannel("c1", "late", nil)
	hub.ToRoom("ROOM01", "late", nil)
}

func TestHubDropsOldestWhenQueueFull(t *testing.T) {
	hub := NewHub()
	ch := hub.Register("c1")

	for i := 0; i < 40; i++ {
		hub.ToChannel("c1", "evt", i)
	}
	// The queue holds 32; the oldest messages were shed to keep the newest.
	first := receive(t, ch)
	if first.Payload.(int) == 0 {
		t.Fatalf("expected the oldest message to be dropped")
	}
}
