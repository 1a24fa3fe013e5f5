package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/cove-chat/cove/internal/bus"
)

func testChannel(b *bus.Bus) *Channel {
	// A conn that never dialed: send fails, which is fine for frame
	// handling tests.
	conn := NewConn("ws://127.0.0.1:0", "tok", "dev-1", b, zap.NewNop())
	return newChannel("c1", "dev-1", conn, b, zap.NewNop())
}

func TestHandleFramePublishesMessage(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("rt.", 10)
	defer unsub()

	c := testChannel(b)
	c.handleFrame(Envelope{
		Topic:   "messages:c1",
		Event:   EventMessage,
		Payload: json.RawMessage(`{"conversation_id":"c1","id":"m1","sender_id":"u2","sender_username":"bob","content":"hey","created_at":"2026-01-01T00:00:00Z"}`),
	})

	select {
	case evt := <-ch:
		if evt.Kind != bus.KindRealtimeMessage {
			t.Errorf("kind = %q, want %q", evt.Kind, bus.KindRealtimeMessage)
		}
		msg, ok := evt.Payload.(*MessageEvent)
		if !ok {
			t.Fatalf("payload type = %T", evt.Payload)
		}
		if msg.ID != "m1" {
			t.Errorf("msg id = %q, want m1", msg.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for rt.message event")
	}
}

func TestHandleFrameDropsInvalidPayload(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("rt.", 10)
	defer unsub()

	c := testChannel(b)
	c.handleFrame(Envelope{
		Topic:   "messages:c1",
		Event:   EventMessage,
		Payload: json.RawMessage(`{"content":"no ids here"}`),
	})

	select {
	case evt := <-ch:
		t.Errorf("invalid payload reached the bus: %v", evt)
	case <-time.After(50 * time.Millisecond):
		// Expected.
	}
}

func TestHandleFramePublishesPresence(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("rt.", 10)
	defer unsub()

	c := testChannel(b)
	c.handleFrame(Envelope{
		Topic:   "typing:c1",
		Event:   EventPresenceState,
		Payload: json.RawMessage(`{"u2::d1":{"typing":true,"username":"bob","user_id":"u2"}}`),
	})

	select {
	case evt := <-ch:
		if evt.Kind != bus.KindRealtimePresence {
			t.Errorf("kind = %q, want %q", evt.Kind, bus.KindRealtimePresence)
		}
		snap, ok := evt.Payload.(*PresenceSnapshot)
		if !ok {
			t.Fatalf("payload type = %T", evt.Payload)
		}
		if snap.ConversationID != "c1" {
			t.Errorf("ConversationID = %q", snap.ConversationID)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for rt.presence event")
	}
}

// TestNoFramesAfterClose covers the teardown race: a frame already in
// flight when the conversation view closes must be dropped, not
// delivered late.
func TestNoFramesAfterClose(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("rt.", 10)
	defer unsub()

	c := testChannel(b)
	c.Close()

	c.handleFrame(Envelope{
		Topic:   "messages:c1",
		Event:   EventMessage,
		Payload: json.RawMessage(`{"conversation_id":"c1","id":"m1","sender_id":"u2"}`),
	})

	select {
	case evt := <-ch:
		t.Errorf("frame delivered after Close: %v", evt)
	case <-time.After(50 * time.Millisecond):
		// Expected.
	}
}

func TestOperationsAfterClose(t *testing.T) {
	c := testChannel(bus.New())
	c.Close()
	c.Close() // Idempotent.

	if err := c.Track("u1", "alice", true); err != ErrChannelClosed {
		t.Errorf("Track after Close = %v, want ErrChannelClosed", err)
	}
	if err := c.BroadcastMessage(&MessageEvent{ID: "m1"}); err != ErrChannelClosed {
		t.Errorf("BroadcastMessage after Close = %v, want ErrChannelClosed", err)
	}
}

func TestReconnectorBackoff(t *testing.T) {
	r := newReconnector()

	first := r.nextDelay()
	second := r.nextDelay()
	third := r.nextDelay()

	if first > second || second > third {
		t.Errorf("delays not growing: %v %v %v", first, second, third)
	}
	if third > r.maxDelay+r.baseDelay {
		t.Errorf("delay %v exceeds cap", third)
	}

	for i := 0; i < 20; i++ {
		r.nextDelay()
	}
	if r.shouldReconnect() {
		t.Error("shouldReconnect() = true after exhausting attempts")
	}

	r.reset()
	if !r.shouldReconnect() {
		t.Error("shouldReconnect() = false after reset")
	}
}
