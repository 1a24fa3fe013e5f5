package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cove-chat/cove/internal/api"
	"github.com/cove-chat/cove/internal/bus"
	"github.com/cove-chat/cove/internal/realtime"
)

type fakeAPI struct {
	mu      sync.Mutex
	history []api.Message
	sendErr error
	entered chan struct{}
	release chan struct{}
	sent    []string
	nextID  string
}

func (f *fakeAPI) Messages(ctx context.Context, conversationID string) (*api.MessagesResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &api.MessagesResponse{Messages: f.history}, nil
}

func (f *fakeAPI) SendMessage(ctx context.Context, conversationID, content string) (*api.SendMessageResponse, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, content)
	id := f.nextID
	if id == "" {
		id = "srv-1"
	}
	return &api.SendMessageResponse{ResponseData: []api.SentMessage{{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       "u1",
		Content:        content,
		CreatedAt:      time.Now().Format(time.RFC3339),
	}}}, nil
}

type fakeTransport struct {
	mu         sync.Mutex
	tracks     []bool
	broadcasts []*realtime.MessageEvent
	trackErr   error
}

func (f *fakeTransport) Track(userID, username string, typing bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracks = append(f.tracks, typing)
	return f.trackErr
}

func (f *fakeTransport) BroadcastMessage(evt *realtime.MessageEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts = append(f.broadcasts, evt)
	return nil
}

func (f *fakeTransport) Close() {}

func (f *fakeTransport) trackLog() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]bool, len(f.tracks))
	copy(out, f.tracks)
	return out
}

type fixture struct {
	ctrl      *Controller
	api       *fakeAPI
	transport *fakeTransport
	bus       *bus.Bus
	guard     *Guard
	notified  chan Message
}

func newFixture(t *testing.T, a *fakeAPI) *fixture {
	t.Helper()
	f := &fixture{
		api:       a,
		transport: &fakeTransport{},
		bus:       bus.New(),
		guard:     NewGuard(5 * time.Second),
		notified:  make(chan Message, 8),
	}
	f.ctrl = NewController(ControllerConfig{
		ConversationID: "c1",
		LocalUserID:    "u1",
		LocalUsername:  "alice",
		API:            a,
		Transport:      f.transport,
		Bus:            f.bus,
		Guard:          f.guard,
		Notify:         func(m Message) { f.notified <- m },
		Debounce:       time.Hour,
	})
	return f
}

func waitEvent(t *testing.T, ch <-chan bus.Event, kind string) bus.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case evt := <-ch:
			if evt.Kind == kind {
				return evt
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", kind)
		}
	}
}

func TestSendConfirmsOptimisticEntry(t *testing.T) {
	f := newFixture(t, &fakeAPI{nextID: "m1"})
	events, unsub := f.bus.Subscribe("chat.", 16)
	defer unsub()

	restored, err := f.ctrl.Send(context.Background(), "  hello  ")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if restored != "" {
		t.Fatalf("nothing to restore on success, got %q", restored)
	}

	appended := waitEvent(t, events, bus.KindMessageAppended)
	if upd := appended.Payload.(TimelineUpdate); !IsProvisional(upd.Message.ID) {
		t.Fatalf("appended event must carry the provisional entry, got %q", upd.Message.ID)
	}
	confirmed := waitEvent(t, events, bus.KindMessageConfirmed)
	if upd := confirmed.Payload.(TimelineUpdate); upd.Message.ID != "m1" {
		t.Fatalf("expected confirmation for m1, got %q", upd.Message.ID)
	}

	msgs := f.ctrl.Messages()
	if len(msgs) != 1 || msgs[0].ID != "m1" || msgs[0].Content != "hello" {
		t.Fatalf("unexpected timeline %+v", msgs)
	}
	if !f.guard.Contains("m1") {
		t.Fatal("confirmed id must be guarded")
	}

	f.transport.mu.Lock()
	nb := len(f.transport.broadcasts)
	f.transport.mu.Unlock()
	if nb != 1 {
		t.Fatalf("expected 1 broadcast, got %d", nb)
	}
}

func TestSendFailureRollsBack(t *testing.T) {
	f := newFixture(t, &fakeAPI{sendErr: errors.New("boom")})
	events, unsub := f.bus.Subscribe("chat.", 16)
	defer unsub()

	restored, err := f.ctrl.Send(context.Background(), "doomed")
	if err == nil {
		t.Fatal("expected error")
	}
	if restored != "doomed" {
		t.Fatalf("expected content back for the compose box, got %q", restored)
	}

	rolled := waitEvent(t, events, bus.KindMessageRolledBack)
	if upd := rolled.Payload.(RollbackUpdate); upd.Content != "doomed" {
		t.Fatalf("rollback event content %q", upd.Content)
	}
	if n := len(f.ctrl.Messages()); n != 0 {
		t.Fatalf("provisional entry must be gone, len %d", n)
	}
}

func TestSendRejectsEmptyContent(t *testing.T) {
	f := newFixture(t, &fakeAPI{})
	if _, err := f.ctrl.Send(context.Background(), "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestSendRejectsConcurrentSend(t *testing.T) {
	a := &fakeAPI{entered: make(chan struct{}, 1), release: make(chan struct{})}
	f := newFixture(t, a)

	errs := make(chan error, 1)
	go func() {
		_, err := f.ctrl.Send(context.Background(), "first")
		errs <- err
	}()
	<-a.entered

	if _, err := f.ctrl.Send(context.Background(), "second"); !errors.Is(err, ErrSendInFlight) {
		t.Fatalf("expected ErrSendInFlight, got %v", err)
	}

	close(a.release)
	if err := <-errs; err != nil {
		t.Fatalf("first send failed: %v", err)
	}
}

func TestRealtimeDeliveryAppendsAndNotifies(t *testing.T) {
	a := &fakeAPI{history: []api.Message{{ID: "m0", SenderID: "u2", SenderUsername: "bob", Content: "old"}}}
	f := newFixture(t, a)

	if err := f.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer f.ctrl.Close()

	events, unsub := f.bus.Subscribe("chat.", 16)
	defer unsub()

	f.bus.Publish(bus.Event{Kind: bus.KindRealtimeMessage, Payload: &realtime.MessageEvent{
		ConversationID: "c1",
		ID:             "m1",
		SenderID:       "u2",
		SenderUsername: "bob",
		Content:        "new",
	}})

	appended := waitEvent(t, events, bus.KindMessageAppended)
	if upd := appended.Payload.(TimelineUpdate); upd.Message.ID != "m1" {
		t.Fatalf("unexpected appended payload %+v", upd)
	}

	select {
	case m := <-f.notified:
		if m.ID != "m1" {
			t.Fatalf("notified for %q", m.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected a notification")
	}
}

func TestRealtimeEventsForOtherConversationsIgnored(t *testing.T) {
	f := newFixture(t, &fakeAPI{})
	if err := f.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer f.ctrl.Close()

	events, unsub := f.bus.Subscribe("chat.", 16)
	defer unsub()

	f.bus.Publish(bus.Event{Kind: bus.KindRealtimeMessage, Payload: &realtime.MessageEvent{
		ConversationID: "c2",
		ID:             "m1",
		SenderID:       "u2",
		Content:        "elsewhere",
	}})

	select {
	case evt := <-events:
		t.Fatalf("unexpected event %s", evt.Kind)
	case <-time.After(100 * time.Millisecond):
	}
	if n := len(f.ctrl.Messages()); n != 0 {
		t.Fatalf("timeline must be untouched, len %d", n)
	}
}

func TestPresenceSnapshotUpdatesTypingLine(t *testing.T) {
	f := newFixture(t, &fakeAPI{})
	if err := f.ctrl.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer f.ctrl.Close()

	events, unsub := f.bus.Subscribe("chat.", 16)
	defer unsub()

	f.bus.Publish(bus.Event{Kind: bus.KindRealtimePresence, Payload: &realtime.PresenceSnapshot{
		ConversationID: "c1",
		Keys:           []string{"u2::a"},
		Entries: map[string]realtime.PresenceEntry{
			"u2::a": {Typing: true, Username: "bob", UserID: "u2"},
		},
	}})

	evt := waitEvent(t, events, bus.KindTypingChanged)
	upd := evt.Payload.(TypingUpdate)
	if len(upd.Names) != 1 || upd.Names[0] != "bob" {
		t.Fatalf("unexpected typing names %v", upd.Names)
	}
	if line := f.ctrl.TypingLine(); line != "bob is typing..." {
		t.Fatalf("typing line %q", line)
	}
}

func TestTypingRoutedToTransport(t *testing.T) {
	f := newFixture(t, &fakeAPI{nextID: "m1"})

	f.ctrl.OnInput()
	f.ctrl.OnInput()
	if got := f.transport.trackLog(); len(got) != 1 || !got[0] {
		t.Fatalf("expected single typing=true track, got %v", got)
	}

	if _, err := f.ctrl.Send(context.Background(), "hello"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if got := f.transport.trackLog(); len(got) != 2 || got[1] {
		t.Fatalf("send must stop typing, got %v", got)
	}
}
