package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cove-chat/cove/internal/api"
	"github.com/cove-chat/cove/internal/bus"
	"github.com/cove-chat/cove/internal/presence"
	"github.com/cove-chat/cove/internal/realtime"
)

var (
	// ErrSendInFlight rejects a send while the previous one is still
	// awaiting the server.
	ErrSendInFlight = errors.New("a send is already in flight")

	// ErrEmptyMessage rejects sends with no content after trimming.
	ErrEmptyMessage = errors.New("message content is empty")
)

// API is the slice of the HTTP client the controller needs.
type API interface {
	Messages(ctx context.Context, conversationID string) (*api.MessagesResponse, error)
	SendMessage(ctx context.Context, conversationID, content string) (*api.SendMessageResponse, error)
}

// Transport is the slice of the realtime channel the controller needs.
type Transport interface {
	Track(userID, username string, typing bool) error
	BroadcastMessage(evt *realtime.MessageEvent) error
	Close()
}

// TimelineUpdate is the payload of message_appended and
// message_confirmed bus events.
type TimelineUpdate struct {
	ConversationID string
	Message        Message
}

// RollbackUpdate is the payload of message_rolled_back bus events.
// Content is the original input, handed back for the compose box.
type RollbackUpdate struct {
	ConversationID string
	Content        string
}

// TypingUpdate is the payload of typing_changed bus events.
type TypingUpdate struct {
	ConversationID string
	Names          []string
}

// ControllerConfig carries the dependencies of a Controller. Guard is
// shared across conversations so echoes of own sends stay suppressed
// regardless of which view observes them.
type ControllerConfig struct {
	ConversationID string
	LocalUserID    string
	LocalUsername  string
	API            API
	Transport      Transport
	Bus            *bus.Bus
	Guard          *Guard
	Notify         func(Message)
	Debounce       time.Duration
	Logger         *zap.Logger
}

// Controller orchestrates one open conversation: the message timeline,
// the local typing tracker and the remote presence aggregate, fed by
// the HTTP client on one side and realtime bus events on the other.
// State changes surface as chat.* bus events for the view layer.
type Controller struct {
	conversationID string
	localUserID    string
	localUsername  string

	api       API
	transport Transport
	bus       *bus.Bus
	guard     *Guard
	logger    *zap.Logger

	thread   *Thread
	notifier *Notifier
	tracker  *presence.Tracker
	agg      *presence.Aggregator

	mu      sync.Mutex
	sending bool
	cancel  context.CancelFunc
	unsub   func()
	done    chan struct{}
}

// NewController wires a controller from its dependencies.
func NewController(cfg ControllerConfig) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		conversationID: cfg.ConversationID,
		localUserID:    cfg.LocalUserID,
		localUsername:  cfg.LocalUsername,
		api:            cfg.API,
		transport:      cfg.Transport,
		bus:            cfg.Bus,
		guard:          cfg.Guard,
		logger:         logger,
		thread:         NewThread(cfg.ConversationID, cfg.LocalUserID),
		notifier:       NewNotifier(cfg.LocalUserID, cfg.Guard, cfg.Notify),
		agg:            presence.NewAggregator(cfg.LocalUserID),
	}
	c.tracker = presence.NewTracker(cfg.Debounce, func(typing bool) error {
		return cfg.Transport.Track(cfg.LocalUserID, cfg.LocalUsername, typing)
	}, logger)
	return c
}

// Start loads the conversation history and begins consuming realtime
// events from the bus.
func (c *Controller) Start(ctx context.Context) error {
	resp, err := c.api.Messages(ctx, c.conversationID)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}

	history := make([]Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		history = append(history, Message{
			ID:             m.ID,
			ConversationID: c.conversationID,
			SenderID:       m.SenderID,
			SenderName:     m.SenderUsername,
			Content:        m.Content,
			CreatedAt:      parseWhen(m.CreatedAt),
		})
	}
	c.thread.Reset(history)
	c.observeTail()

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	events, unsub := c.bus.Subscribe("rt.", 64)

	c.mu.Lock()
	c.cancel = cancel
	c.unsub = unsub
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case <-loopCtx.Done():
				return
			case evt := <-events:
				c.handleEvent(evt)
			}
		}
	}()
	return nil
}

func (c *Controller) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case bus.KindRealtimeMessage:
		me, ok := evt.Payload.(*realtime.MessageEvent)
		if !ok || me.ConversationID != c.conversationID {
			return
		}
		m := Message{
			ID:             me.ID,
			ConversationID: me.ConversationID,
			SenderID:       me.SenderID,
			SenderName:     me.SenderUsername,
			Content:        me.Content,
			CreatedAt:      parseWhen(me.CreatedAt),
		}
		if c.thread.RemoteDeliver(m) {
			c.publish(bus.KindMessageAppended, TimelineUpdate{ConversationID: c.conversationID, Message: m})
			c.observeTail()
		}
	case bus.KindRealtimePresence:
		snap, ok := evt.Payload.(*realtime.PresenceSnapshot)
		if !ok || snap.ConversationID != c.conversationID {
			return
		}
		c.agg.Rebuild(snap)
		c.publish(bus.KindTypingChanged, TypingUpdate{ConversationID: c.conversationID, Names: c.agg.Names()})
	}
}

// Send runs one optimistic send. Exactly one send may be in flight per
// conversation; concurrent calls get ErrSendInFlight. On failure the
// provisional entry is rolled back and its content returned so the
// caller can restore the compose box.
func (c *Controller) Send(ctx context.Context, content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyMessage
	}

	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		return "", ErrSendInFlight
	}
	c.sending = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.sending = false
		c.mu.Unlock()
	}()

	c.tracker.Stop()

	prov := c.thread.LocalSend(content, c.localUsername)
	c.publish(bus.KindMessageAppended, TimelineUpdate{ConversationID: c.conversationID, Message: prov})
	c.observeTail()

	resp, err := c.api.SendMessage(ctx, c.conversationID, content)
	if err != nil {
		restored, _ := c.thread.Rollback(prov.ID)
		c.publish(bus.KindMessageRolledBack, RollbackUpdate{ConversationID: c.conversationID, Content: restored})
		return restored, fmt.Errorf("send message: %w", err)
	}

	for _, sm := range resp.ResponseData {
		confirmed := Message{
			ID:             sm.ID,
			ConversationID: c.conversationID,
			SenderID:       sm.SenderID,
			SenderName:     c.localUsername,
			Content:        sm.Content,
			CreatedAt:      parseWhen(sm.CreatedAt),
		}
		if c.guard != nil {
			c.guard.Add(sm.ID)
		}
		if c.thread.ServerConfirm(confirmed) {
			c.publish(bus.KindMessageConfirmed, TimelineUpdate{ConversationID: c.conversationID, Message: confirmed})
		}
		if err := c.transport.BroadcastMessage(&realtime.MessageEvent{
			ConversationID: c.conversationID,
			ID:             sm.ID,
			SenderID:       sm.SenderID,
			SenderUsername: c.localUsername,
			Content:        sm.Content,
			CreatedAt:      sm.CreatedAt,
		}); err != nil {
			c.logger.Warn("broadcast failed", zap.String("conversation_id", c.conversationID), zap.Error(err))
		}
	}
	c.observeTail()
	return "", nil
}

// OnInput records a qualifying compose-box keystroke.
func (c *Controller) OnInput() { c.tracker.Start() }

// OnBlur reports the compose box losing focus.
func (c *Controller) OnBlur() { c.tracker.Stop() }

// Messages returns a copy of the timeline.
func (c *Controller) Messages() []Message { return c.thread.Messages() }

// TypingLine renders the typing indicator for the conversation.
func (c *Controller) TypingLine() string {
	return presence.FormatTyping(c.agg.Names())
}

// ConversationID returns the conversation this controller serves.
func (c *Controller) ConversationID() string { return c.conversationID }

// Close stops typing, detaches from the bus and releases the realtime
// channel. Idempotent.
func (c *Controller) Close() {
	c.tracker.Close()

	c.mu.Lock()
	cancel := c.cancel
	unsub := c.unsub
	done := c.done
	c.cancel = nil
	c.unsub = nil
	c.done = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if unsub != nil {
		unsub()
	}
	if done != nil {
		<-done
	}
	c.transport.Close()
}

func (c *Controller) observeTail() {
	last, ok := c.thread.Last()
	c.notifier.Observe(c.conversationID, last, ok)
}

func (c *Controller) publish(kind string, payload any) {
	c.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
}

// parseWhen decodes a server timestamp, zero on failure.
func parseWhen(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
