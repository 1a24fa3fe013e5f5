package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/cove-chat/cove/internal/bus"
)

// State is the connection state of the realtime transport.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

const (
	heartbeatInterval = 25 * time.Second
	writeTimeout      = 10 * time.Second
)

// Conn multiplexes all per-conversation channels over one websocket.
// Inbound frames are routed to the owning Channel; a closed channel
// drops frames instead of forwarding them.
type Conn struct {
	url      string
	token    string
	deviceID string
	bus      *bus.Bus
	logger   *zap.Logger
	recon    *reconnector

	onStateChange func(State)

	mu          sync.Mutex
	ws          *websocket.Conn
	state       State
	channels    map[string]*Channel
	cancel      context.CancelFunc
	intentional bool
}

// NewConn creates a realtime connection for the given endpoint and
// access token. deviceID becomes part of this process's presence key.
func NewConn(url, token, deviceID string, b *bus.Bus, logger *zap.Logger) *Conn {
	return &Conn{
		url:      url,
		token:    token,
		deviceID: deviceID,
		bus:      b,
		logger:   logger,
		recon:    newReconnector(),
		state:    StateDisconnected,
		channels: make(map[string]*Channel),
	}
}

// OnStateChange registers a callback for connection state transitions.
// Must be called before Connect.
func (c *Conn) OnStateChange(fn func(State)) {
	c.onStateChange = fn
}

// State returns the current connection state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Conn) setState(s State) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	fn := c.onStateChange
	c.mu.Unlock()
	if changed && fn != nil {
		fn(s)
	}
}

// Connect establishes the websocket connection and starts the read and
// heartbeat loops. Returns nil immediately if already connected.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateConnected || c.state == StateConnecting {
		c.mu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.intentional = false
	c.mu.Unlock()

	ws, err := c.dial(ctx)
	if err != nil {
		c.setState(StateDisconnected)
		return err
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.mu.Lock()
	c.ws = ws
	c.cancel = cancel
	c.mu.Unlock()
	c.recon.markConnected()
	c.setState(StateConnected)

	go c.readLoop(loopCtx)
	go c.heartbeatLoop(loopCtx)

	return nil
}

func (c *Conn) dial(ctx context.Context) (*websocket.Conn, error) {
	wsURL := strings.Replace(c.url, "https://", "wss://", 1)
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL += "/socket?token=" + c.token

	ws, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	ws.SetReadLimit(1 << 20)
	return ws, nil
}

// Close tears the connection down. All channels stop receiving frames.
func (c *Conn) Close() error {
	c.mu.Lock()
	c.intentional = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	ws := c.ws
	c.ws = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	if ws != nil {
		return ws.Close(websocket.StatusNormalClosure, "client close")
	}
	return nil
}

// Join opens the broadcast and presence channels for a conversation.
// Only one live channel per conversation exists at a time; joining an
// already-joined conversation returns the existing channel.
func (c *Conn) Join(ctx context.Context, conversationID string) (*Channel, error) {
	c.mu.Lock()
	if ch, ok := c.channels[conversationID]; ok {
		c.mu.Unlock()
		return ch, nil
	}
	ch := newChannel(conversationID, c.deviceID, c, c.bus, c.logger)
	c.channels[conversationID] = ch
	c.mu.Unlock()

	for _, topic := range []string{MessageTopic(conversationID), TypingTopic(conversationID)} {
		if err := c.send(ctx, Envelope{Topic: topic, Event: EventSubscribe, Ref: uuid.New().String()}); err != nil {
			c.removeChannel(conversationID)
			return nil, fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return ch, nil
}

// leave is called by Channel.Close to unsubscribe both topics.
func (c *Conn) leave(conversationID string) {
	for _, topic := range []string{MessageTopic(conversationID), TypingTopic(conversationID)} {
		if err := c.send(context.Background(), Envelope{Topic: topic, Event: EventUnsubscribe}); err != nil {
			c.logger.Warn("unsubscribe failed", zap.String("topic", topic), zap.Error(err))
		}
	}
	c.removeChannel(conversationID)
}

func (c *Conn) removeChannel(conversationID string) {
	c.mu.Lock()
	delete(c.channels, conversationID)
	c.mu.Unlock()
}

func (c *Conn) send(ctx context.Context, env Envelope) error {
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return fmt.Errorf("not connected")
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}

func (c *Conn) readLoop(ctx context.Context) {
	for {
		c.mu.Lock()
		ws := c.ws
		c.mu.Unlock()
		if ws == nil {
			return
		}

		_, data, err := ws.Read(ctx)
		if err != nil {
			c.mu.Lock()
			intentional := c.intentional
			c.mu.Unlock()
			if intentional || ctx.Err() != nil {
				return
			}
			c.logger.Warn("realtime read failed", zap.Error(err))
			if !c.reconnect(ctx) {
				c.setState(StateDisconnected)
				return
			}
			continue
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.Warn("malformed realtime frame", zap.Error(err))
			continue
		}
		c.route(env)
	}
}

func (c *Conn) route(env Envelope) {
	switch env.Event {
	case EventAck:
		// Subscription acknowledgements need no action.
	case EventError:
		c.logger.Warn("realtime server error", zap.String("topic", env.Topic), zap.ByteString("payload", env.Payload))
	case EventMessage, EventPresenceState:
		conversationID := ConversationOf(env.Topic)
		c.mu.Lock()
		ch := c.channels[conversationID]
		c.mu.Unlock()
		if ch == nil {
			return
		}
		ch.handleFrame(env)
	default:
		c.logger.Debug("unhandled realtime event", zap.String("event", env.Event))
	}
}

// reconnect re-establishes the connection with backoff and restores
// all channel subscriptions. Returns false when attempts are exhausted
// or the context is done.
func (c *Conn) reconnect(ctx context.Context) bool {
	c.setState(StateReconnecting)

	for c.recon.shouldReconnect() {
		delay := c.recon.nextDelay()
		c.logger.Info("reconnecting", zap.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}

		ws, err := c.dial(ctx)
		if err != nil {
			c.logger.Warn("reconnect dial failed", zap.Error(err))
			continue
		}

		c.mu.Lock()
		c.ws = ws
		ids := make([]string, 0, len(c.channels))
		for id := range c.channels {
			ids = append(ids, id)
		}
		c.mu.Unlock()

		for _, id := range ids {
			for _, topic := range []string{MessageTopic(id), TypingTopic(id)} {
				if err := c.send(ctx, Envelope{Topic: topic, Event: EventSubscribe, Ref: uuid.New().String()}); err != nil {
					c.logger.Warn("resubscribe failed", zap.String("topic", topic), zap.Error(err))
				}
			}
		}

		c.recon.markConnected()
		c.setState(StateConnected)
		return true
	}
	return false
}

func (c *Conn) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if c.State() != StateConnected {
				continue
			}
			if err := c.send(ctx, Envelope{Event: EventHeartbeat}); err != nil {
				c.logger.Debug("heartbeat failed", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}
