package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cove-chat/cove/internal/bus"
)

// ErrChannelClosed is returned by operations on a closed channel.
var ErrChannelClosed = errors.New("realtime channel closed")

// Channel is the per-conversation handle over the broadcast and
// presence topics. It owns no reconciliation state: validated inbound
// payloads are published on the bus for the engines to consume.
//
// Close releases both topics and nils the internal references, so any
// frame still in flight when the conversation view goes away is
// dropped rather than delivered late.
type Channel struct {
	conversationID string
	deviceID       string
	logger         *zap.Logger

	mu     sync.Mutex
	closed bool
	conn   *Conn
	bus    *bus.Bus
}

func newChannel(conversationID, deviceID string, conn *Conn, b *bus.Bus, logger *zap.Logger) *Channel {
	return &Channel{
		conversationID: conversationID,
		deviceID:       deviceID,
		conn:           conn,
		bus:            b,
		logger:         logger,
	}
}

// ConversationID returns the conversation this channel serves.
func (ch *Channel) ConversationID() string {
	return ch.conversationID
}

// handleFrame validates an inbound frame and publishes it on the bus.
// Frames arriving after Close are dropped.
func (ch *Channel) handleFrame(env Envelope) {
	ch.mu.Lock()
	b := ch.bus
	closed := ch.closed
	ch.mu.Unlock()
	if closed || b == nil {
		return
	}

	switch env.Event {
	case EventMessage:
		evt, err := ParseMessageEvent(env.Payload)
		if err != nil {
			ch.logger.Warn("dropping invalid message event", zap.Error(err))
			return
		}
		b.Publish(bus.Event{Kind: bus.KindRealtimeMessage, Timestamp: time.Now(), Payload: evt})
	case EventPresenceState:
		snap, err := ParsePresenceSnapshot(env.Topic, env.Payload)
		if err != nil {
			ch.logger.Warn("dropping invalid presence state", zap.Error(err))
			return
		}
		b.Publish(bus.Event{Kind: bus.KindRealtimePresence, Timestamp: time.Now(), Payload: snap})
	}
}

// Track publishes this device's typing state on the presence topic.
func (ch *Channel) Track(userID, username string, typing bool) error {
	ch.mu.Lock()
	conn := ch.conn
	closed := ch.closed
	ch.mu.Unlock()
	if closed || conn == nil {
		return ErrChannelClosed
	}

	payload, err := json.Marshal(TrackPayload{
		Key: userID + "::" + ch.deviceID,
		PresenceEntry: PresenceEntry{
			Typing:   typing,
			Username: username,
			UserID:   userID,
		},
	})
	if err != nil {
		return err
	}
	return conn.send(context.Background(), Envelope{
		Topic:   TypingTopic(ch.conversationID),
		Event:   EventTrack,
		Payload: payload,
	})
}

// BroadcastMessage fans a confirmed message out to the conversation's
// other subscribers.
func (ch *Channel) BroadcastMessage(evt *MessageEvent) error {
	ch.mu.Lock()
	conn := ch.conn
	closed := ch.closed
	ch.mu.Unlock()
	if closed || conn == nil {
		return ErrChannelClosed
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return conn.send(context.Background(), Envelope{
		Topic:   MessageTopic(ch.conversationID),
		Event:   EventBroadcast,
		Payload: payload,
	})
}

// Close unsubscribes both topics and detaches the channel. Idempotent;
// no frames are delivered after it returns.
func (ch *Channel) Close() {
	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return
	}
	ch.closed = true
	conn := ch.conn
	ch.conn = nil
	ch.bus = nil
	ch.mu.Unlock()

	if conn != nil {
		conn.leave(ch.conversationID)
	}
}
