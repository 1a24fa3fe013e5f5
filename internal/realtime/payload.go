// Package realtime speaks the chat service's websocket pub/sub
// protocol: one broadcast topic and one presence topic per
// conversation, multiplexed over a single connection. Inbound frames
// are validated here, at the boundary, so the reconciliation and
// presence engines only ever see well-formed payloads.
package realtime

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Envelope is the wire format for every frame in both directions.
type Envelope struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Ref     string          `json:"ref,omitempty"`
}

// Client-to-server events.
const (
	EventSubscribe   = "subscribe"
	EventUnsubscribe = "unsubscribe"
	EventBroadcast   = "broadcast"
	EventTrack       = "track"
	EventHeartbeat   = "heartbeat"
)

// Server-to-client events.
const (
	EventAck           = "ack"
	EventMessage       = "message"
	EventPresenceState = "presence_state"
	EventError         = "error"
)

// MessageTopic returns the broadcast topic for a conversation.
func MessageTopic(conversationID string) string {
	return "messages:" + conversationID
}

// TypingTopic returns the presence topic for a conversation.
func TypingTopic(conversationID string) string {
	return "typing:" + conversationID
}

// ConversationOf extracts the conversation id from either topic form.
// Returns empty string for unrecognized topics.
func ConversationOf(topic string) string {
	if id, ok := strings.CutPrefix(topic, "messages:"); ok {
		return id
	}
	if id, ok := strings.CutPrefix(topic, "typing:"); ok {
		return id
	}
	return ""
}

// MessageEvent is a confirmed message delivered over the broadcast topic.
type MessageEvent struct {
	ConversationID string `json:"conversation_id"`
	ID             string `json:"id"`
	SenderID       string `json:"sender_id"`
	SenderUsername string `json:"sender_username"`
	Content        string `json:"content"`
	CreatedAt      string `json:"created_at"`
}

// ParseMessageEvent decodes and validates a broadcast message payload.
func ParseMessageEvent(raw json.RawMessage) (*MessageEvent, error) {
	var evt MessageEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		return nil, fmt.Errorf("decode message event: %w", err)
	}
	if evt.ID == "" {
		return nil, fmt.Errorf("message event missing id")
	}
	if evt.ConversationID == "" {
		return nil, fmt.Errorf("message event missing conversation_id")
	}
	if evt.SenderID == "" {
		return nil, fmt.Errorf("message event missing sender_id")
	}
	return &evt, nil
}

// PresenceEntry is one device's tracked presence payload.
type PresenceEntry struct {
	Typing   bool   `json:"typing"`
	Username string `json:"username"`
	UserID   string `json:"user_id"`
}

// TrackPayload is the outbound presence update, keyed by userID::deviceID.
type TrackPayload struct {
	Key string `json:"key"`
	PresenceEntry
}

// PresenceSnapshot is the full presence state of a typing topic,
// keyed by userID::deviceID. Snapshots always replace prior state
// wholesale; there is no partial patching.
type PresenceSnapshot struct {
	ConversationID string
	Keys           []string // wire order, drives deterministic aggregation
	Entries        map[string]PresenceEntry
}

// ParsePresenceSnapshot decodes a presence_state payload for the given
// topic. Entries whose key does not carry a user id are dropped.
func ParsePresenceSnapshot(topic string, raw json.RawMessage) (*PresenceSnapshot, error) {
	conversationID := ConversationOf(topic)
	if conversationID == "" {
		return nil, fmt.Errorf("presence state on unrecognized topic %q", topic)
	}

	// Decode twice: once for values, once to recover key order, which
	// json maps discard. Order matters for last-writer-wins aggregation.
	var entries map[string]PresenceEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode presence state: %w", err)
	}
	keys, err := orderedKeys(raw)
	if err != nil {
		return nil, err
	}

	snap := &PresenceSnapshot{
		ConversationID: conversationID,
		Entries:        make(map[string]PresenceEntry, len(entries)),
	}
	for _, key := range keys {
		userID, _, ok := strings.Cut(key, "::")
		if !ok || userID == "" {
			continue
		}
		snap.Keys = append(snap.Keys, key)
		snap.Entries[key] = entries[key]
	}
	return snap, nil
}

// UserOf extracts the owning user id from a userID::deviceID presence key.
func UserOf(key string) string {
	userID, _, _ := strings.Cut(key, "::")
	return userID
}

func orderedKeys(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode presence keys: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("presence state is not an object")
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode presence keys: %w", err)
		}
		keys = append(keys, tok.(string))
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, fmt.Errorf("decode presence entry: %w", err)
		}
	}
	return keys, nil
}
