package chat

import (
	"sync"
	"time"
)

// Thread holds the ordered message timeline of one conversation and
// reconciles the three sources that feed it: optimistic local sends,
// HTTP confirmations and realtime deliveries. All entries are unique
// by id; confirmation replaces a provisional entry in place so the
// message never jumps position.
type Thread struct {
	conversationID string
	localUserID    string

	mu       sync.Mutex
	messages []Message
	ids      map[string]struct{}
}

// NewThread creates an empty timeline for a conversation.
func NewThread(conversationID, localUserID string) *Thread {
	return &Thread{
		conversationID: conversationID,
		localUserID:    localUserID,
		ids:            make(map[string]struct{}),
	}
}

// Reset replaces the timeline with a server history fetch, dropping
// duplicate ids while keeping the first occurrence.
func (t *Thread) Reset(msgs []Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.messages = t.messages[:0]
	t.ids = make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		if _, dup := t.ids[m.ID]; dup {
			continue
		}
		t.messages = append(t.messages, m)
		t.ids[m.ID] = struct{}{}
	}
}

// LocalSend appends an optimistic entry for content and returns it.
// The entry carries a fresh provisional id until ServerConfirm or
// Rollback resolves it.
func (t *Thread) LocalSend(content, senderName string) Message {
	m := Message{
		ID:             newProvisionalID(),
		ConversationID: t.conversationID,
		SenderID:       t.localUserID,
		SenderName:     senderName,
		Content:        content,
		CreatedAt:      time.Now(),
	}

	t.mu.Lock()
	t.messages = append(t.messages, m)
	t.ids[m.ID] = struct{}{}
	t.mu.Unlock()
	return m
}

// ServerConfirm resolves a confirmed message against the timeline:
// the oldest provisional entry with equal content is replaced in
// place. Without such an entry the message is appended, unless its id
// is already present. Returns whether the timeline changed.
func (t *Thread) ServerConfirm(confirmed Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, dup := t.ids[confirmed.ID]; dup {
		return false
	}
	for i, m := range t.messages {
		if IsProvisional(m.ID) && m.Content == confirmed.Content {
			delete(t.ids, m.ID)
			t.messages[i] = confirmed
			t.ids[confirmed.ID] = struct{}{}
			return true
		}
	}
	t.messages = append(t.messages, confirmed)
	t.ids[confirmed.ID] = struct{}{}
	return true
}

// RemoteDeliver applies a realtime delivery. Messages already present
// by id are dropped. An echo of an own send resolves the matching
// provisional entry exactly like ServerConfirm; own messages from
// another device append normally. Returns whether the timeline
// changed.
func (t *Thread) RemoteDeliver(m Message) bool {
	if m.SenderID == t.localUserID {
		return t.ServerConfirm(m)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, dup := t.ids[m.ID]; dup {
		return false
	}
	t.messages = append(t.messages, m)
	t.ids[m.ID] = struct{}{}
	return true
}

// Rollback removes a provisional entry after a failed send and hands
// back its content so the caller can restore the compose box.
func (t *Thread) Rollback(provisionalID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.ids[provisionalID]; !ok {
		return "", false
	}
	for i, m := range t.messages {
		if m.ID == provisionalID {
			t.messages = append(t.messages[:i], t.messages[i+1:]...)
			delete(t.ids, provisionalID)
			return m.Content, true
		}
	}
	return "", false
}

// Messages returns a copy of the timeline.
func (t *Thread) Messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Last returns the newest entry, if any.
func (t *Thread) Last() (Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}

// Len returns the number of entries.
func (t *Thread) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}
