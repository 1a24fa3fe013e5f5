package chat

import "sync"

// Notifier watches the tail of a conversation timeline and fires a
// callback when a genuinely new inbound message lands there. A
// notification requires all of: the conversation had a previous last
// message, the last id changed, the sender is not the local user, the
// id is not a guarded recent send, and the entry is not provisional.
type Notifier struct {
	localUserID string
	guard       *Guard
	notify      func(Message)

	mu       sync.Mutex
	lastSeen map[string]string
}

// NewNotifier creates a notifier. notify may be nil, in which case
// observation still tracks last ids but never fires.
func NewNotifier(localUserID string, guard *Guard, notify func(Message)) *Notifier {
	return &Notifier{
		localUserID: localUserID,
		guard:       guard,
		notify:      notify,
		lastSeen:    make(map[string]string),
	}
}

// Observe inspects the current tail of a conversation and fires the
// callback if it qualifies as new inbound activity.
func (n *Notifier) Observe(conversationID string, last Message, hasLast bool) {
	if !hasLast {
		return
	}

	n.mu.Lock()
	prev, hadPrev := n.lastSeen[conversationID]
	n.lastSeen[conversationID] = last.ID
	n.mu.Unlock()

	if !hadPrev || prev == last.ID {
		return
	}
	if last.SenderID == n.localUserID {
		return
	}
	if IsProvisional(last.ID) {
		return
	}
	if n.guard != nil && n.guard.Contains(last.ID) {
		return
	}
	if n.notify != nil {
		n.notify(last)
	}
}
