package presence

import (
	"strings"
	"sync"

	"github.com/cove-chat/cove/internal/realtime"
)

// Aggregator folds remote presence snapshots into the set of users
// currently typing in one conversation. Each snapshot replaces the
// previous state wholesale. Presence entries are keyed per device; a
// user with several devices resolves to whichever entry appears last
// in the snapshot's wire order.
type Aggregator struct {
	localUserID string

	mu    sync.Mutex
	order []string
	state map[string]realtime.PresenceEntry
}

// NewAggregator creates an aggregator that ignores entries belonging
// to localUserID.
func NewAggregator(localUserID string) *Aggregator {
	return &Aggregator{
		localUserID: localUserID,
		state:       make(map[string]realtime.PresenceEntry),
	}
}

// Rebuild replaces the aggregate state from a snapshot. Entries for
// the local user are skipped; per remote user, later entries in wire
// order win.
func (a *Aggregator) Rebuild(snap *realtime.PresenceSnapshot) {
	order := make([]string, 0, len(snap.Keys))
	state := make(map[string]realtime.PresenceEntry, len(snap.Keys))

	for _, key := range snap.Keys {
		userID := realtime.UserOf(key)
		if userID == a.localUserID {
			continue
		}
		if _, seen := state[userID]; !seen {
			order = append(order, userID)
		}
		state[userID] = snap.Entries[key]
	}

	a.mu.Lock()
	a.order = order
	a.state = state
	a.mu.Unlock()
}

// Names returns the display names of remote users currently typing,
// in the order each user first appeared in the latest snapshot. Users
// without a username fall back to their id.
func (a *Aggregator) Names() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	var names []string
	for _, userID := range a.order {
		entry := a.state[userID]
		if !entry.Typing {
			continue
		}
		name := entry.Username
		if name == "" {
			name = userID
		}
		names = append(names, name)
	}
	return names
}

// Reset clears the aggregate state, for use when leaving a conversation.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	a.order = nil
	a.state = make(map[string]realtime.PresenceEntry)
	a.mu.Unlock()
}

// FormatTyping renders the typing indicator line for a set of names.
// Empty input yields the empty string.
func FormatTyping(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0] + " is typing..."
	default:
		return strings.Join(names, ", ") + " are typing..."
	}
}
