package bus

import "time"

// Event kinds published on the bus, grouped by namespace prefix.
// Subscribers filter by prefix: "rt." for raw realtime traffic,
// "chat." for reconciled message-list changes, "session." for auth
// and connection state.
const (
	KindRealtimeMessage  = "rt.message"
	KindRealtimePresence = "rt.presence"

	KindMessageAppended   = "chat.message_appended"
	KindMessageConfirmed  = "chat.message_confirmed"
	KindMessageRolledBack = "chat.message_rolled_back"
	KindTypingChanged     = "chat.typing_changed"

	KindStatusChanged        = "session.status_changed"
	KindSessionAuthenticated = "session.authenticated"
	KindSessionExpired       = "session.expired"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
