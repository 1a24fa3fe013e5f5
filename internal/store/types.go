package store

// Conversation represents a cached conversation.
type Conversation struct {
	ID                 string
	PeerID             string
	PeerUsername       string
	LastMessageAt      int64
	LastMessagePreview string
}

// Message represents a cached confirmed message.
type Message struct {
	ID             int64
	ConversationID string
	MsgID          string
	SenderID       string
	SenderName     string
	Body           string
	FromMe         bool
	Timestamp      int64
}
