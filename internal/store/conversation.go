package store

import "time"

// UpsertConversation inserts or updates a conversation (idempotent on id).
func (db *DB) UpsertConversation(c *Conversation) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO conversations (id, peer_id, peer_username, last_message_at, last_message_preview, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			peer_id = CASE WHEN excluded.peer_id != '' THEN excluded.peer_id ELSE conversations.peer_id END,
			peer_username = CASE WHEN excluded.peer_username != '' THEN excluded.peer_username ELSE conversations.peer_username END,
			last_message_at = MAX(conversations.last_message_at, excluded.last_message_at),
			last_message_preview = CASE
				WHEN excluded.last_message_at >= conversations.last_message_at THEN excluded.last_message_preview
				ELSE conversations.last_message_preview
			END`,
		c.ID, c.PeerID, c.PeerUsername, c.LastMessageAt, c.LastMessagePreview, now)
	return err
}

// ListConversations returns cached conversations ordered by recency.
func (db *DB) ListConversations() ([]Conversation, error) {
	rows, err := db.Query(`
		SELECT id, peer_id, peer_username, last_message_at, last_message_preview
		FROM conversations
		ORDER BY last_message_at DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var convs []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.PeerID, &c.PeerUsername, &c.LastMessageAt, &c.LastMessagePreview); err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// TouchConversation bumps a conversation's recency and preview after a
// new message, creating the row if the conversation was never cached.
func (db *DB) TouchConversation(id string, at int64, preview string) error {
	return db.UpsertConversation(&Conversation{
		ID:                 id,
		LastMessageAt:      at,
		LastMessagePreview: preview,
	})
}
