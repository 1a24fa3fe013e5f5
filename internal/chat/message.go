// Package chat implements the message reconciliation engine: the
// per-conversation message timeline with optimistic local sends,
// server confirmation, remote delivery and rollback, plus the guard
// and notifier built on top of it.
package chat

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Message is one entry in a conversation timeline.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	SenderName     string
	Content        string
	CreatedAt      time.Time
}

const provisionalPrefix = "temp-"

var provisionalSeq atomic.Int64

// IsProvisional reports whether id belongs to an optimistic local
// entry that has not been confirmed by the server yet.
func IsProvisional(id string) bool {
	return strings.HasPrefix(id, provisionalPrefix)
}

// newProvisionalID returns a fresh provisional id. The process-wide
// sequence keeps ids distinct even when sends land on the same clock
// tick.
func newProvisionalID() string {
	return fmt.Sprintf("%s%d-%d", provisionalPrefix, time.Now().UnixMilli(), provisionalSeq.Add(1))
}
