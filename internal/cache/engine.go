// Package cache persists confirmed timeline activity into the local
// store. It subscribes to "chat." events on the bus and processes
// them; provisional entries never reach the store.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cove-chat/cove/internal/bus"
	"github.com/cove-chat/cove/internal/chat"
	"github.com/cove-chat/cove/internal/store"
)

// Engine ingests confirmed and delivered messages into the store,
// idempotently per (conversation, message id).
type Engine struct {
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc

	mu          sync.RWMutex
	localUserID string
}

// NewEngine creates a cache engine. The local user id arrives later
// via the session.authenticated bus event.
func NewEngine(db *store.DB, b *bus.Bus, localUserID string, logger *zap.Logger) *Engine {
	return &Engine{
		db:          db,
		bus:         b,
		localUserID: localUserID,
		logger:      logger,
	}
}

// Start subscribes to timeline and session events on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	ch, unsub := e.bus.Subscribe("", 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				e.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Engine) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case bus.KindSessionAuthenticated:
		if id, ok := evt.Payload.(string); ok {
			e.mu.Lock()
			e.localUserID = id
			e.mu.Unlock()
		}
	case bus.KindMessageAppended, bus.KindMessageConfirmed:
		upd, ok := evt.Payload.(chat.TimelineUpdate)
		if !ok {
			return
		}
		if chat.IsProvisional(upd.Message.ID) {
			return
		}
		if err := e.Ingest(upd.Message); err != nil {
			e.logger.Error("failed to ingest message", zap.Error(err), zap.String("msg_id", upd.Message.ID))
		}
	}
}

// Ingest writes one confirmed message and bumps its conversation's
// recency. Idempotent.
func (e *Engine) Ingest(m chat.Message) error {
	ts := m.CreatedAt.UnixMilli()
	if m.CreatedAt.IsZero() {
		ts = time.Now().UnixMilli()
	}

	if err := e.db.TouchConversation(m.ConversationID, ts, truncate(m.Content, 100)); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}

	e.mu.RLock()
	localUserID := e.localUserID
	e.mu.RUnlock()

	if err := e.db.UpsertMessage(&store.Message{
		ConversationID: m.ConversationID,
		MsgID:          m.ID,
		SenderID:       m.SenderID,
		SenderName:     m.SenderName,
		Body:           m.Content,
		FromMe:         m.SenderID == localUserID,
		Timestamp:      ts,
	}); err != nil {
		return fmt.Errorf("upsert message: %w", err)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
