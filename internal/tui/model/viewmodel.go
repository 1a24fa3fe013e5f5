// Package model holds the TUI's view state, loaded from the HTTP
// client and the local cache.
package model

import (
	"context"
	"sync"
	"time"

	"github.com/cove-chat/cove/internal/api"
	"github.com/cove-chat/cove/internal/chat"
	"github.com/cove-chat/cove/internal/store"
)

// ConversationItem is one row of the conversation list: the API
// conversation decorated with cached peer info and recency.
type ConversationItem struct {
	ID                 string
	PeerID             string
	PeerUsername       string
	LastMessageAt      int64
	LastMessagePreview string
}

// ViewModel caches account and conversation state and mediates between
// the views, the HTTP client and the local store.
type ViewModel struct {
	client *api.Client
	db     *store.DB
	Flash  Flash

	mu            sync.RWMutex
	me            *api.Me
	userID        string
	conversations []ConversationItem
	searchResults []api.SearchUser
}

// NewViewModel creates a view model backed by client and cache.
func NewViewModel(client *api.Client, db *store.DB) *ViewModel {
	return &ViewModel{client: client, db: db}
}

// LoadMe fetches the aggregate account view.
func (vm *ViewModel) LoadMe(ctx context.Context) error {
	me, err := vm.client.Me(ctx)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.me = me
	vm.userID = me.Auth.ID
	vm.mu.Unlock()
	return nil
}

// Me returns the cached account view, nil before the first LoadMe.
func (vm *ViewModel) Me() *api.Me {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.me
}

// UserID returns the logged-in user's id.
func (vm *ViewModel) UserID() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.userID
}

// Username returns the logged-in user's name.
func (vm *ViewModel) Username() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if vm.me == nil {
		return ""
	}
	return vm.me.Profile.Username
}

// LoadConversations fetches the conversation list and decorates it
// with cached peer names and recency. Peers never seen before are
// resolved through the participant endpoint and written back to the
// cache.
func (vm *ViewModel) LoadConversations(ctx context.Context) error {
	resp, err := vm.client.Conversations(ctx)
	if err != nil {
		return err
	}

	cached := make(map[string]store.Conversation)
	if rows, err := vm.db.ListConversations(); err == nil {
		for _, c := range rows {
			cached[c.ID] = c
		}
	}

	items := make([]ConversationItem, 0, len(resp.Conversations))
	for _, conv := range resp.Conversations {
		item := ConversationItem{ID: conv.ID}
		if c, ok := cached[conv.ID]; ok {
			item.PeerID = c.PeerID
			item.PeerUsername = c.PeerUsername
			item.LastMessageAt = c.LastMessageAt
			item.LastMessagePreview = c.LastMessagePreview
		}
		if item.PeerUsername == "" {
			if info, err := vm.client.ParticipantInfo(ctx, conv.ID); err == nil {
				item.PeerUsername = info.ParticipantUsername
			}
		}
		_ = vm.db.UpsertConversation(&store.Conversation{
			ID:                 item.ID,
			PeerID:             item.PeerID,
			PeerUsername:       item.PeerUsername,
			LastMessageAt:      item.LastMessageAt,
			LastMessagePreview: item.LastMessagePreview,
		})
		items = append(items, item)
	}

	// Newest activity first.
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].LastMessageAt > items[j-1].LastMessageAt; j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}

	vm.mu.Lock()
	vm.conversations = items
	vm.mu.Unlock()
	return nil
}

// Conversations returns a snapshot of the conversation list.
func (vm *ViewModel) Conversations() []ConversationItem {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	out := make([]ConversationItem, len(vm.conversations))
	copy(out, vm.conversations)
	return out
}

// Search runs a username search; queries under the minimum length
// resolve to no results without a request.
func (vm *ViewModel) Search(ctx context.Context, query string) error {
	resp, err := vm.client.SearchUsers(ctx, query)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.searchResults = resp.Usernames
	vm.mu.Unlock()
	return nil
}

// SearchResults returns a snapshot of the latest search results.
func (vm *ViewModel) SearchResults() []api.SearchUser {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	out := make([]api.SearchUser, len(vm.searchResults))
	copy(out, vm.searchResults)
	return out
}

// OpenDirect resolves (or creates) the direct conversation with a
// friend and returns its id.
func (vm *ViewModel) OpenDirect(ctx context.Context, friendID string) (string, error) {
	resp, err := vm.client.GetOrCreateDirectConversation(ctx, friendID)
	if err != nil {
		return "", err
	}
	return resp.ConversationID, nil
}

// CachedMessages returns locally cached history for instant rendering
// while the fresh load is in flight, oldest first.
func (vm *ViewModel) CachedMessages(conversationID string) []chat.Message {
	rows, err := vm.db.ListMessages(conversationID, 0, 100)
	if err != nil {
		return nil
	}
	msgs := make([]chat.Message, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		m := rows[i]
		msgs = append(msgs, chat.Message{
			ID:             m.MsgID,
			ConversationID: m.ConversationID,
			SenderID:       m.SenderID,
			SenderName:     m.SenderName,
			Content:        m.Body,
			CreatedAt:      time.UnixMilli(m.Timestamp),
		})
	}
	return msgs
}
