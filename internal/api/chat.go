package api

import (
	"context"
	"net/http"
	"net/url"
)

// Conversations lists the account's conversations.
func (c *Client) Conversations(ctx context.Context) (*ConversationsResponse, error) {
	data, err := c.do(ctx, http.MethodGet, "/chat/conversations", nil)
	if err != nil {
		return nil, err
	}
	return decodeJSON[ConversationsResponse](data)
}

// GetOrCreateDirectConversation returns the direct conversation with
// receiverID, creating it if absent.
func (c *Client) GetOrCreateDirectConversation(ctx context.Context, receiverID string) (*DirectConversationResponse, error) {
	body := map[string]string{"receiver_id": receiverID}
	data, err := c.do(ctx, http.MethodPost, "/chat/conversations/direct", body)
	if err != nil {
		return nil, err
	}
	return decodeJSON[DirectConversationResponse](data)
}

// Messages fetches the stored messages of a conversation.
func (c *Client) Messages(ctx context.Context, conversationID string) (*MessagesResponse, error) {
	data, err := c.do(ctx, http.MethodGet, "/chat/messages/"+url.PathEscape(conversationID), nil)
	if err != nil {
		return nil, err
	}
	return decodeJSON[MessagesResponse](data)
}

// SendMessage stores a message durably. The response echoes the
// server-assigned message id(s).
func (c *Client) SendMessage(ctx context.Context, conversationID, content string) (*SendMessageResponse, error) {
	body := map[string]string{"conversation_id": conversationID, "content": content}
	data, err := c.do(ctx, http.MethodPost, "/chat/messages", body)
	if err != nil {
		return nil, err
	}
	return decodeJSON[SendMessageResponse](data)
}

// ParticipantInfo resolves the other participant of a direct
// conversation and whether the friendship still holds.
func (c *Client) ParticipantInfo(ctx context.Context, conversationID string) (*ParticipantInfo, error) {
	data, err := c.do(ctx, http.MethodGet, "/chat/conversation/participants/"+url.PathEscape(conversationID), nil)
	if err != nil {
		return nil, err
	}
	return decodeJSON[ParticipantInfo](data)
}
