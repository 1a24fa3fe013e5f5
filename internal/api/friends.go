package api

import (
	"context"
	"net/http"
	"net/url"
	"unicode/utf8"
)

// MinSearchLength is the shortest query that reaches the network.
const MinSearchLength = 3

// SearchUsers looks up users by username prefix. Queries shorter than
// MinSearchLength return an empty result without a network call.
func (c *Client) SearchUsers(ctx context.Context, query string) (*SearchResponse, error) {
	if utf8.RuneCountInString(query) < MinSearchLength {
		return &SearchResponse{}, nil
	}
	data, err := c.do(ctx, http.MethodGet, "/friends/search/"+url.PathEscape(query), nil)
	if err != nil {
		return nil, err
	}
	return decodeJSON[SearchResponse](data)
}

// SendFriendRequest sends a friend request by username.
func (c *Client) SendFriendRequest(ctx context.Context, receiverUsername string) (*FriendRequestResponse, error) {
	body := map[string]string{"receiver_username": receiverUsername}
	data, err := c.do(ctx, http.MethodPost, "/friends/request", body)
	if err != nil {
		return nil, err
	}
	return decodeJSON[FriendRequestResponse](data)
}

// AcceptFriendRequest accepts an incoming request from senderID.
func (c *Client) AcceptFriendRequest(ctx context.Context, senderID string) (*AcceptFriendRequestResponse, error) {
	body := map[string]string{"sender_id": senderID}
	data, err := c.do(ctx, http.MethodPost, "/friends/request/accept", body)
	if err != nil {
		return nil, err
	}
	return decodeJSON[AcceptFriendRequestResponse](data)
}

// DeclineFriendRequest declines an incoming request from senderID.
func (c *Client) DeclineFriendRequest(ctx context.Context, senderID string) (*DeclineFriendRequestResponse, error) {
	data, err := c.do(ctx, http.MethodDelete, "/friends/request/decline/"+url.PathEscape(senderID), nil)
	if err != nil {
		return nil, err
	}
	return decodeJSON[DeclineFriendRequestResponse](data)
}

// CancelFriendRequest withdraws an outgoing request to receiverID.
func (c *Client) CancelFriendRequest(ctx context.Context, receiverID string) (*CancelFriendRequestResponse, error) {
	data, err := c.do(ctx, http.MethodDelete, "/friends/request/cancel/"+url.PathEscape(receiverID), nil)
	if err != nil {
		return nil, err
	}
	return decodeJSON[CancelFriendRequestResponse](data)
}

// RemoveFriend ends a friendship.
func (c *Client) RemoveFriend(ctx context.Context, userID string) (*RemoveFriendResponse, error) {
	data, err := c.do(ctx, http.MethodDelete, "/friends/remove/"+url.PathEscape(userID), nil)
	if err != nil {
		return nil, err
	}
	return decodeJSON[RemoveFriendResponse](data)
}
