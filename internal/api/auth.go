package api

import (
	"context"
	"net/http"
)

// Register creates a new account.
func (c *Client) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	data, err := c.do(ctx, http.MethodPost, "/auth/register", req)
	if err != nil {
		return nil, err
	}
	return decodeJSON[RegisterResponse](data)
}

// Login authenticates and stores the returned access token.
func (c *Client) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	data, err := c.do(ctx, http.MethodPost, "/auth/login", req)
	if err != nil {
		return nil, err
	}
	resp, err := decodeJSON[LoginResponse](data)
	if err != nil {
		return nil, err
	}
	c.setToken(resp.AccessToken)
	return resp, nil
}

// Logout invalidates the server session and clears local auth state.
// Local state is cleared even if the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/logout", nil)
	c.clearToken()
	return err
}

// Me fetches the authenticated account's identity, profile and friend graph.
func (c *Client) Me(ctx context.Context) (*Me, error) {
	data, err := c.do(ctx, http.MethodGet, "/auth/me", nil)
	if err != nil {
		return nil, err
	}
	return decodeJSON[Me](data)
}

// Refresh forces a token refresh via the cookie-backed endpoint.
func (c *Client) Refresh(ctx context.Context) error {
	return c.refreshAccessToken(ctx)
}
