// Package api wraps the chat service's REST API. It owns the bearer
// token lifecycle: tokens live in memory backed by a durable store,
// any 401 triggers exactly one silent refresh shared by all concurrent
// callers, and the failing call is retried once with the new token.
// In-flight idempotent reads are coalesced by method+URL; writes never are.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const defaultTimeout = 30 * time.Second

// ErrSessionExpired is returned when a 401 could not be recovered by a
// token refresh. All local auth state has been cleared by then.
var ErrSessionExpired = errors.New("session expired")

// APIError is a non-2xx response decoded from the server's error body.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return e.Detail
}

// TokenStore is the durable backing slot for the access token.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// Client is the HTTP API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	tokens     TokenStore

	mu    sync.RWMutex
	token string

	refresh singleflight.Group
	reads   singleflight.Group

	onExpired func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client. A cookie jar is
// attached if the given client has none, since the refresh endpoint is
// cookie-authenticated.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithOnSessionExpired registers a callback fired after a failed
// refresh has cleared local auth state.
func WithOnSessionExpired(fn func()) Option {
	return func(c *Client) { c.onExpired = fn }
}

// NewClient creates a client for the service at baseURL. Any token
// already in the store is loaded into memory.
func NewClient(baseURL string, tokens TokenStore, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  zap.NewNop(),
		tokens:  tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}

	token, err := tokens.Load()
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	c.token = token
	return c, nil
}

// Token returns the in-memory access token, or empty if logged out.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// LoggedIn reports whether an access token is present.
func (c *Client) LoggedIn() bool {
	return c.Token() != ""
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	if err := c.tokens.Save(token); err != nil {
		c.logger.Warn("failed to persist token", zap.Error(err))
	}
}

func (c *Client) clearToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	if err := c.tokens.Clear(); err != nil {
		c.logger.Warn("failed to clear token", zap.Error(err))
	}
}

// do performs a request. GET requests are coalesced with identical
// in-flight GETs; all waiters observe the same outcome.
func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	if method == http.MethodGet {
		v, err, _ := c.reads.Do(method+" "+path, func() (any, error) {
			return c.roundTrip(ctx, method, path, body)
		})
		if err != nil {
			return nil, err
		}
		return v.([]byte), nil
	}
	return c.roundTrip(ctx, method, path, body)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		payload = b
	}

	resp, err := c.send(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		if err := c.refreshAccessToken(ctx); err != nil {
			c.expireSession()
			return nil, ErrSessionExpired
		}
		resp, err = c.send(ctx, method, path, payload)
		if err != nil {
			return nil, err
		}
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, parseError(resp)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte) (*http.Response, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// refreshAccessToken performs the cookie-backed silent refresh.
// Concurrent callers share a single in-flight refresh and observe the
// same outcome.
func (c *Client) refreshAccessToken(ctx context.Context) error {
	_, err, _ := c.refresh.Do("refresh", func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/access", nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("refresh request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("refresh rejected: %s", resp.Status)
		}
		var out accessTokenResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("decode refresh response: %w", err)
		}
		c.setToken(out.AccessToken)
		c.logger.Info("access token refreshed")
		return nil, nil
	})
	return err
}

func (c *Client) expireSession() {
	c.logger.Warn("session expired, clearing auth state")
	c.clearToken()
	if c.onExpired != nil {
		c.onExpired()
	}
}

func parseError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Detail: resp.Status}

	data, err := io.ReadAll(resp.Body)
	if err != nil || len(data) == 0 {
		return apiErr
	}

	// The server reports either {"detail": "..."} or a validation
	// list {"detail": [{"msg": "..."}]}.
	var single struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(data, &single) == nil && single.Detail != "" {
		apiErr.Detail = single.Detail
		return apiErr
	}
	var list struct {
		Detail []struct {
			Msg string `json:"msg"`
		} `json:"detail"`
	}
	if json.Unmarshal(data, &list) == nil && len(list.Detail) > 0 {
		msgs := make([]string, 0, len(list.Detail))
		for _, d := range list.Detail {
			msgs = append(msgs, d.Msg)
		}
		apiErr.Detail = strings.Join(msgs, ", ")
	}
	return apiErr
}

func decodeJSON[T any](data []byte) (*T, error) {
	var result T
	if len(data) == 0 {
		return &result, nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &result, nil
}
