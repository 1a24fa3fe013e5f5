package session

import (
	"os"
	"path/filepath"
	"strings"
)

// TokenStore persists a single access-token string for an account.
// The file mirrors the durable token slot a browser client would keep
// in local storage; a missing file means "not logged in".
type TokenStore struct {
	path string
}

// NewTokenStore creates a token store for the given account.
func NewTokenStore(account string) *TokenStore {
	return &TokenStore{path: TokenPath(account)}
}

// NewTokenStoreAt creates a token store at an explicit path, for tests.
func NewTokenStoreAt(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Load returns the stored token, or empty string if none is stored.
func (s *TokenStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Save writes the token to disk with owner-only permissions.
func (s *TokenStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte(token+"\n"), 0600)
}

// Clear removes the stored token. Missing file is not an error.
func (s *TokenStore) Clear() error {
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
