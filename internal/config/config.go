package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Defaults applied when a field is absent from the config file.
const (
	DefaultServerURL      = "http://127.0.0.1:8000"
	DefaultRealtimeURL    = "ws://127.0.0.1:4000"
	DefaultTypingDebounce = 300 * time.Millisecond
)

// Config represents the global ~/.cove/config.toml.
type Config struct {
	ServerURL        string `toml:"server_url"`
	RealtimeURL      string `toml:"realtime_url"`
	DefaultAccount   string `toml:"default_account"`
	TypingDebounceMS int    `toml:"typing_debounce_ms"`
	NotifySound      bool   `toml:"notify_sound"`
}

// TypingDebounce returns the configured typing debounce window.
func (c *Config) TypingDebounce() time.Duration {
	if c.TypingDebounceMS <= 0 {
		return DefaultTypingDebounce
	}
	return time.Duration(c.TypingDebounceMS) * time.Millisecond
}

// Load reads config from the given path. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{
		ServerURL:   DefaultServerURL,
		RealtimeURL: DefaultRealtimeURL,
		NotifySound: true,
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultServerURL
	}
	if cfg.RealtimeURL == "" {
		cfg.RealtimeURL = DefaultRealtimeURL
	}
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
