package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := &Config{
		ServerURL:      "https://chat.example.com",
		DefaultAccount: "work",
		NotifySound:    true,
	}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.ServerURL != "https://chat.example.com" {
		t.Errorf("ServerURL = %q, want %q", loaded.ServerURL, "https://chat.example.com")
	}
	if loaded.DefaultAccount != "work" {
		t.Errorf("DefaultAccount = %q, want %q", loaded.DefaultAccount, "work")
	}
	if loaded.RealtimeURL != DefaultRealtimeURL {
		t.Errorf("RealtimeURL = %q, want default %q", loaded.RealtimeURL, DefaultRealtimeURL)
	}
}

func TestLoadMissingYieldsDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/config.toml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerURL != DefaultServerURL {
		t.Errorf("ServerURL = %q, want default %q", cfg.ServerURL, DefaultServerURL)
	}
	if !cfg.NotifySound {
		t.Error("NotifySound = false, want true by default")
	}
}

func TestTypingDebounce(t *testing.T) {
	cfg := &Config{}
	if got := cfg.TypingDebounce(); got != DefaultTypingDebounce {
		t.Errorf("TypingDebounce() = %v, want %v", got, DefaultTypingDebounce)
	}

	cfg.TypingDebounceMS = 750
	if got := cfg.TypingDebounce(); got != 750*time.Millisecond {
		t.Errorf("TypingDebounce() = %v, want 750ms", got)
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, &Config{DefaultAccount: "main"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}
