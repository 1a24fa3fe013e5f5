package model

import (
	"testing"
	"time"
)

func TestFlashExpires(t *testing.T) {
	f := &Flash{}

	f.Set("saved")
	if got := f.Get(); got != "saved" {
		t.Fatalf("expected live flash, got %q", got)
	}

	f.mu.Lock()
	f.expires = time.Now().Add(-time.Second)
	f.mu.Unlock()

	if got := f.Get(); got != "" {
		t.Fatalf("expected expired flash to read empty, got %q", got)
	}
}

func TestFlashOverwrite(t *testing.T) {
	f := &Flash{}
	f.Set("first")
	f.Set("second")
	if got := f.Get(); got != "second" {
		t.Fatalf("expected latest flash, got %q", got)
	}
}
