package model

import (
	"sync"
	"time"
)

// FlashTTL is how long a status-bar flash stays visible before the
// refresh loop clears it.
const FlashTTL = 5 * time.Second

// Flash holds transient notification messages.
type Flash struct {
	mu      sync.RWMutex
	message string
	expires time.Time
}

// Set stores a flash message that expires after FlashTTL.
func (f *Flash) Set(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.message = msg
	f.expires = time.Now().Add(FlashTTL)
}

// Get returns the current flash message, or empty if expired.
func (f *Flash) Get() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if time.Now().After(f.expires) {
		return ""
	}
	return f.message
}
