package chat

import (
	"sync"
	"time"
)

// GuardTTL is how long a confirmed send is remembered for notification
// suppression. Long enough to cover the realtime echo of an own send,
// short enough that the set stays small.
const GuardTTL = 5 * time.Second

// Guard remembers the ids of recently confirmed local sends so the
// notifier can tell an echo of an own message apart from a genuinely
// new inbound one. Expired ids are evicted lazily on access.
type Guard struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]time.Time
}

// NewGuard creates a guard with the given TTL; ttl <= 0 selects
// GuardTTL.
func NewGuard(ttl time.Duration) *Guard {
	return NewGuardAt(ttl, time.Now)
}

// NewGuardAt is NewGuard with an injected clock, for tests.
func NewGuardAt(ttl time.Duration, now func() time.Time) *Guard {
	if ttl <= 0 {
		ttl = GuardTTL
	}
	return &Guard{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]time.Time),
	}
}

// Add registers a confirmed send id.
func (g *Guard) Add(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.evictLocked()
	g.entries[id] = g.now().Add(g.ttl)
}

// Contains reports whether id was registered within the TTL.
func (g *Guard) Contains(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.evictLocked()
	_, ok := g.entries[id]
	return ok
}

func (g *Guard) evictLocked() {
	now := g.now()
	for id, expiry := range g.entries {
		if now.After(expiry) {
			delete(g.entries, id)
		}
	}
}
