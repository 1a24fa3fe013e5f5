package chat

import (
	"testing"
	"time"
)

func TestGuardRemembersWithinTTL(t *testing.T) {
	now := time.Now()
	g := NewGuardAt(5*time.Second, func() time.Time { return now })

	g.Add("m1")
	if !g.Contains("m1") {
		t.Fatal("expected m1 guarded")
	}
	if g.Contains("m2") {
		t.Fatal("m2 was never added")
	}
}

func TestGuardExpires(t *testing.T) {
	now := time.Now()
	g := NewGuardAt(5*time.Second, func() time.Time { return now })

	g.Add("m1")
	now = now.Add(5*time.Second + time.Millisecond)
	if g.Contains("m1") {
		t.Fatal("expected m1 expired")
	}
}

func TestGuardEvictsLazily(t *testing.T) {
	now := time.Now()
	g := NewGuardAt(5*time.Second, func() time.Time { return now })

	g.Add("old")
	now = now.Add(time.Minute)
	g.Add("new")

	g.mu.Lock()
	n := len(g.entries)
	g.mu.Unlock()
	if n != 1 {
		t.Fatalf("expected expired entry evicted, map holds %d", n)
	}
}
