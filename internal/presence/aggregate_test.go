package presence

import (
	"reflect"
	"testing"

	"github.com/cove-chat/cove/internal/realtime"
)

func snap(conversationID string, pairs ...any) *realtime.PresenceSnapshot {
	s := &realtime.PresenceSnapshot{
		ConversationID: conversationID,
		Entries:        make(map[string]realtime.PresenceEntry),
	}
	for i := 0; i < len(pairs); i += 2 {
		key := pairs[i].(string)
		entry := pairs[i+1].(realtime.PresenceEntry)
		s.Keys = append(s.Keys, key)
		s.Entries[key] = entry
	}
	return s
}

func TestRebuildSkipsLocalUser(t *testing.T) {
	agg := NewAggregator("u1")
	agg.Rebuild(snap("c1",
		"u1::a", realtime.PresenceEntry{Typing: true, Username: "me", UserID: "u1"},
		"u2::a", realtime.PresenceEntry{Typing: true, Username: "bob", UserID: "u2"},
	))

	if got := agg.Names(); !reflect.DeepEqual(got, []string{"bob"}) {
		t.Fatalf("expected [bob], got %v", got)
	}
}

func TestRebuildLastDeviceWins(t *testing.T) {
	agg := NewAggregator("u1")

	agg.Rebuild(snap("c1",
		"u2::a", realtime.PresenceEntry{Typing: true, Username: "bob", UserID: "u2"},
		"u2::b", realtime.PresenceEntry{Typing: false, Username: "bob", UserID: "u2"},
	))
	if got := agg.Names(); len(got) != 0 {
		t.Fatalf("later entry in wire order must win, got %v", got)
	}

	agg.Rebuild(snap("c1",
		"u2::b", realtime.PresenceEntry{Typing: false, Username: "bob", UserID: "u2"},
		"u2::a", realtime.PresenceEntry{Typing: true, Username: "bob", UserID: "u2"},
	))
	if got := agg.Names(); !reflect.DeepEqual(got, []string{"bob"}) {
		t.Fatalf("expected [bob], got %v", got)
	}
}

func TestNamesKeepFirstAppearanceOrder(t *testing.T) {
	agg := NewAggregator("u1")
	agg.Rebuild(snap("c1",
		"u3::a", realtime.PresenceEntry{Typing: true, Username: "carol", UserID: "u3"},
		"u2::a", realtime.PresenceEntry{Typing: true, Username: "bob", UserID: "u2"},
		"u3::b", realtime.PresenceEntry{Typing: true, Username: "carol", UserID: "u3"},
	))

	if got := agg.Names(); !reflect.DeepEqual(got, []string{"carol", "bob"}) {
		t.Fatalf("expected [carol bob], got %v", got)
	}
}

func TestNamesFallBackToUserID(t *testing.T) {
	agg := NewAggregator("u1")
	agg.Rebuild(snap("c1",
		"u2::a", realtime.PresenceEntry{Typing: true, UserID: "u2"},
	))

	if got := agg.Names(); !reflect.DeepEqual(got, []string{"u2"}) {
		t.Fatalf("expected [u2], got %v", got)
	}
}

func TestRebuildReplacesWholesale(t *testing.T) {
	agg := NewAggregator("u1")
	agg.Rebuild(snap("c1",
		"u2::a", realtime.PresenceEntry{Typing: true, Username: "bob", UserID: "u2"},
	))
	agg.Rebuild(snap("c1"))

	if got := agg.Names(); len(got) != 0 {
		t.Fatalf("empty snapshot must clear state, got %v", got)
	}
}

func TestFormatTyping(t *testing.T) {
	cases := []struct {
		names []string
		want  string
	}{
		{nil, ""},
		{[]string{"bob"}, "bob is typing..."},
		{[]string{"bob", "carol"}, "bob, carol are typing..."},
	}
	for _, tc := range cases {
		if got := FormatTyping(tc.names); got != tc.want {
			t.Fatalf("FormatTyping(%v) = %q, want %q", tc.names, got, tc.want)
		}
	}
}
