package chat

import (
	"testing"
)

func TestLocalSendAppendsProvisional(t *testing.T) {
	th := NewThread("c1", "u1")

	m := th.LocalSend("hello", "alice")
	if !IsProvisional(m.ID) {
		t.Fatalf("expected provisional id, got %q", m.ID)
	}
	if m.SenderID != "u1" || m.Content != "hello" {
		t.Fatalf("unexpected message %+v", m)
	}
	if th.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", th.Len())
	}
}

func TestProvisionalIDsAreDistinct(t *testing.T) {
	th := NewThread("c1", "u1")
	a := th.LocalSend("x", "alice")
	b := th.LocalSend("x", "alice")
	if a.ID == b.ID {
		t.Fatalf("ids collided: %q", a.ID)
	}
}

func TestServerConfirmReplacesOldestMatchInPlace(t *testing.T) {
	th := NewThread("c1", "u1")
	th.Reset([]Message{{ID: "m1", SenderID: "u2", Content: "hi"}})

	first := th.LocalSend("same", "alice")
	second := th.LocalSend("same", "alice")

	if !th.ServerConfirm(Message{ID: "m2", SenderID: "u1", Content: "same"}) {
		t.Fatal("expected confirmation to change the timeline")
	}

	msgs := th.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(msgs))
	}
	if msgs[1].ID != "m2" {
		t.Fatalf("oldest matching provisional must be replaced in place, got %q at position 1", msgs[1].ID)
	}
	if msgs[2].ID != second.ID {
		t.Fatalf("newer provisional must survive, got %q", msgs[2].ID)
	}
	if msgs[1].ID == first.ID {
		t.Fatal("provisional id must be gone after confirmation")
	}
}

func TestServerConfirmAppendsWithoutMatch(t *testing.T) {
	th := NewThread("c1", "u1")
	th.LocalSend("draft", "alice")

	if !th.ServerConfirm(Message{ID: "m9", SenderID: "u1", Content: "other"}) {
		t.Fatal("expected append")
	}
	msgs := th.Messages()
	if len(msgs) != 2 || msgs[1].ID != "m9" {
		t.Fatalf("expected append at tail, got %+v", msgs)
	}
}

func TestServerConfirmDropsDuplicateID(t *testing.T) {
	th := NewThread("c1", "u1")
	th.Reset([]Message{{ID: "m1", SenderID: "u1", Content: "hi"}})

	if th.ServerConfirm(Message{ID: "m1", SenderID: "u1", Content: "hi"}) {
		t.Fatal("duplicate id must be dropped")
	}
	if th.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", th.Len())
	}
}

func TestRemoteDeliverDropsDuplicates(t *testing.T) {
	th := NewThread("c1", "u1")

	m := Message{ID: "m1", SenderID: "u2", Content: "hey"}
	if !th.RemoteDeliver(m) {
		t.Fatal("first delivery must append")
	}
	if th.RemoteDeliver(m) {
		t.Fatal("second delivery must be dropped")
	}
	if th.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", th.Len())
	}
}

func TestRemoteDeliverSelfEchoResolvesProvisional(t *testing.T) {
	th := NewThread("c1", "u1")
	prov := th.LocalSend("ping", "alice")

	if !th.RemoteDeliver(Message{ID: "m1", SenderID: "u1", Content: "ping"}) {
		t.Fatal("echo must resolve the provisional entry")
	}

	msgs := th.Messages()
	if len(msgs) != 1 || msgs[0].ID != "m1" {
		t.Fatalf("expected single confirmed entry, got %+v", msgs)
	}
	if _, ok := th.Rollback(prov.ID); ok {
		t.Fatal("provisional id must be gone")
	}
}

func TestRemoteDeliverOwnOtherDeviceAppends(t *testing.T) {
	th := NewThread("c1", "u1")

	if !th.RemoteDeliver(Message{ID: "m1", SenderID: "u1", Content: "from phone"}) {
		t.Fatal("own message without a pending provisional must append")
	}
	if th.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", th.Len())
	}
}

func TestRollbackReturnsContent(t *testing.T) {
	th := NewThread("c1", "u1")
	th.Reset([]Message{{ID: "m1", SenderID: "u2", Content: "hi"}})
	prov := th.LocalSend("oops", "alice")

	content, ok := th.Rollback(prov.ID)
	if !ok || content != "oops" {
		t.Fatalf("expected rollback to return content, got %q %v", content, ok)
	}
	if th.Len() != 1 {
		t.Fatalf("expected provisional removed, len %d", th.Len())
	}

	if _, ok := th.Rollback(prov.ID); ok {
		t.Fatal("second rollback must be a no-op")
	}
}

func TestResetDropsDuplicateIDs(t *testing.T) {
	th := NewThread("c1", "u1")
	th.Reset([]Message{
		{ID: "m1", Content: "a"},
		{ID: "m2", Content: "b"},
		{ID: "m1", Content: "a again"},
	})

	msgs := th.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(msgs))
	}
	if msgs[0].Content != "a" {
		t.Fatal("first occurrence must win")
	}
}
