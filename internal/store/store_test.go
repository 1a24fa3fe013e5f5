package store

import (
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 1 {
		t.Errorf("version = %d, want 1", result.Version)
	}
}

func TestUpsertMessageIsIdempotent(t *testing.T) {
	db := testDB(t)

	m := &Message{ConversationID: "c1", MsgID: "m1", SenderID: "u2", SenderName: "bob", Body: "hello", Timestamp: 1000}
	if err := db.UpsertMessage(m); err != nil {
		t.Fatal(err)
	}
	m.Body = "hello edited"
	if err := db.UpsertMessage(m); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages("c1", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Body != "hello edited" {
		t.Errorf("body = %q, want updated body", msgs[0].Body)
	}
}

func TestListMessagesPaginates(t *testing.T) {
	db := testDB(t)

	for i := int64(1); i <= 5; i++ {
		if err := db.UpsertMessage(&Message{ConversationID: "c1", MsgID: string(rune('a' + i)), SenderID: "u2", Body: "x", Timestamp: i * 100}); err != nil {
			t.Fatal(err)
		}
	}

	page, err := db.ListMessages("c1", 400, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(page))
	}
	if page[0].Timestamp != 300 || page[1].Timestamp != 200 {
		t.Errorf("unexpected page timestamps %d, %d", page[0].Timestamp, page[1].Timestamp)
	}
}

func TestUpsertConversationKeepsNewestRecency(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertConversation(&Conversation{ID: "c1", PeerID: "u2", PeerUsername: "bob", LastMessageAt: 2000, LastMessagePreview: "newer"}); err != nil {
		t.Fatal(err)
	}
	// Stale touch must not move recency backwards or erase peer info.
	if err := db.TouchConversation("c1", 1000, "older"); err != nil {
		t.Fatal(err)
	}

	convs, err := db.ListConversations()
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(convs))
	}
	c := convs[0]
	if c.LastMessageAt != 2000 || c.LastMessagePreview != "newer" {
		t.Errorf("recency regressed: %+v", c)
	}
	if c.PeerUsername != "bob" {
		t.Errorf("peer info erased: %+v", c)
	}
}

func TestListConversationsOrdersByRecency(t *testing.T) {
	db := testDB(t)

	_ = db.UpsertConversation(&Conversation{ID: "old", LastMessageAt: 100})
	_ = db.UpsertConversation(&Conversation{ID: "new", LastMessageAt: 200})

	convs, err := db.ListConversations()
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 2 || convs[0].ID != "new" {
		t.Fatalf("unexpected order %+v", convs)
	}
}
