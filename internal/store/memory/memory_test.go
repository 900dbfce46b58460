package memory_test

import (
	"context"
	"testing"

	"dagchat/internal/store"
	"dagchat/internal/store/memory"
)

func TestMetadataStore_RenameRejectsUnknownOwner(t *testing.T) {
	m := memory.NewMetadataStore()
	ctx := context.Background()

	if err := m.Create(ctx, "c1", "alice", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := m.Rename(ctx, "c1", "bob", "hijacked"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound for mismatched owner, got %v", err)
	}
	if err := m.Rename(ctx, "c1", "alice", "my title"); err != nil {
		t.Fatalf("rename: %v", err)
	}
}

func TestMetadataStore_ListOrdersByUpdateTimeDesc(t *testing.T) {
	m := memory.NewMetadataStore()
	ctx := context.Background()

	_ = m.Create(ctx, "c1", "alice", "")
	_ = m.Create(ctx, "c2", "alice", "")
	title := "bumped"
	if err := m.UpdateHeader(ctx, "c1", store.HeaderUpdate{Title: &title}); err != nil {
		t.Fatalf("update header: %v", err)
	}

	rows, total, err := m.List(ctx, "alice", 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 total, got %d", total)
	}
	if rows[0].ID != "c1" {
		t.Fatalf("expected most-recently-updated conversation first, got %v", rows)
	}
}

func TestMetadataStore_Pagination(t *testing.T) {
	m := memory.NewMetadataStore()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_ = m.Create(ctx, string(rune('a'+i)), "alice", "")
	}

	rows, total, err := m.List(ctx, "alice", 2, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 || len(rows) != 2 {
		t.Fatalf("expected 5 total / 2 rows on page 2, got total=%d rows=%d", total, len(rows))
	}
}

func TestNodeStore_InsertAssignsIDAndAddChildIsIdempotent(t *testing.T) {
	n := memory.NewNodeStore()
	ctx := context.Background()

	id, err := n.Insert(ctx, store.MessageNode{ConversationID: "c1", Role: store.RoleUser, Content: "hi"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id == "" {
		t.Fatalf("expected a generated id")
	}

	if err := n.AddChild(ctx, id, "child-1"); err != nil {
		t.Fatalf("add child: %v", err)
	}
	if err := n.AddChild(ctx, id, "child-1"); err != nil {
		t.Fatalf("add child (repeat): %v", err)
	}

	docs, err := n.FindByIDs(ctx, []string{id})
	if err != nil {
		t.Fatalf("find by ids: %v", err)
	}
	if len(docs) != 1 || len(docs[0].Children) != 1 {
		t.Fatalf("expected idempotent single child entry, got %+v", docs)
	}
}

func TestNodeStore_DeleteByConversation(t *testing.T) {
	n := memory.NewNodeStore()
	ctx := context.Background()

	_, _ = n.Insert(ctx, store.MessageNode{ConversationID: "c1", Role: store.RoleUser, Content: "a"})
	_, _ = n.Insert(ctx, store.MessageNode{ConversationID: "c2", Role: store.RoleUser, Content: "b"})

	if err := n.DeleteByConversation(ctx, "c1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	remaining, err := n.FindByConversation(ctx, "c1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected c1's nodes gone, got %d", len(remaining))
	}

	other, err := n.FindByConversation(ctx, "c2")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(other) != 1 {
		t.Fatalf("expected c2's node untouched, got %d", len(other))
	}
}
