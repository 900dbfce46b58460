package dag_test

import (
	"context"
	"testing"

	"dagchat/internal/dag"
	"dagchat/internal/store"
	"dagchat/internal/store/memory"
)

func insertNode(t *testing.T, ns *memory.NodeStore, id, convID, role string, parents []string) {
	t.Helper()
	doc := store.MessageNode{
		ID:             id,
		ConversationID: convID,
		Role:           role,
		Content:        id,
		ParentIDs:      parents,
	}
	if _, err := ns.Insert(context.Background(), doc); err != nil {
		t.Fatalf("insert %s: %v", id, err)
	}
	for _, p := range parents {
		if err := ns.AddChild(context.Background(), p, id); err != nil {
			t.Fatalf("addchild %s->%s: %v", p, id, err)
		}
	}
}

func TestBuildSubDAG_LinkedList(t *testing.T) {
	ns := memory.NewNodeStore()
	ctx := context.Background()

	insertNode(t, ns, "user_a", "c1", store.RoleUser, nil)
	insertNode(t, ns, "assistant_a", "c1", store.RoleAssistant, []string{"user_a"})
	insertNode(t, ns, "user_b", "c1", store.RoleUser, []string{"assistant_a"})
	insertNode(t, ns, "assistant_b", "c1", store.RoleAssistant, []string{"user_b"})
	insertNode(t, ns, "user_c", "c1", store.RoleUser, []string{"assistant_b"})
	insertNode(t, ns, "assistant_c", "c1", store.RoleAssistant, []string{"user_c"})

	sub, err := dag.BuildSubDAG(ctx, ns, []string{"assistant_c"})
	if err != nil {
		t.Fatalf("BuildSubDAG: %v", err)
	}
	if len(sub.Nodes) != 6 {
		t.Fatalf("expected 6 nodes, got %d", len(sub.Nodes))
	}

	ordered := dag.Linearize(sub.Edges())
	want := []string{"user_a", "assistant_a", "user_b", "assistant_b", "user_c", "assistant_c"}
	if len(ordered) != len(want) {
		t.Fatalf("got %v, want %v", ordered, want)
	}
	for i, id := range want {
		if ordered[i] != id {
			t.Fatalf("got %v, want %v", ordered, want)
		}
	}
}

func TestBuildSubDAG_ExcludesOutsideAncestorClosure(t *testing.T) {
	ns := memory.NewNodeStore()
	ctx := context.Background()

	insertNode(t, ns, "a", "c1", store.RoleAssistant, nil)
	insertNode(t, ns, "b", "c1", store.RoleUser, []string{"a"})
	insertNode(t, ns, "c", "c1", store.RoleUser, []string{"a"})
	insertNode(t, ns, "d", "c1", store.RoleUser, []string{"a"})
	insertNode(t, ns, "f", "c1", store.RoleAssistant, []string{"b"})

	sub, err := dag.BuildSubDAG(ctx, ns, []string{"f"})
	if err != nil {
		t.Fatalf("BuildSubDAG: %v", err)
	}
	if len(sub.Nodes) != 3 {
		t.Fatalf("expected exactly {a,b,f}, got %d nodes: %v", len(sub.Nodes), sub.Nodes)
	}
	for _, id := range []string{"a", "b", "f"} {
		if _, ok := sub.Nodes[id]; !ok {
			t.Fatalf("missing expected node %s", id)
		}
	}
	if _, ok := sub.Nodes["c"]; ok {
		t.Fatalf("sibling c must not be in the ancestor closure")
	}
}

func TestBuildSubDAG_Merge(t *testing.T) {
	ns := memory.NewNodeStore()
	ctx := context.Background()

	insertNode(t, ns, "a", "c1", store.RoleAssistant, nil)
	insertNode(t, ns, "c", "c1", store.RoleUser, []string{"a"})
	insertNode(t, ns, "i", "c1", store.RoleAssistant, []string{"c"})
	insertNode(t, ns, "d", "c1", store.RoleUser, []string{"a"})
	insertNode(t, ns, "j", "c1", store.RoleAssistant, []string{"d"})
	insertNode(t, ns, "n", "c1", store.RoleUser, []string{"i", "j"})

	sub, err := dag.BuildSubDAG(ctx, ns, []string{"n"})
	if err != nil {
		t.Fatalf("BuildSubDAG: %v", err)
	}
	for _, id := range []string{"a", "c", "i", "d", "j", "n"} {
		if _, ok := sub.Nodes[id]; !ok {
			t.Fatalf("missing expected node %s", id)
		}
	}

	ordered := dag.Linearize(sub.Edges())
	pos := make(map[string]int, len(ordered))
	for i, id := range ordered {
		pos[id] = i
	}
	if pos["a"] != 0 {
		t.Fatalf("expected a first, got %v", ordered)
	}
	if !(pos["c"] < pos["i"] && pos["i"] < pos["n"]) {
		t.Fatalf("expected c<i<n, got %v", ordered)
	}
	if !(pos["d"] < pos["j"] && pos["j"] < pos["n"]) {
		t.Fatalf("expected d<j<n, got %v", ordered)
	}
}

func TestBuildSubDAG_EmptyStartIDs(t *testing.T) {
	ns := memory.NewNodeStore()
	sub, err := dag.BuildSubDAG(context.Background(), ns, nil)
	if err != nil {
		t.Fatalf("BuildSubDAG: %v", err)
	}
	if len(sub.Nodes) != 0 {
		t.Fatalf("expected empty subDAG, got %d nodes", len(sub.Nodes))
	}
}

func TestBuildSubDAG_UnknownIDsSkipped(t *testing.T) {
	ns := memory.NewNodeStore()
	sub, err := dag.BuildSubDAG(context.Background(), ns, []string{"does-not-exist"})
	if err != nil {
		t.Fatalf("BuildSubDAG: %v", err)
	}
	if len(sub.Nodes) != 0 {
		t.Fatalf("expected empty subDAG for unknown id, got %d nodes", len(sub.Nodes))
	}
}
