package dag

import (
	"reflect"
	"testing"
)

func TestLinearize_LinkedList(t *testing.T) {
	// user_a -> assistant_a -> user_b -> assistant_b -> user_c -> assistant_c
	edges := map[string][]string{
		"user_a":      {"assistant_a"},
		"assistant_a": {"user_b"},
		"user_b":      {"assistant_b"},
		"assistant_b": {"user_c"},
		"user_c":      {"assistant_c"},
		"assistant_c": {},
	}

	got := Linearize(edges)
	want := []string{"user_a", "assistant_a", "user_b", "assistant_b", "user_c", "assistant_c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestLinearize_BranchWithoutMerge(t *testing.T) {
	// assistant_a has children user_b, user_c, user_d; only {a,b,f} are in
	// the subDAG (chain a->b->f), siblings c/d excluded upstream by C3.
	edges := map[string][]string{
		"assistant_a": {"user_b"},
		"user_b":      {"assistant_f"},
		"assistant_f": {},
	}

	got := Linearize(edges)
	want := []string{"assistant_a", "user_b", "assistant_f"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestLinearize_Merge(t *testing.T) {
	// a -> c -> i -\
	//               -> n
	// a -> d -> j -/
	edges := map[string][]string{
		"a": {"c", "d"},
		"c": {"i"},
		"i": {"n"},
		"d": {"j"},
		"j": {"n"},
		"n": {},
	}

	got := Linearize(edges)
	pos := make(map[string]int, len(got))
	for i, id := range got {
		pos[id] = i
	}

	if pos["a"] != 0 {
		t.Fatalf("expected a first, got order %v", got)
	}
	if !(pos["c"] < pos["i"] && pos["i"] < pos["n"]) {
		t.Fatalf("expected c<i<n, got order %v", got)
	}
	if !(pos["d"] < pos["j"] && pos["j"] < pos["n"]) {
		t.Fatalf("expected d<j<n, got order %v", got)
	}
}

func TestLinearize_ChainContinuity(t *testing.T) {
	// chain j->o->q->s plus a direct branch j->n->s
	edges := map[string][]string{
		"j": {"o", "n"},
		"o": {"q"},
		"q": {"s"},
		"n": {"s"},
		"s": {},
	}

	got := Linearize(edges)
	pos := make(map[string]int, len(got))
	for i, id := range got {
		pos[id] = i
	}
	if pos["q"]-pos["o"] != 1 {
		t.Fatalf("expected o,q consecutive, got order %v", got)
	}
}

func TestLinearize_Deterministic(t *testing.T) {
	edges := map[string][]string{
		"a": {"c", "d"},
		"c": {"i"},
		"i": {"n"},
		"d": {"j"},
		"j": {"n"},
		"n": {},
	}

	first := Linearize(edges)
	for i := 0; i < 5; i++ {
		got := Linearize(edges)
		if !reflect.DeepEqual(first, got) {
			t.Fatalf("non-deterministic output: %v vs %v", first, got)
		}
	}
}

func TestLinearize_Empty(t *testing.T) {
	if got := Linearize(nil); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}
