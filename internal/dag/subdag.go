// Package dag builds and linearizes the ancestor subDAG of a message node
// chain (C3, C4): a breadth-first closure over parent edges, followed by a
// chain-preserving topological sort suitable for feeding a chat model.
package dag

import (
	"context"

	"dagchat/internal/store"
)

const (
	// MaxDepth bounds the number of batch rounds (one FindByIDs call of up to
	// BatchSize ids each) walked while tracing parent_ids, matching
	// original_source's literal 2000-round cutoff.
	MaxDepth = 2000
	// BatchSize caps how many node ids are looked up per FindByIDs call.
	BatchSize = 100
)

// SubDAG is the ancestor closure of a set of starting node ids: every node
// reachable by following parent_ids edges backward, up to MaxDepth batch rounds.
type SubDAG struct {
	Nodes map[string]store.MessageNode
	// Truncated is true if MaxDepth was hit with ids still queued.
	Truncated bool
}

// BuildSubDAG walks parent_ids backward from startIDs, breadth-first, batching
// lookups through ns. Unknown ids are dropped silently (matches the teacher's
// find-ignores-missing semantics).
func BuildSubDAG(ctx context.Context, ns store.NodeStore, startIDs []string) (*SubDAG, error) {
	result := &SubDAG{Nodes: make(map[string]store.MessageNode)}
	if len(startIDs) == 0 {
		return result, nil
	}

	queue := append([]string(nil), startIDs...)
	visited := make(map[string]bool)
	depth := 0

	for len(queue) > 0 && depth < MaxDepth {
		batchLen := len(queue)
		if batchLen > BatchSize {
			batchLen = BatchSize
		}
		batch := queue[:batchLen]
		queue = queue[batchLen:]

		nodes, err := ns.FindByIDs(ctx, batch)
		if err != nil {
			return nil, err
		}

		for _, n := range nodes {
			if visited[n.ID] {
				continue
			}
			visited[n.ID] = true
			result.Nodes[n.ID] = n

			for _, parentID := range n.ParentIDs {
				if parentID != "" && !visited[parentID] {
					queue = append(queue, parentID)
				}
			}
		}

		depth++
	}

	if depth >= MaxDepth && len(queue) > 0 {
		result.Truncated = true
	}

	return result, nil
}

// Edges returns, for every node in the subDAG, the list of its children ids
// that are themselves present in the subDAG (edges pointing outside the
// closure are dropped, mirroring the Python reference's valid_parents filter).
// This is the child map Linearize expects (§4.3): for each node, for each of
// its parent_ids that is in the subDAG, the node is appended to that
// parent's child list.
func (s *SubDAG) Edges() map[string][]string {
	edges := make(map[string][]string, len(s.Nodes))
	for id := range s.Nodes {
		edges[id] = nil
	}
	for id, n := range s.Nodes {
		for _, p := range n.ParentIDs {
			if _, ok := s.Nodes[p]; ok {
				edges[p] = append(edges[p], id)
			}
		}
	}
	return edges
}
