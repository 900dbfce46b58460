package dag

import "sort"

// Linearize performs a Kahn topological sort of the subDAG (node ids restricted
// to those present in edges), breaking ties with a chain-preference rule so
// that natural question/answer chains stay contiguous in the output (C4).
//
// edges maps a node id to its children ids, restricted to the subDAG (as
// returned by SubDAG.Edges). Every id appearing as a key or value of edges
// must also be a key of edges (i.e. callers pass a complete node set).
func Linearize(edges map[string][]string) []string {
	if len(edges) == 0 {
		return nil
	}

	inDegree := make(map[string]int, len(edges))
	outDegree := make(map[string]int, len(edges))
	for id := range edges {
		inDegree[id] = 0
		outDegree[id] = 0
	}
	for parent, children := range edges {
		outDegree[parent] = len(children)
		for _, c := range children {
			inDegree[c]++
		}
	}

	inDegreeLive := make(map[string]int, len(inDegree))
	for id, d := range inDegree {
		inDegreeLive[id] = d
	}

	available := make(map[string]bool)
	for id, d := range inDegree {
		if d == 0 {
			available[id] = true
		}
	}

	result := make([]string, 0, len(edges))

	for len(available) > 0 {
		var pick string
		if len(result) == 0 {
			pick = minID(available)
		} else {
			last := result[len(result)-1]
			if next, ok := continueChain(edges[last], available, inDegree); ok {
				pick = next
			} else if next, ok := startSimpleChain(available, inDegree, outDegree); ok {
				pick = next
			} else {
				pick = minID(available)
			}
		}

		result = append(result, pick)
		delete(available, pick)

		for _, c := range edges[pick] {
			inDegreeLive[c]--
			if inDegreeLive[c] == 0 {
				available[c] = true
			}
		}
	}

	return result
}

// continueChain implements strategy (a): scan last's children in stored
// order, pick the first that is available and has original in_degree == 1.
func continueChain(children []string, available map[string]bool, inDegree map[string]int) (string, bool) {
	for _, c := range children {
		if available[c] && inDegree[c] == 1 {
			return c, true
		}
	}
	return "", false
}

// startSimpleChain implements strategy (b): among available nodes sorted by
// id, pick the first pure link node (in_degree == 1 and out_degree == 1).
func startSimpleChain(available map[string]bool, inDegree, outDegree map[string]int) (string, bool) {
	ids := sortedKeys(available)
	for _, id := range ids {
		if inDegree[id] == 1 && outDegree[id] == 1 {
			return id, true
		}
	}
	return "", false
}

func minID(available map[string]bool) string {
	min := ""
	for id := range available {
		if min == "" || id < min {
			min = id
		}
	}
	return min
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
