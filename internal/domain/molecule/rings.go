package molecule

// findLargestRing locates the largest simple cycle reachable through the
// graph's fundamental cycles and returns it as an ordered atom-index walk,
// or nil when no cycle of at least minSize atoms exists.
//
// The search runs a DFS spanning tree per connected component; every back
// edge (u, v) closes exactly one fundamental cycle consisting of the tree
// path v..u plus the edge itself.  For typical macrocyclic inputs the macro
// ring shows up among these cycles, so picking the longest one recovers it
// without the cost of general longest-cycle search.  Bridged ring systems
// are the exception: a bridge can split the largest simple ring across two
// fundamental cycles, in which case a smaller valid ring is returned
// instead.  Atom order within the returned walk follows the tree path,
// making the result deterministic for a given graph.
func findLargestRing(adj [][]int, minSize int) []int {
	n := len(adj)
	parent := make([]int, n)
	depth := make([]int, n)
	visited := make([]bool, n)
	for i := range parent {
		parent[i] = -1
	}

	var best []int

	for start := 0; start < n; start++ {
		if visited[start] {
			continue
		}
		// Iterative DFS to keep deep chains off the call stack.
		type frame struct{ node, next int }
		stack := []frame{{node: start}}
		visited[start] = true
		depth[start] = 0

		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			if f.next >= len(adj[f.node]) {
				stack = stack[:len(stack)-1]
				continue
			}
			nb := adj[f.node][f.next]
			f.next++

			if nb == parent[f.node] {
				continue
			}
			if !visited[nb] {
				visited[nb] = true
				parent[nb] = f.node
				depth[nb] = depth[f.node] + 1
				stack = append(stack, frame{node: nb})
				continue
			}
			// Back edge f.node → nb closes a cycle through the tree path.
			if depth[nb] < depth[f.node] {
				cycle := treePath(parent, f.node, nb)
				if len(cycle) >= minSize && len(cycle) > len(best) {
					best = cycle
				}
			}
		}
	}
	return best
}

// treePath walks parent pointers from u up to ancestor v and returns the
// cycle [v, ..., u] in root-to-leaf order.
func treePath(parent []int, u, v int) []int {
	var rev []int
	for node := u; node != v; node = parent[node] {
		rev = append(rev, node)
		if parent[node] == -1 {
			return nil // v is not an ancestor of u; not a tree-path cycle
		}
	}
	rev = append(rev, v)
	out := make([]int, len(rev))
	for i, node := range rev {
		out[len(rev)-1-i] = node
	}
	return out
}
