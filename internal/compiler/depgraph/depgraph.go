// Package depgraph implements the directed dependency graph over
// integer node ids (C4), used both for per-contract strong-dependency
// block layout (spec §4.6 steps 5-6) and for the file-wide contract
// dependency graph (spec §4.7). Grounded on original_source's
// pre_processing/dependencies.rs (DependencyTree<T>), generalized from
// a generic T to int node ids per spec §9's "model as integer ids"
// note, and changed to an insertion-ordered leaf set (via
// github.com/emirpasic/gods's linkedhashset) so that pop-leaf
// draining is deterministic as spec §5 requires — the original's
// HashSet-backed leaves is not.
package depgraph

import "github.com/emirpasic/gods/sets/linkedhashset"

// Graph is a directed graph: an edge (parent, child) means parent
// depends on child. A node with no outgoing edges is a "leaf".
type Graph struct {
	children map[int]map[int]bool
	parents  map[int]map[int]bool
	leaves   *linkedhashset.Set
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		children: make(map[int]map[int]bool),
		parents:  make(map[int]map[int]bool),
		leaves:   linkedhashset.New(),
	}
}

// AddNode registers n as a leaf if it has no children yet. Idempotent:
// a no-op if n already has outgoing edges or is already a leaf.
func (g *Graph) AddNode(n int) {
	if set, ok := g.children[n]; ok && len(set) > 0 {
		return
	}
	g.leaves.Add(n)
}

// AddEdge records that parent depends on child. Acyclicity is not
// enforced here — the caller verifies it by observing the graph is
// not fully drained by repeated PopLeaf (spec §4.6 step 5).
func (g *Graph) AddEdge(parent, child int) {
	g.insertChild(parent, child)
	g.insertParent(parent, child)
	g.leaves.Remove(parent)
	if set, ok := g.children[child]; ok && len(set) > 0 {
		return
	}
	g.leaves.Add(child)
}

func (g *Graph) insertChild(parent, child int) {
	set, ok := g.children[parent]
	if !ok {
		set = make(map[int]bool)
		g.children[parent] = set
	}
	set[child] = true
}

func (g *Graph) insertParent(parent, child int) {
	set, ok := g.parents[child]
	if !ok {
		set = make(map[int]bool)
		g.parents[child] = set
	}
	set[parent] = true
}

// PopLeaf removes and returns one node with no outgoing edges, in
// insertion order, and rewires its parents: any parent whose last
// remaining child was the popped leaf itself becomes a leaf.
func (g *Graph) PopLeaf() (int, bool) {
	vals := g.leaves.Values()
	if len(vals) == 0 {
		return 0, false
	}
	leaf := vals[0].(int)
	g.leaves.Remove(leaf)
	delete(g.children, leaf)

	if parents, ok := g.parents[leaf]; ok {
		delete(g.parents, leaf)
		for parent := range parents {
			set := g.children[parent]
			delete(set, leaf)
			if len(set) == 0 {
				delete(g.children, parent)
				g.leaves.Add(parent)
			}
		}
	}
	return leaf, true
}

// IsEmpty reports whether the graph has no remaining edges at all
// (every node has been popped).
func (g *Graph) IsEmpty() bool {
	return len(g.children) == 0 && len(g.parents) == 0
}

// Leaves returns the current leaf set in insertion order.
func (g *Graph) Leaves() []int {
	raw := g.leaves.Values()
	out := make([]int, len(raw))
	for i, v := range raw {
		out[i] = v.(int)
	}
	return out
}

// DrainLeaves repeatedly pops leaves until the graph is empty,
// returning them in pop order. A graph that still has edges after the
// drain indicates a cycle — the caller checks IsEmpty afterwards
// (spec §4.6 step 5 / §4.7).
func (g *Graph) DrainLeaves() []int {
	var order []int
	for {
		leaf, ok := g.PopLeaf()
		if !ok {
			break
		}
		order = append(order, leaf)
	}
	return order
}
