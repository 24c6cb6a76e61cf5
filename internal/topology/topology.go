// Package topology resolves the static wiring between components into a
// deterministic step order (spec section 3.2): a directed graph of
// component IDs, topologically sorted with Kahn's algorithm and a
// lexicographic tie-break so that two scenarios with identical
// connections always step their components in the same order.
package topology

import (
	"sort"

	"github.com/openhydro/aquasim/internal/simerr"
)

// Edge is a directed connection from Upstream to Downstream, naming the
// component IDs a scenario's topology section wires together.
type Edge struct {
	Upstream   string
	Downstream string
}

// Graph is the component dependency graph built from a scenario's node
// list and edge list.
type Graph struct {
	nodes       []string
	successors  map[string][]string
	predecessors map[string][]string
}

// NewGraph builds a Graph from the given component IDs and edges.
// Validating edge endpoints is the caller's responsibility; NewGraph
// itself adds any edge endpoint not already present in nodes so the
// graph is always consistent.
func NewGraph(nodes []string, edges []Edge) *Graph {
	g := &Graph{
		successors:   make(map[string][]string),
		predecessors: make(map[string][]string),
	}
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if !seen[n] {
			seen[n] = true
			g.nodes = append(g.nodes, n)
		}
	}
	for _, e := range edges {
		if !seen[e.Upstream] {
			seen[e.Upstream] = true
			g.nodes = append(g.nodes, e.Upstream)
		}
		if !seen[e.Downstream] {
			seen[e.Downstream] = true
			g.nodes = append(g.nodes, e.Downstream)
		}
		g.successors[e.Upstream] = append(g.successors[e.Upstream], e.Downstream)
		g.predecessors[e.Downstream] = append(g.predecessors[e.Downstream], e.Upstream)
	}
	return g
}

// Successors returns the downstream neighbors of id, in the order they
// were wired.
func (g *Graph) Successors(id string) []string {
	return g.successors[id]
}

// Predecessors returns the upstream neighbors of id.
func (g *Graph) Predecessors(id string) []string {
	return g.predecessors[id]
}

// TopoSort returns a deterministic step order for the graph's nodes
// using Kahn's algorithm: nodes with no remaining predecessors are
// emitted in lexicographic order of ID, one at a time, each emission
// decrementing the in-degree of its successors. A non-empty remainder
// after the algorithm halts means the graph has a cycle, reported as
// *simerr.CycleDetected naming the component IDs still unresolved.
func (g *Graph) TopoSort() ([]string, error) {
	inDegree := make(map[string]int, len(g.nodes))
	for _, n := range g.nodes {
		inDegree[n] = len(g.predecessors[n])
	}

	ready := make([]string, 0, len(g.nodes))
	for _, n := range g.nodes {
		if inDegree[n] == 0 {
			ready = append(ready, n)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		sort.Strings(ready)
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, succ := range g.successors[next] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				ready = append(ready, succ)
			}
		}
	}

	if len(order) != len(g.nodes) {
		remaining := make([]string, 0, len(g.nodes)-len(order))
		done := make(map[string]bool, len(order))
		for _, n := range order {
			done[n] = true
		}
		for _, n := range g.nodes {
			if !done[n] {
				remaining = append(remaining, n)
			}
		}
		sort.Strings(remaining)
		return nil, &simerr.CycleDetected{Remaining: remaining}
	}

	return order, nil
}
