package workflow

import (
	"fmt"
	"strings"
)

// rootID is the synthetic entry node every run starts from.
const rootID = ""

// EdgeKind distinguishes why two components are connected.
type EdgeKind string

const (
	// EdgeData runs from a producer to a component reading its output.
	EdgeData EdgeKind = "data"
	// EdgeControl runs from a condition to a component it may hand control to.
	EdgeControl EdgeKind = "control"
	// EdgeEntry runs from the root to a component nothing else points at.
	EdgeEntry EdgeKind = "entry"
)

// Edge is a directed edge of the component graph.
type Edge struct {
	From string
	To   string
	Kind EdgeKind
}

// graph is a directed multigraph over component ids. Nodes and each node's
// outgoing edges keep insertion order so traversals are deterministic.
type graph struct {
	nodes    []string
	index    map[string]int
	out      [][]Edge
	incoming []int
}

func newGraph() *graph {
	g := &graph{index: make(map[string]int)}
	g.addNode(rootID)
	return g
}

// addNode adds id if it is not present yet.
func (g *graph) addNode(id string) {
	if _, ok := g.index[id]; ok {
		return
	}
	g.index[id] = len(g.nodes)
	g.nodes = append(g.nodes, id)
	g.out = append(g.out, nil)
	g.incoming = append(g.incoming, 0)
}

func (g *graph) has(id string) bool {
	_, ok := g.index[id]
	return ok
}

// addEdge connects two existing nodes.
func (g *graph) addEdge(from, to string, kind EdgeKind) {
	f, t := g.index[from], g.index[to]
	g.out[f] = append(g.out[f], Edge{From: from, To: to, Kind: kind})
	g.incoming[t]++
}

// successors returns the targets of id's outgoing edges in insertion order.
// A target appears once per edge.
func (g *graph) successors(id string) []string {
	edges := g.out[g.index[id]]
	ids := make([]string, len(edges))
	for i, e := range edges {
		ids[i] = e.To
	}
	return ids
}

// linkEntries adds an entry edge from the root to every other node with no
// incoming edges.
func (g *graph) linkEntries() {
	for i, id := range g.nodes {
		if id != rootID && g.incoming[i] == 0 {
			g.addEdge(rootID, id, EdgeEntry)
		}
	}
}

func (g *graph) edges() []Edge {
	var all []Edge
	for _, out := range g.out {
		all = append(all, out...)
	}
	return all
}

// detectCycle runs a three-colour depth-first search over every node and
// returns the first cycle found.
func (g *graph) detectCycle() *CycleError {
	const (
		unvisited = iota
		active
		done
	)
	state := make([]int, len(g.nodes))
	var path []string

	var visit func(i int) *CycleError
	visit = func(i int) *CycleError {
		state[i] = active
		path = append(path, g.nodes[i])
		for _, e := range g.out[i] {
			j := g.index[e.To]
			switch state[j] {
			case active:
				start := 0
				for k, id := range path {
					if id == e.To {
						start = k
						break
					}
				}
				cycle := append(append([]string(nil), path[start:]...), e.To)
				return &CycleError{Path: cycle}
			case unvisited:
				if err := visit(j); err != nil {
					return err
				}
			}
		}
		path = path[:len(path)-1]
		state[i] = done
		return nil
	}

	for i := range g.nodes {
		if state[i] == unvisited {
			if err := visit(i); err != nil {
				return err
			}
		}
	}
	return nil
}

// CycleError reports a cycle in the component graph.
type CycleError struct {
	// Path lists the component ids along the cycle, first id repeated last
	Path []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected: %s", e.pathString())
}

func (e *CycleError) pathString() string {
	names := make([]string, len(e.Path))
	for i, id := range e.Path {
		names[i] = displayID(id)
	}
	return strings.Join(names, " -> ")
}

// ErrorType implements errors.ErrorClassifier.
func (e *CycleError) ErrorType() string { return "cycle" }

// IsRetryable implements errors.ErrorClassifier.
func (e *CycleError) IsRetryable() bool { return false }

// IsUserVisible implements errors.UserVisibleError.
func (e *CycleError) IsUserVisible() bool { return true }

// UserMessage implements errors.UserVisibleError.
func (e *CycleError) UserMessage() string {
	return fmt.Sprintf("components form a loop: %s", e.pathString())
}

// Suggestion implements errors.UserVisibleError.
func (e *CycleError) Suggestion() string {
	return "remove one of the results, fallbacks or output references along the loop"
}

func displayID(id string) string {
	if id == rootID {
		return "<root>"
	}
	return id
}
