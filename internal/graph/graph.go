// Package graph builds and queries the immutable dependency DAG over
// a set of readiness signals. Construction validates acyclicity,
// self-edges, unknown references, and duplicate names; topological
// order breaks ties by registration index, ported from the teacher's
// Kahn's-algorithm phase sequencer.
package graph

import (
	"fmt"
	"sort"

	"github.com/veggerby/ignition/internal/signal"
)

// InvalidKind classifies why graph construction failed.
type InvalidKind string

const (
	KindCycle             InvalidKind = "cycle"
	KindUnknownDependency InvalidKind = "unknown-dependency"
	KindDuplicateName     InvalidKind = "duplicate-name"
	KindSelfEdge          InvalidKind = "self-edge"
)

// Invalid is returned by New when a graph's invariants are violated.
type Invalid struct {
	Kind    InvalidKind
	Detail  string
	Signals []string
}

func (e *Invalid) Error() string {
	return fmt.Sprintf("graph invalid (%s): %s", e.Kind, e.Detail)
}

// Edge declares that From depends on To (From runs after To).
type Edge struct {
	From string
	To   string
}

// node tracks per-signal bookkeeping used to answer queries in O(1).
type node struct {
	sig        *signal.Signal
	index      int      // registration order
	dependsOn  []string // names this signal depends on
	dependents []string // names that depend on this signal
}

// Graph is an immutable DAG over a fixed signal set.
type Graph struct {
	order []string // topological order, ties broken by registration index
	nodes map[string]*node
}

// New validates and constructs a Graph from a registered signal list
// (in registration order) and a set of depends_on edges.
func New(signals []*signal.Signal, edges []Edge) (*Graph, error) {
	nodes := make(map[string]*node, len(signals))
	for i, s := range signals {
		if _, dup := nodes[s.Name]; dup {
			return nil, &Invalid{Kind: KindDuplicateName, Detail: s.Name, Signals: []string{s.Name}}
		}
		nodes[s.Name] = &node{sig: s, index: i}
	}

	for _, e := range edges {
		if e.From == e.To {
			return nil, &Invalid{Kind: KindSelfEdge, Detail: e.From, Signals: []string{e.From}}
		}
		from, ok := nodes[e.From]
		if !ok {
			return nil, &Invalid{Kind: KindUnknownDependency, Detail: e.From, Signals: []string{e.From}}
		}
		if _, ok := nodes[e.To]; !ok {
			return nil, &Invalid{Kind: KindUnknownDependency, Detail: e.To, Signals: []string{e.To}}
		}
		from.dependsOn = append(from.dependsOn, e.To)
		nodes[e.To].dependents = append(nodes[e.To].dependents, e.From)
	}

	order, err := topoSort(nodes)
	if err != nil {
		return nil, err
	}

	return &Graph{order: order, nodes: nodes}, nil
}

// topoSort runs Kahn's algorithm over the adjacency captured in nodes,
// breaking ties among equally-ready signals by registration index —
// the same tiebreak the teacher's workflow phase sequencer uses
// (Sequence there, registration index here). The returned order is
// then sorted by depth (longest dependency chain from a root), with
// registration index as the secondary key.
func topoSort(nodes map[string]*node) ([]string, error) {
	depth := make(map[string]int, len(nodes))
	inDegree := make(map[string]int, len(nodes))
	for name, n := range nodes {
		inDegree[name] = len(n.dependsOn)
	}

	ready := make([]string, 0, len(nodes))
	for name, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, name)
		}
	}
	sortByIndex(ready, nodes)

	result := make([]string, 0, len(nodes))
	for len(ready) > 0 {
		cur := ready[0]
		ready = ready[1:]
		result = append(result, cur)

		var newlyReady []string
		for _, dependent := range nodes[cur].dependents {
			if depth[cur]+1 > depth[dependent] {
				depth[dependent] = depth[cur] + 1
			}
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				newlyReady = append(newlyReady, dependent)
			}
		}
		if len(newlyReady) > 0 {
			ready = append(ready, newlyReady...)
			sortByIndex(ready, nodes)
		}
	}

	if len(result) != len(nodes) {
		var cyclic []string
		for name, deg := range inDegree {
			if deg > 0 {
				cyclic = append(cyclic, name)
			}
		}
		sort.Strings(cyclic)
		return nil, &Invalid{Kind: KindCycle, Detail: fmt.Sprintf("involves %v", cyclic), Signals: cyclic}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if depth[result[i]] != depth[result[j]] {
			return depth[result[i]] < depth[result[j]]
		}
		return nodes[result[i]].index < nodes[result[j]].index
	})
	return result, nil
}

func sortByIndex(names []string, nodes map[string]*node) {
	sort.Slice(names, func(i, j int) bool {
		return nodes[names[i]].index < nodes[names[j]].index
	})
}

// Order returns the full signal set in topological order (depth
// primary, registration index secondary).
func (g *Graph) Order() []*signal.Signal {
	out := make([]*signal.Signal, len(g.order))
	for i, name := range g.order {
		out[i] = g.nodes[name].sig
	}
	return out
}

// Names returns the topological order of signal names.
func (g *Graph) Names() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Dependencies returns the names a signal directly depends on.
func (g *Graph) Dependencies(name string) []string {
	return append([]string(nil), g.nodes[name].dependsOn...)
}

// Dependents returns the names that directly depend on a signal.
func (g *Graph) Dependents(name string) []string {
	return append([]string(nil), g.nodes[name].dependents...)
}

// TransitiveDependents returns every signal, direct or indirect, that
// depends on name, used for cancel_dependents_on_failure propagation.
func (g *Graph) TransitiveDependents(name string) []string {
	seen := make(map[string]bool)
	var walk func(string)
	walk = func(n string) {
		for _, dep := range g.nodes[n].dependents {
			if !seen[dep] {
				seen[dep] = true
				walk(dep)
			}
		}
	}
	walk(name)
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sortByIndex(out, g.nodes)
	return out
}

// Roots returns signals with no predecessors (dependencies).
func (g *Graph) Roots() []string {
	var out []string
	for _, name := range g.order {
		if len(g.nodes[name].dependsOn) == 0 {
			out = append(out, name)
		}
	}
	return out
}

// Leaves returns signals with no successors (dependents).
func (g *Graph) Leaves() []string {
	var out []string
	for _, name := range g.order {
		if len(g.nodes[name].dependents) == 0 {
			out = append(out, name)
		}
	}
	return out
}

// Signal looks up a signal by name.
func (g *Graph) Signal(name string) *signal.Signal {
	n, ok := g.nodes[name]
	if !ok {
		return nil
	}
	return n.sig
}

// Len returns the number of signals in the graph.
func (g *Graph) Len() int { return len(g.order) }
