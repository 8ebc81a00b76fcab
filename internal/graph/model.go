// Package graph provides the file dependency graph for carto.
//
// It defines the weighted directed graph over file records that the
// clustering engine consumes: nodes are repo-relative file paths, edges
// aggregate import and call/usage relationships between two files. The
// graph is built once per analysis run and is read-only afterwards.
package graph

import "sort"

// EdgeKind represents the kind of relationship contributing to an edge.
type EdgeKind string

const (
	EdgeImport      EdgeKind = "import"
	EdgeCall        EdgeKind = "call"
	EdgeInheritance EdgeKind = "inheritance"
)

// Edge is a directed, weighted dependency between two files.
//
// Parallel relationships between the same pair collapse into a single
// edge: Weight sums import references at weight 1 and call/usage and
// inheritance references at weight 2, since resolved references indicate
// tighter coupling than a bare import.
type Edge struct {
	// From is the source file path.
	From string

	// To is the target file path.
	To string

	// Weight is the aggregate edge weight (>= 1).
	Weight int

	// Imports is the number of import references behind this edge.
	Imports int

	// Calls is the number of call/usage references behind this edge.
	Calls int

	// Inherits is the number of inheritance references behind this edge.
	Inherits int
}

type edgeKey struct {
	from, to string
}

// Graph is the dependency graph over one analysis run's file records.
//
// All accessors return deterministically ordered results so that the
// clustering engine produces identical output for identical input.
type Graph struct {
	nodes    []string
	nodeSet  map[string]bool
	sizes    map[string]int64
	edges    map[edgeKey]*Edge
	outgoing map[string]map[string]*Edge
	incoming map[string]map[string]*Edge
	external map[string][]string
}

func newGraph() *Graph {
	return &Graph{
		nodeSet:  make(map[string]bool),
		sizes:    make(map[string]int64),
		edges:    make(map[edgeKey]*Edge),
		outgoing: make(map[string]map[string]*Edge),
		incoming: make(map[string]map[string]*Edge),
		external: make(map[string][]string),
	}
}

func (g *Graph) addNode(path string, size int64) {
	if g.nodeSet[path] {
		return
	}
	g.nodeSet[path] = true
	g.nodes = append(g.nodes, path)
	g.sizes[path] = size
}

// addWeight accumulates weight on the collapsed edge for (from, to).
// Self-loops are dropped: they carry no clustering signal.
func (g *Graph) addWeight(from, to string, kind EdgeKind, weight int) {
	if from == to || !g.nodeSet[from] || !g.nodeSet[to] {
		return
	}

	key := edgeKey{from, to}
	edge, ok := g.edges[key]
	if !ok {
		edge = &Edge{From: from, To: to}
		g.edges[key] = edge
		if g.outgoing[from] == nil {
			g.outgoing[from] = make(map[string]*Edge)
		}
		g.outgoing[from][to] = edge
		if g.incoming[to] == nil {
			g.incoming[to] = make(map[string]*Edge)
		}
		g.incoming[to][from] = edge
	}

	edge.Weight += weight
	switch kind {
	case EdgeImport:
		edge.Imports++
	case EdgeCall:
		edge.Calls++
	case EdgeInheritance:
		edge.Inherits++
	}
}

func (g *Graph) addExternal(path, target string) {
	for _, existing := range g.external[path] {
		if existing == target {
			return
		}
	}
	g.external[path] = append(g.external[path], target)
}

// NodeCount returns the number of file nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of collapsed edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Nodes returns all file paths in sorted order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.nodes))
	copy(out, g.nodes)
	sort.Strings(out)
	return out
}

// HasNode reports whether the path is a node in the graph.
func (g *Graph) HasNode(path string) bool {
	return g.nodeSet[path]
}

// Size returns the byte size of the file at path.
func (g *Graph) Size(path string) int64 {
	return g.sizes[path]
}

// TotalSize returns the summed byte size of all nodes.
func (g *Graph) TotalSize() int64 {
	var total int64
	for _, size := range g.sizes {
		total += size
	}
	return total
}

// Weight returns the directed edge weight from one file to another,
// or 0 if no edge exists.
func (g *Graph) Weight(from, to string) int {
	if edge, ok := g.edges[edgeKey{from, to}]; ok {
		return edge.Weight
	}
	return 0
}

// PairWeight returns the combined weight between two files in either
// direction.
func (g *Graph) PairWeight(a, b string) int {
	return g.Weight(a, b) + g.Weight(b, a)
}

// Edges returns all edges sorted by (from, to).
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, 0, len(g.edges))
	for _, edge := range g.edges {
		out = append(out, edge)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// Successors returns the targets of outgoing edges from path, sorted.
func (g *Graph) Successors(path string) []string {
	return sortedNeighborKeys(g.outgoing[path])
}

// Predecessors returns the sources of incoming edges to path, sorted.
func (g *Graph) Predecessors(path string) []string {
	return sortedNeighborKeys(g.incoming[path])
}

// Neighbors returns all files connected to path in either direction,
// sorted and deduplicated. Used for weight-blind connectivity.
func (g *Graph) Neighbors(path string) []string {
	seen := make(map[string]bool)
	for to := range g.outgoing[path] {
		seen[to] = true
	}
	for from := range g.incoming[path] {
		seen[from] = true
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// External returns the unresolved import targets recorded for path,
// sorted. These never become edges; they are display metadata only.
func (g *Graph) External(path string) []string {
	out := make([]string, len(g.external[path]))
	copy(out, g.external[path])
	sort.Strings(out)
	return out
}

func sortedNeighborKeys(m map[string]*Edge) []string {
	out := make([]string, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
