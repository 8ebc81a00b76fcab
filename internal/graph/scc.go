package graph

import "sort"

// CycleEdge is one edge participating in a circular dependency.
type CycleEdge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Weight int    `json:"weight"`
}

// CycleFinding reports one cycle group: a strongly connected component
// with more than one member, together with the edges forming the cycle.
type CycleFinding struct {
	// Files is the sorted member list of the cycle group.
	Files []string `json:"files"`

	// Size is the summed byte size of the members.
	Size int64 `json:"size"`

	// Edges are the graph edges internal to the group, sorted.
	Edges []CycleEdge `json:"edges"`
}

// tarjanState holds the state for Tarjan's SCC algorithm.
type tarjanState struct {
	g       *Graph
	index   int
	indexOf map[string]int
	lowlink map[string]int
	onStack map[string]bool
	stack   []string
	sccs    [][]string
}

// CycleGroups computes the strongly connected components of the graph
// with Tarjan's algorithm and returns those with more than one member.
//
// Each group is sorted internally and groups are sorted by their first
// member, so the result is identical for identical input regardless of
// construction order.
func (g *Graph) CycleGroups() [][]string {
	state := &tarjanState{
		g:       g,
		indexOf: make(map[string]int),
		lowlink: make(map[string]int),
		onStack: make(map[string]bool),
	}

	for _, node := range g.Nodes() {
		if _, visited := state.indexOf[node]; !visited {
			state.strongConnect(node)
		}
	}

	var groups [][]string
	for _, scc := range state.sccs {
		if len(scc) < 2 {
			continue
		}
		sorted := make([]string, len(scc))
		copy(sorted, scc)
		sort.Strings(sorted)
		groups = append(groups, sorted)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i][0] < groups[j][0]
	})
	return groups
}

func (s *tarjanState) strongConnect(v string) {
	s.indexOf[v] = s.index
	s.lowlink[v] = s.index
	s.index++
	s.stack = append(s.stack, v)
	s.onStack[v] = true

	for _, w := range s.g.Successors(v) {
		if _, visited := s.indexOf[w]; !visited {
			s.strongConnect(w)
			if s.lowlink[w] < s.lowlink[v] {
				s.lowlink[v] = s.lowlink[w]
			}
		} else if s.onStack[w] {
			if s.indexOf[w] < s.lowlink[v] {
				s.lowlink[v] = s.indexOf[w]
			}
		}
	}

	// v is a component root: pop the stack down to v.
	if s.lowlink[v] == s.indexOf[v] {
		var scc []string
		for {
			w := s.stack[len(s.stack)-1]
			s.stack = s.stack[:len(s.stack)-1]
			s.onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		s.sccs = append(s.sccs, scc)
	}
}

// CycleFindings returns the full circular-dependency report for the
// graph: every cycle group with its aggregate size and internal edges.
func (g *Graph) CycleFindings() []CycleFinding {
	groups := g.CycleGroups()
	findings := make([]CycleFinding, 0, len(groups))

	for _, group := range groups {
		members := make(map[string]bool, len(group))
		var size int64
		for _, path := range group {
			members[path] = true
			size += g.Size(path)
		}

		var edges []CycleEdge
		for _, path := range group {
			for _, to := range g.Successors(path) {
				if members[to] {
					edges = append(edges, CycleEdge{From: path, To: to, Weight: g.Weight(path, to)})
				}
			}
		}
		sort.Slice(edges, func(i, j int) bool {
			if edges[i].From != edges[j].From {
				return edges[i].From < edges[j].From
			}
			return edges[i].To < edges[j].To
		})

		findings = append(findings, CycleFinding{Files: group, Size: size, Edges: edges})
	}

	return findings
}

// ConnectedComponents returns the weakly connected components of the
// graph, ignoring edge direction and weight. Components are sorted
// internally and ordered by descending total size, then first member.
func (g *Graph) ConnectedComponents() [][]string {
	visited := make(map[string]bool)
	var components [][]string

	for _, start := range g.Nodes() {
		if visited[start] {
			continue
		}
		var component []string
		queue := []string{start}
		visited[start] = true
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			component = append(component, node)
			for _, next := range g.Neighbors(node) {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
		sort.Strings(component)
		components = append(components, component)
	}

	sort.Slice(components, func(i, j int) bool {
		sizeI := g.groupSize(components[i])
		sizeJ := g.groupSize(components[j])
		if sizeI != sizeJ {
			return sizeI > sizeJ
		}
		return components[i][0] < components[j][0]
	})
	return components
}

func (g *Graph) groupSize(paths []string) int64 {
	var total int64
	for _, path := range paths {
		total += g.Size(path)
	}
	return total
}
