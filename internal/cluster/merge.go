package cluster

import (
	"sort"

	"github.com/cartograph/carto/internal/graph"
)

// unit is a working cluster during agglomerative merging. Units start as
// cycle groups and singletons; merging absorbs the higher-id unit into
// the lower-id one.
type unit struct {
	id    int
	files []string
	size  int64
}

type unitPair struct {
	low, high int
}

// mergeState holds the exclusive working state of one agglomerative
// merge pass. It is single-threaded by design: each merge changes the
// candidates for the next.
type mergeState struct {
	g       *graph.Graph
	cap     int64
	units   map[int]*unit
	weights map[unitPair]int
}

// newMergeState seeds units from the cycle groups and the remaining
// singletons within the given file subset. Unit ids are assigned by the
// sorted order of each unit's smallest member path, which makes them
// independent of insertion order.
func newMergeState(g *graph.Graph, files []string, groups [][]string, cap int64) *mergeState {
	inSubset := make(map[string]bool, len(files))
	for _, path := range files {
		inSubset[path] = true
	}

	grouped := make(map[string]bool)
	var seeds [][]string
	for _, group := range groups {
		if !inSubset[group[0]] {
			continue
		}
		seeds = append(seeds, group)
		for _, path := range group {
			grouped[path] = true
		}
	}
	for _, path := range files {
		if !grouped[path] {
			seeds = append(seeds, []string{path})
		}
	}
	sort.Slice(seeds, func(i, j int) bool {
		return seeds[i][0] < seeds[j][0]
	})

	s := &mergeState{
		g:       g,
		cap:     cap,
		units:   make(map[int]*unit, len(seeds)),
		weights: make(map[unitPair]int),
	}

	owner := make(map[string]int)
	for id, seed := range seeds {
		files := make([]string, len(seed))
		copy(files, seed)
		sort.Strings(files)
		u := &unit{id: id, files: files}
		for _, path := range files {
			u.size += g.Size(path)
			owner[path] = id
		}
		s.units[id] = u
	}

	for _, edge := range g.Edges() {
		from, fromOK := owner[edge.From]
		to, toOK := owner[edge.To]
		if !fromOK || !toOK || from == to {
			continue
		}
		s.weights[pairOf(from, to)] += edge.Weight
	}

	return s
}

func pairOf(a, b int) unitPair {
	if a < b {
		return unitPair{a, b}
	}
	return unitPair{b, a}
}

// bestPair returns the mergeable pair with the highest aggregate weight.
// Ties break toward the lower combined cluster id: the pair with the
// smaller low id, then the smaller high id. Returns false when no merge
// fits under the cap.
func (s *mergeState) bestPair() (unitPair, bool) {
	var best unitPair
	bestWeight := 0

	for pair, weight := range s.weights {
		if weight <= 0 {
			continue
		}
		if s.units[pair.low].size+s.units[pair.high].size > s.cap {
			continue
		}
		if weight > bestWeight ||
			(weight == bestWeight && (pair.low < best.low || (pair.low == best.low && pair.high < best.high))) {
			best = pair
			bestWeight = weight
		}
	}

	return best, bestWeight > 0
}

// merge absorbs the high unit of the pair into the low unit and folds
// the high unit's aggregate weights into the survivor.
func (s *mergeState) merge(pair unitPair) {
	low := s.units[pair.low]
	high := s.units[pair.high]

	low.files = append(low.files, high.files...)
	sort.Strings(low.files)
	low.size += high.size
	delete(s.units, pair.high)
	delete(s.weights, pair)

	for other := range s.units {
		if other == pair.low {
			continue
		}
		key := pairOf(pair.high, other)
		if w, ok := s.weights[key]; ok {
			delete(s.weights, key)
			s.weights[pairOf(pair.low, other)] += w
		}
	}
}

// run merges until no further merge is possible under the cap.
func (s *mergeState) run() {
	for {
		pair, ok := s.bestPair()
		if !ok {
			return
		}
		s.merge(pair)
	}
}

// result returns the live units ordered by their smallest member path.
func (s *mergeState) result() []*unit {
	out := make([]*unit, 0, len(s.units))
	for _, u := range s.units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].files[0] < out[j].files[0]
	})
	return out
}

// weightTo returns the aggregate weight between a single file and a set
// of files, counting both directions.
func weightTo(g *graph.Graph, path string, files []string) int {
	total := 0
	for _, other := range files {
		if other == path {
			continue
		}
		total += g.PairWeight(path, other)
	}
	return total
}
