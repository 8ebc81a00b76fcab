// Package index builds the published cluster index for carto.
//
// It derives cross-cluster dependency edges, repository summary counts,
// and task-oriented cluster recommendations from a finished cluster set.
// Everything in the index is advisory, derived metadata: building the
// index never changes cluster membership.
package index

import (
	"sort"

	"github.com/cartograph/carto/internal/cluster"
	"github.com/cartograph/carto/internal/graph"
	"github.com/cartograph/carto/internal/record"
)

// Strength tiers for cross-cluster dependencies.
const (
	StrengthLow    = "low"
	StrengthMedium = "medium"
	StrengthHigh   = "high"
)

// Thresholds separates the strength tiers. The boundaries are tunable
// configuration, not derived invariants.
type Thresholds struct {
	// Medium is the minimum aggregate weight for the medium tier.
	Medium int `json:"medium"`

	// High is the minimum aggregate weight for the high tier.
	High int `json:"high"`
}

// DefaultThresholds returns the documented default tier boundaries:
// weight < 4 is low, 4-10 is medium, above 10 is high.
func DefaultThresholds() Thresholds {
	return Thresholds{Medium: 4, High: 11}
}

func (t Thresholds) classify(weight int) string {
	switch {
	case weight >= t.High:
		return StrengthHigh
	case weight >= t.Medium:
		return StrengthMedium
	default:
		return StrengthLow
	}
}

// CrossDependency is the aggregate dependency between two clusters.
//
// Weight sums every file-level edge crossing the boundary in either
// direction, so the value is symmetric; one entry is emitted per
// unordered pair, with Source the lower cluster id.
type CrossDependency struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Weight   int    `json:"weight"`
	Strength string `json:"strength"`
}

// Task names for cluster recommendations, matching the consumers'
// vocabulary.
const (
	TaskUnderstanding  = "understanding_codebase"
	TaskMakingChanges  = "making_changes"
	TaskFindingBugs    = "finding_bugs"
	TaskAddingFeatures = "adding_features"
)

// Summary holds repository-level counts.
type Summary struct {
	TotalFiles    int    `json:"total_files"`
	TotalClusters int    `json:"total_clusters"`
	TotalSize     int64  `json:"total_size"`
	Mode          string `json:"mode"`
	SizeCap       int64  `json:"size_cap"`
	CycleGroups   int    `json:"cycle_groups"`
	Oversized     int    `json:"oversized_clusters"`
}

// Index is the single externally published artifact of an analysis run.
type Index struct {
	Summary           Summary               `json:"summary"`
	Clusters          []*cluster.Cluster    `json:"clusters"`
	CrossDependencies []CrossDependency     `json:"cross_dependencies"`
	Recommendations   map[string][]string   `json:"cluster_recommendations"`
	Cycles            []graph.CycleFinding  `json:"cycles,omitempty"`
	Diagnostics       []record.Diagnostic   `json:"diagnostics,omitempty"`
}

// Build assembles the index from the cluster set. The cluster slice is
// referenced, not copied; it must not be mutated afterwards.
func Build(store *record.Store, g *graph.Graph, clusters []*cluster.Cluster, cfg cluster.Config, tiers Thresholds) *Index {
	idx := &Index{
		Clusters:        clusters,
		Recommendations: map[string][]string{},
	}

	cycles := g.CycleFindings()
	idx.Cycles = cycles

	oversized := 0
	for _, c := range clusters {
		if c.Oversized {
			oversized++
		}
	}
	idx.Summary = Summary{
		TotalFiles:    g.NodeCount(),
		TotalClusters: len(clusters),
		TotalSize:     g.TotalSize(),
		Mode:          string(cfg.Mode),
		SizeCap:       cfg.SizeCap,
		CycleGroups:   len(cycles),
		Oversized:     oversized,
	}

	idx.CrossDependencies = crossDependencies(g, clusters, tiers)
	idx.Recommendations = recommendations(store, clusters, idx.CrossDependencies)
	idx.Diagnostics = store.Diagnostics()

	return idx
}

// crossDependencies aggregates file-level edge weight across every
// cluster boundary. Overlap membership is metadata and does not move a
// file's edges: only primary membership counts.
func crossDependencies(g *graph.Graph, clusters []*cluster.Cluster, tiers Thresholds) []CrossDependency {
	primary := make(map[string]int)
	for i, c := range clusters {
		for _, path := range c.Files {
			primary[path] = i
		}
	}

	type key struct{ a, b int }
	weights := make(map[key]int)
	for _, edge := range g.Edges() {
		from, fromOK := primary[edge.From]
		to, toOK := primary[edge.To]
		if !fromOK || !toOK || from == to {
			continue
		}
		if from > to {
			from, to = to, from
		}
		weights[key{from, to}] += edge.Weight
	}

	deps := make([]CrossDependency, 0, len(weights))
	for k, weight := range weights {
		deps = append(deps, CrossDependency{
			Source:   clusters[k.a].ID,
			Target:   clusters[k.b].ID,
			Weight:   weight,
			Strength: tiers.classify(weight),
		})
	}
	sort.Slice(deps, func(i, j int) bool {
		if deps[i].Source != deps[j].Source {
			return deps[i].Source < deps[j].Source
		}
		return deps[i].Target < deps[j].Target
	})
	return deps
}

// recommendations ranks clusters per task. A task whose scoring signal
// is zero for every cluster gets an empty list rather than an arbitrary
// ordering.
func recommendations(store *record.Store, clusters []*cluster.Cluster, deps []CrossDependency) map[string][]string {
	coupling := make(map[string]int)
	for _, d := range deps {
		coupling[d.Source] += d.Weight
		coupling[d.Target] += d.Weight
	}

	exported := make(map[string]int)
	for _, c := range clusters {
		for _, path := range c.Files {
			if rec := store.Get(path); rec != nil {
				exported[c.ID] += rec.ExportedSymbols()
			}
		}
	}

	recs := map[string][]string{
		// Understanding starts from the largest well-connected clusters,
		// so coupling is weighted by member bytes. Isolated clusters score
		// zero regardless of size.
		TaskUnderstanding: rank(clusters, func(c *cluster.Cluster) int {
			return coupling[c.ID] * int(c.Size)
		}),
		// Changes are safest in the most self-contained clusters, so
		// rank by coupling ascending. Score inverted to keep the shared
		// "zero signal" convention meaningful.
		TaskMakingChanges: rankAscending(clusters, func(c *cluster.Cluster) int {
			return coupling[c.ID]
		}),
		// Bug hunts start where the complexity concentrates.
		TaskFindingBugs: rank(clusters, func(c *cluster.Cluster) int {
			return c.Complexity
		}),
		// Feature work starts at the largest public surface.
		TaskAddingFeatures: rank(clusters, func(c *cluster.Cluster) int {
			return exported[c.ID]
		}),
	}
	return recs
}

// rank orders cluster ids by score descending, ties by cluster id. When
// every score is zero the task has no ranking signal and the list is
// empty.
func rank(clusters []*cluster.Cluster, score func(*cluster.Cluster) int) []string {
	anySignal := false
	for _, c := range clusters {
		if score(c) != 0 {
			anySignal = true
			break
		}
	}
	if !anySignal {
		return []string{}
	}

	ids := make([]string, 0, len(clusters))
	byID := make(map[string]*cluster.Cluster, len(clusters))
	for _, c := range clusters {
		ids = append(ids, c.ID)
		byID[c.ID] = c
	}
	sort.Slice(ids, func(i, j int) bool {
		si, sj := score(byID[ids[i]]), score(byID[ids[j]])
		if si != sj {
			return si > sj
		}
		return ids[i] < ids[j]
	})
	return ids
}

// rankAscending orders cluster ids by score ascending, ties by cluster
// id. With a single cluster there is no ranking signal.
func rankAscending(clusters []*cluster.Cluster, score func(*cluster.Cluster) int) []string {
	if len(clusters) < 2 {
		return []string{}
	}

	ids := make([]string, 0, len(clusters))
	byID := make(map[string]*cluster.Cluster, len(clusters))
	for _, c := range clusters {
		ids = append(ids, c.ID)
		byID[c.ID] = c
	}
	sort.Slice(ids, func(i, j int) bool {
		si, sj := score(byID[ids[i]]), score(byID[ids[j]])
		if si != sj {
			return si < sj
		}
		return ids[i] < ids[j]
	})
	return ids
}
