// Package cluster implements the clustering engine for carto.
//
// It partitions the file dependency graph into bounded-size clusters
// using one of three strategies: dependency-based (analysis mode),
// feature-based (refactoring mode), and size-optimized (navigation
// mode). Cycle groups detected by the graph layer are hard constraints:
// their members are never split across clusters, in any strategy.
package cluster

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cartograph/carto/internal/graph"
	"github.com/cartograph/carto/internal/keywords"
	"github.com/cartograph/carto/internal/record"
)

// Mode selects the clustering strategy.
type Mode string

const (
	// ModeAnalysis is dependency-based clustering for code understanding.
	ModeAnalysis Mode = "analysis"

	// ModeRefactoring is feature-based clustering for targeted changes.
	ModeRefactoring Mode = "refactoring"

	// ModeNavigation is size-optimized clustering for large codebases.
	ModeNavigation Mode = "navigation"
)

// DefaultSizeCap is the default cluster size cap in bytes (15 KB).
const DefaultSizeCap int64 = 15 * 1024

// DefaultOverlapThreshold is the default minimum aggregate edge weight a
// hub file needs toward a cluster to be included as an overlap member.
const DefaultOverlapThreshold = 5

// Config holds the clustering engine configuration.
type Config struct {
	// Mode is the clustering strategy selector.
	Mode Mode

	// SizeCap is the target cluster size cap in bytes.
	SizeCap int64

	// OverlapThreshold is the hub-file overlap weight threshold
	// (analysis mode only).
	OverlapThreshold int
}

// Validate rejects invalid configuration before any computation starts.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeAnalysis, ModeRefactoring, ModeNavigation:
	default:
		return fmt.Errorf("unknown clustering mode %q (want analysis, refactoring, or navigation)", c.Mode)
	}
	if c.SizeCap <= 0 {
		return fmt.Errorf("cluster size cap must be positive, got %d", c.SizeCap)
	}
	if c.OverlapThreshold < 1 {
		return fmt.Errorf("overlap threshold must be >= 1, got %d", c.OverlapThreshold)
	}
	return nil
}

// Cluster is one bounded-size group of files.
//
// Overlap holds hub files that also belong to other clusters; it is only
// non-empty in analysis mode. Overlap members are metadata: their bytes
// count toward their primary cluster's size only, never a second time.
type Cluster struct {
	// ID is the deterministic cluster identifier (e.g. "cluster_001").
	ID string `json:"id"`

	// Name is a human-readable label derived from the dominant
	// directory and purpose of the members.
	Name string `json:"name"`

	// Purpose is the dominant purpose tag of the members.
	Purpose string `json:"purpose"`

	// Files is the sorted list of member paths. Never empty.
	Files []string `json:"files"`

	// Overlap is the sorted list of hub files included from other
	// clusters (analysis mode only).
	Overlap []string `json:"overlap,omitempty"`

	// Size is the summed byte size of the members (overlap excluded).
	Size int64 `json:"size"`

	// Complexity is the summed complexity score of the members.
	Complexity int `json:"complexity"`

	// Keywords are the highest-scoring distinctive terms of the members,
	// extracted from symbol names and paths.
	Keywords []string `json:"keywords,omitempty"`

	// Oversized flags a cluster whose indivisible contents alone exceed
	// the cap. Oversized clusters are reported, never truncated.
	Oversized bool `json:"oversized,omitempty"`
}

// CycleCapError reports a cycle group whose own size exceeds the
// configured cap. Splitting the group would break the cycle-preservation
// invariant, so the run fails fast instead.
type CycleCapError struct {
	Files []string
	Size  int64
	Cap   int64
}

func (e *CycleCapError) Error() string {
	return fmt.Sprintf("cycle group [%s] has size %d bytes, exceeding the cluster size cap of %d bytes",
		strings.Join(e.Files, ", "), e.Size, e.Cap)
}

// Strategy produces a cluster set from the dependency graph under the
// size cap and cycle-group constraints.
type Strategy interface {
	// Name returns the strategy name.
	Name() string

	// Partition produces the cluster set. groups are the cycle groups;
	// every group's members must land in the same cluster.
	Partition(store *record.Store, g *graph.Graph, cfg Config, groups [][]string) ([]*Cluster, error)
}

// ForMode returns the strategy for the given mode.
func ForMode(mode Mode) (Strategy, error) {
	switch mode {
	case ModeAnalysis:
		return &dependencyStrategy{}, nil
	case ModeRefactoring:
		return &featureStrategy{}, nil
	case ModeNavigation:
		return &sizeStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown clustering mode %q", mode)
	}
}

// Partition runs the configured strategy over the graph and returns the
// finalized, deterministically ordered cluster set.
//
// A cycle group alone exceeding the cap is a configuration error. A
// single file exceeding the cap becomes its own cluster flagged
// oversized. An empty graph yields an empty cluster set, not an error.
func Partition(store *record.Store, g *graph.Graph, cfg Config) ([]*Cluster, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if g.NodeCount() == 0 {
		return nil, nil
	}

	groups := g.CycleGroups()
	for _, group := range groups {
		size := groupSize(g, group)
		if size > cfg.SizeCap {
			return nil, &CycleCapError{Files: group, Size: size, Cap: cfg.SizeCap}
		}
	}

	strategy, err := ForMode(cfg.Mode)
	if err != nil {
		return nil, err
	}

	clusters, err := strategy.Partition(store, g, cfg, groups)
	if err != nil {
		return nil, err
	}

	finalize(store, g, cfg, clusters)
	return clusters, nil
}

// finalize orders clusters by their first member path, assigns ids and
// names, and computes aggregate metadata and the oversized flag.
func finalize(store *record.Store, g *graph.Graph, cfg Config, clusters []*Cluster) {
	for _, c := range clusters {
		sort.Strings(c.Files)
		sort.Strings(c.Overlap)

		c.Size = 0
		c.Complexity = 0
		for _, path := range c.Files {
			c.Size += g.Size(path)
			if rec := store.Get(path); rec != nil {
				c.Complexity += rec.Complexity
			}
		}
		c.Oversized = c.Size > cfg.SizeCap
	}

	sort.Slice(clusters, func(i, j int) bool {
		return clusters[i].Files[0] < clusters[j].Files[0]
	})

	extractor := keywords.NewExtractor(store)
	for i, c := range clusters {
		c.ID = fmt.Sprintf("cluster_%03d", i+1)
		if c.Purpose == "" {
			c.Purpose = dominantPurpose(store, c.Files)
		}
		c.Name = clusterName(c.Files, c.Purpose)
		c.Keywords = extractor.Top(c.Files, keywords.DefaultCount)
	}
}

// clusterName derives a readable cluster label from the dominant
// directory of the members and the purpose tag.
func clusterName(files []string, purpose string) string {
	counts := make(map[string]int)
	for _, path := range files {
		counts[dirOf(path)]++
	}

	dirs := make([]string, 0, len(counts))
	for dir := range counts {
		dirs = append(dirs, dir)
	}
	sort.Slice(dirs, func(i, j int) bool {
		if counts[dirs[i]] != counts[dirs[j]] {
			return counts[dirs[i]] > counts[dirs[j]]
		}
		return dirs[i] < dirs[j]
	})

	dir := dirs[0]
	if dir == "." {
		return purpose
	}
	return fmt.Sprintf("%s (%s)", dir, purpose)
}

func dirOf(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "."
	}
	return path[:idx]
}

func groupSize(g *graph.Graph, paths []string) int64 {
	var total int64
	for _, path := range paths {
		total += g.Size(path)
	}
	return total
}
