package cluster

import (
	"sort"

	"github.com/cartograph/carto/internal/graph"
	"github.com/cartograph/carto/internal/record"
)

// featureStrategy implements feature-based clustering (refactoring
// mode): files are partitioned by purpose classification, and any bucket
// exceeding the size cap is split further by connectivity using the same
// agglomerative merge restricted to the bucket. Strict partition: every
// file belongs to exactly one cluster, no overlap.
type featureStrategy struct{}

func (s *featureStrategy) Name() string { return "feature" }

func (s *featureStrategy) Partition(store *record.Store, g *graph.Graph, cfg Config, groups [][]string) ([]*Cluster, error) {
	// A cycle group must stay whole, so the whole group takes the
	// dominant classification of its members.
	groupOf := make(map[string]int)
	for i, group := range groups {
		for _, path := range group {
			groupOf[path] = i
		}
	}

	buckets := make(map[string][]string)
	assigned := make(map[string]bool)
	for _, path := range g.Nodes() {
		if assigned[path] {
			continue
		}
		if gi, ok := groupOf[path]; ok {
			group := groups[gi]
			tag := dominantPurpose(store, group)
			buckets[tag] = append(buckets[tag], group...)
			for _, member := range group {
				assigned[member] = true
			}
			continue
		}
		tag := Classify(store.Get(path))
		buckets[tag] = append(buckets[tag], path)
		assigned[path] = true
	}

	tags := make([]string, 0, len(buckets))
	for tag := range buckets {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	var clusters []*Cluster
	for _, tag := range tags {
		files := buckets[tag]
		sort.Strings(files)

		if bucketSize(g, files) <= cfg.SizeCap {
			clusters = append(clusters, &Cluster{Files: files, Purpose: tag})
			continue
		}

		// Oversize bucket: split by connectivity within the bucket.
		state := newMergeState(g, files, groups, cfg.SizeCap)
		state.run()
		for _, u := range state.result() {
			clusters = append(clusters, &Cluster{Files: u.files, Purpose: tag})
		}
	}

	return clusters, nil
}

func bucketSize(g *graph.Graph, files []string) int64 {
	var total int64
	for _, path := range files {
		total += g.Size(path)
	}
	return total
}
