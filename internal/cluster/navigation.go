package cluster

import (
	"sort"

	"github.com/cartograph/carto/internal/graph"
	"github.com/cartograph/carto/internal/record"
)

// sizeStrategy implements size-optimized clustering (navigation mode):
// bin-packing-style balancing that assigns connected components, largest
// first, to the least-full bin, splitting a component only when it alone
// exceeds the cap. Goal: minimize the variance of cluster sizes. Strict
// partition, no overlap.
type sizeStrategy struct{}

func (s *sizeStrategy) Name() string { return "size" }

type bin struct {
	files []string
	size  int64
}

func (s *sizeStrategy) Partition(store *record.Store, g *graph.Graph, cfg Config, groups [][]string) ([]*Cluster, error) {
	total := g.TotalSize()
	target := int((total + cfg.SizeCap - 1) / cfg.SizeCap)
	if target < 1 {
		target = 1
	}

	bins := make([]*bin, target)
	for i := range bins {
		bins[i] = &bin{}
	}

	for _, component := range g.ConnectedComponents() {
		size := bucketSize(g, component)
		if size <= cfg.SizeCap {
			bins = placePiece(bins, component, size, cfg.SizeCap)
			continue
		}

		// Component over cap: split along the weakest edges by merging
		// the strongest edges first under the cap, preserving cycle
		// groups, then place the resulting pieces largest first.
		state := newMergeState(g, component, groups, cfg.SizeCap)
		state.run()
		pieces := state.result()
		sort.Slice(pieces, func(i, j int) bool {
			if pieces[i].size != pieces[j].size {
				return pieces[i].size > pieces[j].size
			}
			return pieces[i].files[0] < pieces[j].files[0]
		})
		for _, piece := range pieces {
			bins = placePiece(bins, piece.files, piece.size, cfg.SizeCap)
		}
	}

	var clusters []*Cluster
	for _, b := range bins {
		if len(b.files) == 0 {
			continue
		}
		files := make([]string, len(b.files))
		copy(files, b.files)
		clusters = append(clusters, &Cluster{Files: files})
	}
	return clusters, nil
}

// placePiece assigns a piece to the least-full bin it fits in, ties
// broken by lower bin index. A piece no existing bin can hold opens a
// new bin; a piece alone over the cap gets its own bin and is flagged
// oversized during finalization.
func placePiece(bins []*bin, files []string, size, sizeCap int64) []*bin {
	best := -1
	for i, b := range bins {
		if b.size+size > sizeCap {
			continue
		}
		if best < 0 || b.size < bins[best].size {
			best = i
		}
	}

	if best < 0 {
		bins = append(bins, &bin{})
		best = len(bins) - 1
	}

	bins[best].files = append(bins[best].files, files...)
	bins[best].size += size
	return bins
}
