package cluster

import (
	"github.com/cartograph/carto/internal/graph"
	"github.com/cartograph/carto/internal/record"
)

// dependencyStrategy implements dependency-based clustering (analysis
// mode): greedy agglomerative merging over graph edges, followed by a
// hub-file overlap pass. This is the only strategy producing non-empty
// overlap sets.
type dependencyStrategy struct{}

func (s *dependencyStrategy) Name() string { return "dependency" }

func (s *dependencyStrategy) Partition(store *record.Store, g *graph.Graph, cfg Config, groups [][]string) ([]*Cluster, error) {
	state := newMergeState(g, g.Nodes(), groups, cfg.SizeCap)
	state.run()
	units := state.result()

	clusters := make([]*Cluster, 0, len(units))
	for _, u := range units {
		clusters = append(clusters, &Cluster{Files: u.files})
	}

	s.addHubOverlap(g, cfg, clusters)
	return clusters, nil
}

// addHubOverlap identifies hub files — files whose aggregate edge weight
// to two or more distinct clusters exceeds the overlap threshold — and
// adds each as an overlap member of every foreign cluster it is strongly
// connected to. Overlap members are metadata only: the file stays in its
// primary cluster and its bytes are counted there once, never against
// the receiving cluster's cap.
func (s *dependencyStrategy) addHubOverlap(g *graph.Graph, cfg Config, clusters []*Cluster) {
	primary := make(map[string]int)
	for i, c := range clusters {
		for _, path := range c.Files {
			primary[path] = i
		}
	}

	for _, path := range g.Nodes() {
		home := primary[path]

		strong := 0
		var foreign []int
		for i, c := range clusters {
			w := weightTo(g, path, c.Files)
			if w >= cfg.OverlapThreshold {
				strong++
				if i != home {
					foreign = append(foreign, i)
				}
			}
		}

		// Hub: strongly connected to at least two distinct clusters.
		if strong < 2 {
			continue
		}
		for _, i := range foreign {
			clusters[i].Overlap = append(clusters[i].Overlap, path)
		}
	}
}
