package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartograph/carto/internal/cluster"
	"github.com/cartograph/carto/internal/graph"
	"github.com/cartograph/carto/internal/record"
)

func buildFixture(t *testing.T, mode cluster.Mode, cap int64, records ...*record.FileRecord) (*record.Store, *graph.Graph, []*cluster.Cluster) {
	t.Helper()

	store := record.NewStore()
	for _, rec := range records {
		store.Add(rec)
	}
	store.Seal()

	g := graph.Build(store)
	cfg := cluster.Config{Mode: mode, SizeCap: cap, OverlapThreshold: cluster.DefaultOverlapThreshold}
	clusters, err := cluster.Partition(store, g, cfg)
	require.NoError(t, err)
	return store, g, clusters
}

func TestThresholds_Classify(t *testing.T) {
	t.Parallel()

	tiers := DefaultThresholds()

	assert.Equal(t, StrengthLow, tiers.classify(1))
	assert.Equal(t, StrengthLow, tiers.classify(3))
	assert.Equal(t, StrengthMedium, tiers.classify(4))
	assert.Equal(t, StrengthMedium, tiers.classify(10))
	assert.Equal(t, StrengthHigh, tiers.classify(11))
	assert.Equal(t, StrengthHigh, tiers.classify(50))
}

func TestBuild_SingleFileRepo(t *testing.T) {
	t.Parallel()

	store, g, clusters := buildFixture(t, cluster.ModeAnalysis, 1024,
		&record.FileRecord{Path: "main.py", Size: 120},
	)

	cfg := cluster.Config{Mode: cluster.ModeAnalysis, SizeCap: 1024, OverlapThreshold: cluster.DefaultOverlapThreshold}
	idx := Build(store, g, clusters, cfg, DefaultThresholds())

	assert.Equal(t, 1, idx.Summary.TotalFiles)
	assert.Equal(t, 1, idx.Summary.TotalClusters)
	assert.Empty(t, idx.CrossDependencies)

	// Tasks with no ranking signal report empty lists.
	assert.Empty(t, idx.Recommendations[TaskUnderstanding])
	assert.Empty(t, idx.Recommendations[TaskMakingChanges])
	assert.Empty(t, idx.Recommendations[TaskFindingBugs])
	assert.Empty(t, idx.Recommendations[TaskAddingFeatures])
}

func TestBuild_CrossDependencySymmetry(t *testing.T) {
	t.Parallel()

	// Two clusters with traffic in both directions across the boundary.
	store, g, clusters := buildFixture(t, cluster.ModeNavigation, 600,
		&record.FileRecord{Path: "a.py", Size: 500, Imports: []string{"b.py"}},
		&record.FileRecord{Path: "b.py", Size: 500},
	)
	require.Len(t, clusters, 2)

	cfg := cluster.Config{Mode: cluster.ModeNavigation, SizeCap: 600, OverlapThreshold: cluster.DefaultOverlapThreshold}
	idx := Build(store, g, clusters, cfg, DefaultThresholds())

	require.Len(t, idx.CrossDependencies, 1)
	dep := idx.CrossDependencies[0]

	// The aggregate equals the sum of file-level edges crossing the
	// boundary in either direction.
	want := 0
	for _, edge := range g.Edges() {
		want += edge.Weight
	}
	assert.Equal(t, want, dep.Weight)
	assert.Less(t, dep.Source, dep.Target)
}

func TestBuild_StrengthTiers(t *testing.T) {
	t.Parallel()

	// Many call references across the boundary push the weight into the
	// high tier.
	refs := make([]record.Reference, 6)
	for i := range refs {
		refs[i] = record.Reference{Name: "f", Kind: record.RefCall, Line: i + 1}
	}
	store, g, clusters := buildFixture(t, cluster.ModeNavigation, 600,
		&record.FileRecord{
			Path: "a.py", Size: 500,
			Symbols: []record.Symbol{{Name: "f", Kind: record.SymbolFunction, Visibility: record.VisibilityPublic}},
		},
		&record.FileRecord{Path: "b.py", Size: 500, Imports: []string{"a.py"}, References: refs},
	)
	require.Len(t, clusters, 2)

	cfg := cluster.Config{Mode: cluster.ModeNavigation, SizeCap: 600, OverlapThreshold: cluster.DefaultOverlapThreshold}
	idx := Build(store, g, clusters, cfg, DefaultThresholds())

	require.Len(t, idx.CrossDependencies, 1)
	assert.Equal(t, 13, idx.CrossDependencies[0].Weight) // 1 import + 6 calls x 2
	assert.Equal(t, StrengthHigh, idx.CrossDependencies[0].Strength)
}

func TestBuild_Recommendations(t *testing.T) {
	t.Parallel()

	store, g, clusters := buildFixture(t, cluster.ModeNavigation, 600,
		&record.FileRecord{
			Path: "complex.py", Size: 500, Complexity: 20,
			Symbols: []record.Symbol{{Name: "Busy", Kind: record.SymbolClass, Visibility: record.VisibilityPublic}},
		},
		&record.FileRecord{Path: "simple.py", Size: 500, Complexity: 1},
	)
	require.Len(t, clusters, 2)

	cfg := cluster.Config{Mode: cluster.ModeNavigation, SizeCap: 600, OverlapThreshold: cluster.DefaultOverlapThreshold}
	idx := Build(store, g, clusters, cfg, DefaultThresholds())

	var complexID, simpleID string
	for _, c := range clusters {
		if c.Files[0] == "complex.py" {
			complexID = c.ID
		} else {
			simpleID = c.ID
		}
	}

	// finding_bugs ranks by complexity descending.
	assert.Equal(t, []string{complexID, simpleID}, idx.Recommendations[TaskFindingBugs])
	// adding_features ranks by exported surface descending.
	assert.Equal(t, []string{complexID, simpleID}, idx.Recommendations[TaskAddingFeatures])
	// No cross-cluster edges: coupling tasks have no signal.
	assert.Empty(t, idx.Recommendations[TaskUnderstanding])
}

func TestBuild_UnderstandingWeighsSizeAndCoupling(t *testing.T) {
	t.Parallel()

	// One edge couples both clusters equally, so member bytes must
	// decide: the large cluster reads first despite its later id.
	store, g, clusters := buildFixture(t, cluster.ModeNavigation, 1000,
		&record.FileRecord{Path: "a.py", Size: 200},
		&record.FileRecord{Path: "z.py", Size: 900, Imports: []string{"a.py"}},
	)
	require.Len(t, clusters, 2)

	cfg := cluster.Config{Mode: cluster.ModeNavigation, SizeCap: 1000, OverlapThreshold: cluster.DefaultOverlapThreshold}
	idx := Build(store, g, clusters, cfg, DefaultThresholds())

	var bigID, smallID string
	for _, c := range clusters {
		if c.Files[0] == "z.py" {
			bigID = c.ID
		} else {
			smallID = c.ID
		}
	}

	assert.Equal(t, []string{bigID, smallID}, idx.Recommendations[TaskUnderstanding])
}

func TestBuild_MakingChangesPrefersSelfContained(t *testing.T) {
	t.Parallel()

	// hub <-> spoke traffic couples two clusters; the isolated cluster
	// should rank first for making changes.
	store, g, clusters := buildFixture(t, cluster.ModeNavigation, 600,
		&record.FileRecord{Path: "hub.py", Size: 500, Imports: []string{"spoke.py"}},
		&record.FileRecord{Path: "spoke.py", Size: 500},
		&record.FileRecord{Path: "island.py", Size: 500},
	)
	require.Len(t, clusters, 3)

	cfg := cluster.Config{Mode: cluster.ModeNavigation, SizeCap: 600, OverlapThreshold: cluster.DefaultOverlapThreshold}
	idx := Build(store, g, clusters, cfg, DefaultThresholds())

	var islandID string
	for _, c := range clusters {
		if c.Files[0] == "island.py" {
			islandID = c.ID
		}
	}

	recs := idx.Recommendations[TaskMakingChanges]
	require.Len(t, recs, 3)
	assert.Equal(t, islandID, recs[0])
}

func TestBuild_DiagnosticsAttached(t *testing.T) {
	t.Parallel()

	store := record.NewStore()
	store.Add(&record.FileRecord{Path: "a.py", Size: 100})
	store.AddDiagnostic(record.Diagnostic{
		Severity: record.SeverityWarning,
		Stage:    "parse",
		Path:     "broken.py",
		Message:  "syntax error",
	})
	store.Seal()

	g := graph.Build(store)
	cfg := cluster.Config{Mode: cluster.ModeAnalysis, SizeCap: 1024, OverlapThreshold: cluster.DefaultOverlapThreshold}
	clusters, err := cluster.Partition(store, g, cfg)
	require.NoError(t, err)

	idx := Build(store, g, clusters, cfg, DefaultThresholds())

	require.Len(t, idx.Diagnostics, 1)
	assert.Equal(t, "broken.py", idx.Diagnostics[0].Path)
	assert.Equal(t, 1, idx.Summary.TotalClusters)
}

func TestBuild_CycleSummary(t *testing.T) {
	t.Parallel()

	store, g, clusters := buildFixture(t, cluster.ModeAnalysis, 4096,
		&record.FileRecord{Path: "a.py", Size: 100, Imports: []string{"b.py"}},
		&record.FileRecord{Path: "b.py", Size: 100, Imports: []string{"a.py"}},
	)

	cfg := cluster.Config{Mode: cluster.ModeAnalysis, SizeCap: 4096, OverlapThreshold: cluster.DefaultOverlapThreshold}
	idx := Build(store, g, clusters, cfg, DefaultThresholds())

	assert.Equal(t, 1, idx.Summary.CycleGroups)
	require.Len(t, idx.Cycles, 1)
	assert.Equal(t, []string{"a.py", "b.py"}, idx.Cycles[0].Files)
}
