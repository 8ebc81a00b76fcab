package emit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartograph/carto/internal/cluster"
	"github.com/cartograph/carto/internal/graph"
	"github.com/cartograph/carto/internal/index"
	"github.com/cartograph/carto/internal/record"
)

func fixture(t *testing.T) (*record.Store, *graph.Graph, *index.Index) {
	t.Helper()

	store := record.NewStore()
	store.Add(&record.FileRecord{
		Path: "app.py", Language: "python", Size: 400,
		Imports: []string{"util.py", "requests"},
		Symbols: []record.Symbol{{Name: "main", Kind: record.SymbolFunction, Visibility: record.VisibilityPublic}},
	})
	store.Add(&record.FileRecord{
		Path: "util.py", Language: "python", Size: 300,
		Symbols: []record.Symbol{{Name: "helper", Kind: record.SymbolFunction, Visibility: record.VisibilityPublic}},
	})
	store.Seal()

	g := graph.Build(store)
	clusters, err := cluster.Partition(store, g, cluster.Config{
		Mode:             cluster.ModeAnalysis,
		SizeCap:          cluster.DefaultSizeCap,
		OverlapThreshold: cluster.DefaultOverlapThreshold,
	})
	require.NoError(t, err)

	idx := index.Build(store, g, clusters, cluster.Config{Mode: cluster.ModeAnalysis, SizeCap: cluster.DefaultSizeCap}, index.DefaultThresholds())
	return store, g, idx
}

func TestMarshalIndex_Deterministic(t *testing.T) {
	t.Parallel()

	_, _, idx := fixture(t)

	first, err := MarshalIndex(idx, LevelRich)
	require.NoError(t, err)
	second, err := MarshalIndex(idx, LevelRich)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, byte('\n'), first[len(first)-1])
}

func TestMarshalIndex_BasicStripsMetadata(t *testing.T) {
	t.Parallel()

	_, _, idx := fixture(t)

	out, err := MarshalIndex(idx, LevelBasic)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))

	assert.Contains(t, decoded, "summary")
	assert.Contains(t, decoded, "clusters")
	assert.NotContains(t, decoded, "cluster_recommendations")
	assert.NotContains(t, decoded, "cross_dependencies")

	clusters := decoded["clusters"].([]any)
	require.NotEmpty(t, clusters)
	entry := clusters[0].(map[string]any)
	assert.Contains(t, entry, "files")
	assert.NotContains(t, entry, "purpose")
	assert.NotContains(t, entry, "size")
}

func TestBuildPayload_RichCarriesRecordsAndExternal(t *testing.T) {
	t.Parallel()

	store, g, idx := fixture(t)
	require.NotEmpty(t, idx.Clusters)

	payload := BuildPayload(idx.Clusters[0], store, g, LevelRich)

	require.Len(t, payload.Records, len(payload.Files))
	for i, rec := range payload.Records {
		assert.Equal(t, payload.Files[i], rec.Path)
	}
	// "requests" does not resolve to a known file; "util.py" does and
	// must not be reported as external.
	assert.Equal(t, []string{"requests"}, payload.External["app.py"])
	assert.Contains(t, payload.Files, "util.py")
}

func TestBuildPayload_BasicOmitsRecords(t *testing.T) {
	t.Parallel()

	store, g, idx := fixture(t)
	require.NotEmpty(t, idx.Clusters)

	payload := BuildPayload(idx.Clusters[0], store, g, LevelBasic)

	assert.Nil(t, payload.Records)
	assert.Nil(t, payload.External)
	assert.NotEmpty(t, payload.Files)
}

func TestWriter_WritesIndexAndPayloads(t *testing.T) {
	t.Parallel()

	store, g, idx := fixture(t)

	dir := t.TempDir()
	w := NewWriter(dir, LevelRich)
	require.NoError(t, w.Write(idx, store, g))

	indexBytes, err := os.ReadFile(filepath.Join(dir, "index.json"))
	require.NoError(t, err)
	var decoded index.Index
	require.NoError(t, json.Unmarshal(indexBytes, &decoded))
	assert.Equal(t, idx.Summary.TotalFiles, decoded.Summary.TotalFiles)

	for _, c := range idx.Clusters {
		payloadBytes, err := os.ReadFile(filepath.Join(dir, "clusters", c.ID+".json"))
		require.NoError(t, err)
		var payload ClusterPayload
		require.NoError(t, json.Unmarshal(payloadBytes, &payload))
		assert.Equal(t, c.Files, payload.Files)
		assert.Len(t, payload.Records, len(c.Files))
	}
}

func TestWriter_ReplacesStalePayloads(t *testing.T) {
	t.Parallel()

	store, g, idx := fixture(t)

	dir := t.TempDir()
	stale := filepath.Join(dir, "clusters", "cluster_999.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("{}"), 0o644))

	w := NewWriter(dir, LevelBasic)
	require.NoError(t, w.Write(idx, store, g))

	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}

func TestValidLevel(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidLevel(LevelBasic))
	assert.True(t, ValidLevel(LevelRich))
	assert.False(t, ValidLevel(Level("verbose")))
}
