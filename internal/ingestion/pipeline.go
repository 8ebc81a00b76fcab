package ingestion

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/cartograph/carto/internal/cluster"
	"github.com/cartograph/carto/internal/config"
	"github.com/cartograph/carto/internal/emit"
	"github.com/cartograph/carto/internal/graph"
	"github.com/cartograph/carto/internal/index"
	"github.com/cartograph/carto/internal/parsers"
	"github.com/cartograph/carto/internal/record"
	"github.com/cartograph/carto/internal/storage"
)

// ProgressCallback is called with phase name and progress (0.0-1.0).
type ProgressCallback func(phase string, progress float64)

// Options configures a pipeline run.
type Options struct {
	// Root is the repository root to analyze.
	Root string

	// Config holds the run tunables.
	Config config.Config

	// Cache memoizes parse results across runs. Optional.
	Cache *ParseCache

	// Backend receives the serialized artifacts. Optional.
	Backend storage.Backend

	// OutputDir is where index.json and clusters/ are written.
	// Empty disables artifact files.
	OutputDir string

	// Progress reports phase transitions. Optional.
	Progress ProgressCallback
}

// Result summarizes a pipeline run and carries the full outputs for
// in-process consumers.
type Result struct {
	Store    *record.Store
	Graph    *graph.Graph
	Clusters []*cluster.Cluster
	Index    *index.Index

	Files     int
	CacheHits int
	Duration  time.Duration
}

// Run executes the full pipeline: walk, parse, resolve imports, build
// the graph, cluster, build the index, and publish artifacts.
func Run(ctx context.Context, opts Options) (*Result, error) {
	started := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	clusterCfg, err := opts.Config.ClusterConfig()
	if err != nil {
		return nil, err
	}

	progress := opts.Progress
	if progress == nil {
		progress = func(string, float64) {}
	}

	progress("Walking files", 0)
	entries, err := WalkRepo(opts.Root, opts.Config.Exclude)
	if err != nil {
		return nil, fmt.Errorf("walking repo: %w", err)
	}
	progress("Walking files", 1)

	progress("Parsing code", 0)
	store := record.NewStore()
	recs, hits, err := parseAll(ctx, entries, opts.Config.Workers, opts.Cache, store)
	if err != nil {
		return nil, err
	}
	progress("Parsing code", 1)

	progress("Resolving imports", 0)
	for _, rec := range newResolver(recs).resolveAll(recs) {
		store.Add(rec)
	}
	store.Seal()
	progress("Resolving imports", 1)

	progress("Building graph", 0)
	g := graph.BuildWithDiagnostics(store)
	progress("Building graph", 1)

	progress("Clustering", 0)
	clusters, err := cluster.Partition(store, g, clusterCfg)
	if err != nil {
		return nil, err
	}
	progress("Clustering", 1)

	progress("Building index", 0)
	idx := index.Build(store, g, clusters, clusterCfg, opts.Config.Thresholds())
	progress("Building index", 1)

	result := &Result{
		Store:     store,
		Graph:     g,
		Clusters:  clusters,
		Index:     idx,
		Files:     store.Len(),
		CacheHits: hits,
	}

	if opts.OutputDir != "" {
		progress("Writing artifacts", 0)
		writer := emit.NewWriter(opts.OutputDir, emit.Level(opts.Config.Level))
		if err := writer.Write(idx, store, g); err != nil {
			return nil, err
		}
		progress("Writing artifacts", 1)
	}

	if opts.Backend != nil {
		progress("Persisting", 0)
		if err := persist(ctx, opts, result, started); err != nil {
			return nil, err
		}
		progress("Persisting", 1)
	}

	result.Duration = time.Since(started)
	return result, nil
}

// parseAll fans the entries out over a bounded worker pool. Unparsable
// files become warning diagnostics, never run failures.
func parseAll(ctx context.Context, entries []FileEntry, workers int, cache *ParseCache, store *record.Store) ([]*record.FileRecord, int, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	jobs := make(chan FileEntry)
	var (
		mu   sync.Mutex
		recs []*record.FileRecord
		hits int
	)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range jobs {
				rec, hit := parseEntry(entry, cache, store)
				if rec == nil {
					continue
				}
				mu.Lock()
				recs = append(recs, rec)
				if hit {
					hits++
				}
				mu.Unlock()
			}
		}()
	}

	var cancelled error
feed:
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			cancelled = ctx.Err()
			break feed
		case jobs <- entry:
		}
	}
	close(jobs)
	wg.Wait()

	if cancelled != nil {
		return nil, 0, cancelled
	}
	return recs, hits, nil
}

func parseEntry(entry FileEntry, cache *ParseCache, store *record.Store) (*record.FileRecord, bool) {
	if rec, ok := cache.Get(entry); ok {
		return rec, true
	}

	parser := parsers.ForPath(entry.RelPath)
	if parser == nil {
		return nil, false
	}

	rec, err := parser.Parse(entry.RelPath, entry.Content)
	if err != nil {
		store.AddDiagnostic(record.Diagnostic{
			Severity: record.SeverityWarning,
			Stage:    "parse",
			Path:     entry.RelPath,
			Message:  err.Error(),
		})
		return nil, false
	}

	cache.Put(entry, rec)
	return rec, false
}

func persist(ctx context.Context, opts Options, result *Result, started time.Time) error {
	level := emit.Level(opts.Config.Level)

	indexJSON, err := emit.MarshalIndex(result.Index, level)
	if err != nil {
		return err
	}
	if err := opts.Backend.PutIndex(ctx, indexJSON); err != nil {
		return fmt.Errorf("persisting index: %w", err)
	}

	payloads := make(map[string][]byte, len(result.Clusters))
	for _, c := range result.Clusters {
		payload := emit.BuildPayload(c, result.Store, result.Graph, level)
		data, err := emit.MarshalPayload(payload)
		if err != nil {
			return err
		}
		payloads[c.ID] = data
	}
	if err := opts.Backend.PutClusters(ctx, payloads); err != nil {
		return fmt.Errorf("persisting clusters: %w", err)
	}

	meta := map[string]string{
		storage.MetaMode:       opts.Config.Mode,
		storage.MetaRunAt:      started.UTC().Format(time.RFC3339),
		storage.MetaFiles:      strconv.Itoa(result.Files),
		storage.MetaClusters:   strconv.Itoa(len(result.Clusters)),
		storage.MetaRepoRoot:   opts.Root,
		storage.MetaDurationMS: strconv.FormatInt(time.Since(started).Milliseconds(), 10),
	}
	for key, value := range meta {
		if err := opts.Backend.PutMeta(ctx, key, value); err != nil {
			return fmt.Errorf("persisting meta %s: %w", key, err)
		}
	}
	return nil
}
