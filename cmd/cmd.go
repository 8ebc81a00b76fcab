// Package cmd provides the carto command line interface.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"github.com/cartograph/carto/internal/config"
	"github.com/cartograph/carto/internal/index"
	"github.com/cartograph/carto/internal/ingestion"
	"github.com/cartograph/carto/internal/storage"
	"github.com/cartograph/carto/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

// AnalyzeCmd runs the full analysis pipeline and publishes the index.
type AnalyzeCmd struct {
	Path        string `arg:"" optional:"" default:"." help:"Path to repository"`
	Mode        string `help:"Clustering mode: analysis, refactoring, navigation" placeholder:"MODE"`
	ClusterSize string `help:"Soft cluster size cap, e.g. 15KB" placeholder:"SIZE"`
	Level       string `help:"Artifact detail: basic or rich" placeholder:"LEVEL"`
	Workers     int    `help:"Parse worker count (default: number of CPUs)"`
	NoStore     bool   `help:"Skip the persistent database, write files only"`
}

// Run executes the analyze command.
func (c *AnalyzeCmd) Run() error {
	ctx := signalContext()

	root, cfg, err := loadRunConfig(c.Path, c.Mode, c.ClusterSize, c.Level, c.Workers)
	if err != nil {
		return err
	}

	color.Green("Analyzing %s", root)

	cartoDir := filepath.Join(root, config.OutputDir)
	if err := os.MkdirAll(cartoDir, 0o755); err != nil {
		return fmt.Errorf("creating %s directory: %w", config.OutputDir, err)
	}

	opts := ingestion.Options{
		Root:      root,
		Config:    cfg,
		OutputDir: cartoDir,
		Progress: func(phase string, pct float64) {
			fmt.Printf("\r\033[K%s (%.0f%%)", phase, pct*100)
		},
	}

	if !c.NoStore {
		backend, err := storage.OpenBadger(filepath.Join(cartoDir, "badger"), false)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer func() { _ = backend.Close() }()
		opts.Backend = backend
	}

	result, err := ingestion.Run(ctx, opts)
	if err != nil {
		return err
	}
	fmt.Println()

	color.Green("\n✓ Analysis complete")
	fmt.Printf("  Mode:       %s\n", cfg.Mode)
	fmt.Printf("  Files:      %d\n", result.Files)
	fmt.Printf("  Clusters:   %d\n", len(result.Clusters))
	fmt.Printf("  Cycles:     %d\n", result.Index.Summary.CycleGroups)
	fmt.Printf("  Duration:   %.2fs\n", result.Duration.Seconds())

	if oversized := result.Index.Summary.Oversized; oversized > 0 {
		color.Yellow("  %d cluster(s) exceed the size cap", oversized)
	}
	if diags := result.Index.Diagnostics; len(diags) > 0 {
		color.Yellow("  %d diagnostic(s); see index.json", len(diags))
	}
	return nil
}

// ListCmd lists the clusters of the published index.
type ListCmd struct{}

// Run executes the list command.
func (c *ListCmd) Run() error {
	idx, err := loadIndex()
	if err != nil {
		return err
	}

	fmt.Printf("%d cluster(s), %d file(s), mode %s\n\n", idx.Summary.TotalClusters, idx.Summary.TotalFiles, idx.Summary.Mode)
	for _, cl := range idx.Clusters {
		marker := ""
		if cl.Oversized {
			marker = color.YellowString(" [oversized]")
		}
		fmt.Printf("%s  %-30s %3d file(s)  %6.1fKB%s\n", cl.ID, cl.Name, len(cl.Files), float64(cl.Size)/1024, marker)
	}
	return nil
}

// ShowCmd prints one cluster with its members.
type ShowCmd struct {
	Cluster string `arg:"" help:"Cluster id, e.g. cluster_001"`
}

// Run executes the show command.
func (c *ShowCmd) Run() error {
	idx, err := loadIndex()
	if err != nil {
		return err
	}

	for _, cl := range idx.Clusters {
		if cl.ID != c.Cluster && cl.Name != c.Cluster {
			continue
		}
		color.Green("%s (%s)", cl.ID, cl.Name)
		fmt.Printf("  Purpose:     %s\n", cl.Purpose)
		fmt.Printf("  Size:        %.1fKB\n", float64(cl.Size)/1024)
		fmt.Printf("  Complexity:  %d\n", cl.Complexity)
		if cl.Oversized {
			color.Yellow("  Exceeds the size cap")
		}
		fmt.Println("  Files:")
		for _, f := range cl.Files {
			fmt.Printf("    %s\n", f)
		}
		if len(cl.Overlap) > 0 {
			fmt.Println("  Shared files:")
			for _, f := range cl.Overlap {
				fmt.Printf("    %s\n", f)
			}
		}

		deps := crossDepsOf(idx, cl.ID)
		if len(deps) > 0 {
			fmt.Println("  Cross-cluster dependencies:")
			for _, d := range deps {
				other := d.Target
				if other == cl.ID {
					other = d.Source
				}
				fmt.Printf("    %s (weight %d, %s)\n", other, d.Weight, d.Strength)
			}
		}
		return nil
	}
	return fmt.Errorf("cluster %q not found. Run 'carto list' to see ids", c.Cluster)
}

// RecommendCmd prints cluster reading orders per task.
type RecommendCmd struct {
	Task string `arg:"" optional:"" help:"Task name, e.g. understanding_codebase"`
}

// Run executes the recommend command.
func (c *RecommendCmd) Run() error {
	idx, err := loadIndex()
	if err != nil {
		return err
	}

	tasks := make([]string, 0, len(idx.Recommendations))
	for task := range idx.Recommendations {
		tasks = append(tasks, task)
	}
	sort.Strings(tasks)

	if c.Task != "" {
		ids, ok := idx.Recommendations[c.Task]
		if !ok {
			return fmt.Errorf("unknown task %q (known: %s)", c.Task, strings.Join(tasks, ", "))
		}
		printRecommendation(c.Task, ids)
		return nil
	}

	for _, task := range tasks {
		printRecommendation(task, idx.Recommendations[task])
		fmt.Println()
	}
	return nil
}

func printRecommendation(task string, ids []string) {
	color.Green("%s", task)
	if len(ids) == 0 {
		fmt.Println("  no recommendation (not enough signal)")
		return
	}
	for i, id := range ids {
		fmt.Printf("  %d. %s\n", i+1, id)
	}
}

// CyclesCmd prints circular dependency groups.
type CyclesCmd struct{}

// Run executes the cycles command.
func (c *CyclesCmd) Run() error {
	idx, err := loadIndex()
	if err != nil {
		return err
	}

	if len(idx.Cycles) == 0 {
		color.Green("No circular dependencies")
		return nil
	}

	color.Yellow("%d circular dependency group(s)\n", len(idx.Cycles))
	for i, cycle := range idx.Cycles {
		fmt.Printf("%d. %d file(s), %.1fKB\n", i+1, len(cycle.Files), float64(cycle.Size)/1024)
		for _, f := range cycle.Files {
			fmt.Printf("   %s\n", f)
		}
	}
	return nil
}

// StatusCmd shows the stored run metadata.
type StatusCmd struct{}

// Run executes the status command.
func (c *StatusCmd) Run() error {
	backend, err := loadBackend()
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	ctx := context.Background()
	fmt.Println("Index status")
	for _, key := range []string{storage.MetaRepoRoot, storage.MetaMode, storage.MetaRunAt, storage.MetaFiles, storage.MetaClusters, storage.MetaDurationMS} {
		value, err := backend.Meta(ctx, key)
		if err != nil {
			continue
		}
		fmt.Printf("  %-12s %s\n", key+":", value)
	}
	return nil
}

// CleanCmd deletes the published index and database.
type CleanCmd struct {
	Force bool `short:"f" help:"Skip confirmation"`
}

// Run executes the clean command.
func (c *CleanCmd) Run() error {
	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	cartoDir := filepath.Join(root, config.OutputDir)
	if _, err := os.Stat(cartoDir); os.IsNotExist(err) {
		return fmt.Errorf("no index found at %s, nothing to clean", root)
	}

	if !c.Force {
		fmt.Printf("Delete index at %s? [y/N] ", cartoDir)
		var response string
		_, _ = fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted")
			return nil
		}
	}

	if err := os.RemoveAll(cartoDir); err != nil {
		return fmt.Errorf("deleting index: %w", err)
	}
	color.Green("Deleted %s", cartoDir)
	return nil
}

// WatchCmd re-analyzes on file changes.
type WatchCmd struct {
	Path string `arg:"" optional:"" default:"." help:"Path to repository"`
}

// Run executes the watch command.
func (c *WatchCmd) Run() error {
	ctx := signalContext()

	root, cfg, err := loadRunConfig(c.Path, "", "", "", 0)
	if err != nil {
		return err
	}

	cartoDir := filepath.Join(root, config.OutputDir)
	if err := os.MkdirAll(cartoDir, 0o755); err != nil {
		return fmt.Errorf("creating %s directory: %w", config.OutputDir, err)
	}

	backend, err := storage.OpenBadger(filepath.Join(cartoDir, "badger"), false)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() { _ = backend.Close() }()

	cache, err := ingestion.NewParseCache(0)
	if err != nil {
		return err
	}

	opts := ingestion.Options{
		Root:      root,
		Config:    cfg,
		Cache:     cache,
		Backend:   backend,
		OutputDir: cartoDir,
	}

	// Publish once before settling into the event loop.
	result, err := ingestion.Run(ctx, opts)
	if err != nil {
		return err
	}
	color.Green("✓ %d file(s), %d cluster(s)", result.Files, len(result.Clusters))

	color.Green("Watching %s for changes (Ctrl+C to stop)", root)
	err = ingestion.Watch(ctx, opts, func(result *ingestion.Result, err error) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "re-analysis failed: %v\n", err)
			return
		}
		color.Green("✓ re-analyzed: %d file(s), %d cluster(s), %d cache hit(s)", result.Files, len(result.Clusters), result.CacheHits)
	})
	if err == context.Canceled {
		return nil
	}
	return err
}

// MCPCmd serves the index over MCP on stdio.
type MCPCmd struct{}

// Run executes the mcp command.
func (c *MCPCmd) Run() error {
	backend, err := loadBackend()
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	// No stderr chatter: stdio carries JSON-RPC only.
	server := mcp.NewServer(backend, Version)
	return server.Run(signalContext(), os.Stdin, os.Stdout)
}

// ServeCmd serves the index over MCP, optionally re-analyzing on change.
type ServeCmd struct {
	Watch bool `short:"w" help:"Enable file watching"`
}

// Run executes the serve command.
func (c *ServeCmd) Run() error {
	ctx := signalContext()

	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	cartoDir := filepath.Join(root, config.OutputDir)
	backend, err := storage.OpenBadger(filepath.Join(cartoDir, "badger"), false)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() { _ = backend.Close() }()

	if c.Watch {
		cfg, err := config.Load(root)
		if err != nil {
			return err
		}
		cache, cacheErr := ingestion.NewParseCache(0)
		if cacheErr != nil {
			return cacheErr
		}

		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			err := ingestion.Watch(watchCtx, ingestion.Options{
				Root:      root,
				Config:    cfg,
				Cache:     cache,
				Backend:   backend,
				OutputDir: cartoDir,
			}, nil)
			if err != nil && err != context.Canceled {
				fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
			}
		}()
		fmt.Fprintln(os.Stderr, "Starting MCP server with watch mode...")
	} else {
		fmt.Fprintln(os.Stderr, "Starting MCP server...")
	}

	server := mcp.NewServer(backend, Version)
	return server.Run(ctx, os.Stdin, os.Stdout)
}

// CLI is the root command.
type CLI struct {
	Version kong.VersionFlag `help:"Show version information"`

	Analyze   AnalyzeCmd   `cmd:"" help:"Analyze a repository and publish the cluster index"`
	List      ListCmd      `cmd:"" help:"List clusters of the published index"`
	Show      ShowCmd      `cmd:"" help:"Show one cluster in detail"`
	Recommend RecommendCmd `cmd:"" help:"Show per-task cluster reading orders"`
	Cycles    CyclesCmd    `cmd:"" help:"Show circular dependency groups"`
	Status    StatusCmd    `cmd:"" help:"Show stored index metadata"`
	Watch     WatchCmd     `cmd:"" help:"Re-analyze automatically on file changes"`
	MCP       MCPCmd       `cmd:"" help:"Start MCP server (stdio transport)"`
	Serve     ServeCmd     `cmd:"" help:"Start MCP server with optional watch mode"`
	Clean     CleanCmd     `cmd:"" help:"Delete the published index"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	kongCtx := kong.Parse(c,
		kong.Name("carto"),
		kong.Description("Dependency-aware codebase cartography for AI agents"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)
	return kongCtx.Run()
}

// Helper functions

// loadRunConfig resolves the repository root and layers flag overrides
// over .carto.yaml over defaults.
func loadRunConfig(path, mode, clusterSize, level string, workers int) (string, config.Config, error) {
	root, err := filepath.Abs(path)
	if err != nil {
		return "", config.Config{}, fmt.Errorf("resolving path: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", config.Config{}, fmt.Errorf("accessing %s: %w", root, err)
	}
	if !info.IsDir() {
		return "", config.Config{}, fmt.Errorf("%s is not a directory", root)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return "", config.Config{}, err
	}
	if mode != "" {
		cfg.Mode = mode
	}
	if clusterSize != "" {
		cfg.ClusterSize = clusterSize
	}
	if level != "" {
		cfg.Level = level
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	if err := cfg.Validate(); err != nil {
		return "", config.Config{}, err
	}
	return root, cfg, nil
}

func loadBackend() (*storage.BadgerBackend, error) {
	root, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}

	dbPath := filepath.Join(root, config.OutputDir, "badger")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("no index found at %s. Run 'carto analyze' first", root)
	}
	backend, err := storage.OpenBadger(dbPath, true)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	return backend, nil
}

// loadIndex reads the published index, preferring the JSON artifact so
// read commands work even after --no-store runs.
func loadIndex() (*index.Index, error) {
	root, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}

	indexPath := filepath.Join(root, config.OutputDir, "index.json")
	data, err := os.ReadFile(indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no index found at %s. Run 'carto analyze' first", root)
		}
		return nil, fmt.Errorf("reading index.json: %w", err)
	}

	var idx index.Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parsing index.json: %w", err)
	}
	return &idx, nil
}

func crossDepsOf(idx *index.Index, id string) []index.CrossDependency {
	var deps []index.CrossDependency
	for _, d := range idx.CrossDependencies {
		if d.Source == id || d.Target == id {
			deps = append(deps, d)
		}
	}
	return deps
}

func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()
	return ctx
}
