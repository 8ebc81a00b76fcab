// Package config loads carto's tunables from an optional .carto.yaml
// at the repository root. Missing file means defaults; command line
// flags override whatever the file set.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cartograph/carto/internal/cluster"
	"github.com/cartograph/carto/internal/emit"
	"github.com/cartograph/carto/internal/index"
)

// FileName is the per-repository configuration file.
const FileName = ".carto.yaml"

// OutputDir is where artifacts land, relative to the repository root.
const OutputDir = ".carto"

// Config holds every knob of an analysis run.
type Config struct {
	// Mode selects the clustering strategy: analysis, refactoring,
	// or navigation.
	Mode string `yaml:"mode"`

	// ClusterSize is the soft size cap per cluster, e.g. "15KB",
	// "64000", "1MB".
	ClusterSize string `yaml:"cluster_size"`

	// Level selects artifact detail: basic or rich.
	Level string `yaml:"level"`

	// OverlapThreshold is the minimum aggregate edge weight for a
	// file to be listed as shared with a foreign cluster.
	OverlapThreshold int `yaml:"overlap_threshold"`

	// Tiers sets the cross-dependency strength boundaries.
	Tiers TierConfig `yaml:"tiers"`

	// Workers bounds parse parallelism. Zero means GOMAXPROCS.
	Workers int `yaml:"workers"`

	// Exclude lists extra glob patterns skipped during ingestion,
	// on top of .gitignore.
	Exclude []string `yaml:"exclude"`
}

// TierConfig mirrors index.Thresholds in the configuration file.
type TierConfig struct {
	Medium int `yaml:"medium"`
	High   int `yaml:"high"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Mode:             string(cluster.ModeAnalysis),
		ClusterSize:      "15KB",
		Level:            string(emit.LevelRich),
		OverlapThreshold: cluster.DefaultOverlapThreshold,
		Tiers: TierConfig{
			Medium: index.DefaultThresholds().Medium,
			High:   index.DefaultThresholds().High,
		},
	}
}

// Load reads .carto.yaml under root, falling back to defaults when the
// file does not exist. A file that exists but does not parse is an
// error: silently ignoring a typoed config burns an analysis run.
func Load(root string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filepath.Join(root, FileName))
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading %s: %w", FileName, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks every field that has a constrained domain.
func (c Config) Validate() error {
	switch cluster.Mode(c.Mode) {
	case cluster.ModeAnalysis, cluster.ModeRefactoring, cluster.ModeNavigation:
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if !emit.ValidLevel(emit.Level(c.Level)) {
		return fmt.Errorf("unknown level %q", c.Level)
	}
	if _, err := ParseSize(c.ClusterSize); err != nil {
		return err
	}
	if c.OverlapThreshold < 1 {
		return fmt.Errorf("overlap_threshold must be positive, got %d", c.OverlapThreshold)
	}
	if c.Tiers.Medium < 1 || c.Tiers.High <= c.Tiers.Medium {
		return fmt.Errorf("tiers must satisfy 0 < medium < high, got medium=%d high=%d", c.Tiers.Medium, c.Tiers.High)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// ClusterConfig converts to the clustering engine's configuration.
// Call Validate first; a bad size string surfaces here as an error.
func (c Config) ClusterConfig() (cluster.Config, error) {
	sizeCap, err := ParseSize(c.ClusterSize)
	if err != nil {
		return cluster.Config{}, err
	}
	return cluster.Config{
		Mode:             cluster.Mode(c.Mode),
		SizeCap:          sizeCap,
		OverlapThreshold: c.OverlapThreshold,
	}, nil
}

// Thresholds converts the tier boundaries.
func (c Config) Thresholds() index.Thresholds {
	return index.Thresholds{Medium: c.Tiers.Medium, High: c.Tiers.High}
}

// ParseSize parses a human size string. Accepted forms: a bare byte
// count ("15360"), or a decimal number with a KB/MB/K/M suffix,
// case-insensitive, optional space before the suffix.
func ParseSize(s string) (int64, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, errors.New("empty size")
	}

	upper := strings.ToUpper(trimmed)
	multiplier := int64(1)
	switch {
	case strings.HasSuffix(upper, "KB"):
		multiplier, upper = 1024, upper[:len(upper)-2]
	case strings.HasSuffix(upper, "MB"):
		multiplier, upper = 1024*1024, upper[:len(upper)-2]
	case strings.HasSuffix(upper, "K"):
		multiplier, upper = 1024, upper[:len(upper)-1]
	case strings.HasSuffix(upper, "M"):
		multiplier, upper = 1024*1024, upper[:len(upper)-1]
	}

	n, err := strconv.ParseFloat(strings.TrimSpace(upper), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	bytes := int64(n * float64(multiplier))
	if bytes <= 0 {
		return 0, fmt.Errorf("size must be positive, got %q", s)
	}
	return bytes, nil
}
