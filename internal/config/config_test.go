package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartograph/carto/internal/cluster"
	"github.com/cartograph/carto/internal/index"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())

	cc, err := cfg.ClusterConfig()
	require.NoError(t, err)
	assert.Equal(t, cluster.ModeAnalysis, cc.Mode)
	assert.Equal(t, int64(15*1024), cc.SizeCap)
	assert.Equal(t, cluster.DefaultOverlapThreshold, cc.OverlapThreshold)

	assert.Equal(t, index.DefaultThresholds(), cfg.Thresholds())
	assert.Equal(t, TierConfig{Medium: 4, High: 11}, cfg.Tiers)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := "mode: navigation\ncluster_size: 64KB\nworkers: 4\nexclude:\n  - vendor/**\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "navigation", cfg.Mode)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, []string{"vendor/**"}, cfg.Exclude)
	// Fields the file omits keep their defaults.
	assert.Equal(t, Default().Level, cfg.Level)
	assert.Equal(t, Default().Tiers, cfg.Tiers)

	cc, err := cfg.ClusterConfig()
	require.NoError(t, err)
	assert.Equal(t, int64(64*1024), cc.SizeCap)
}

func TestLoad_MalformedFileFails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("mode: [broken"), 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestLoad_InvalidModeFails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("mode: turbo\n"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"bad level", func(c *Config) { c.Level = "verbose" }, false},
		{"bad size", func(c *Config) { c.ClusterSize = "huge" }, false},
		{"zero overlap", func(c *Config) { c.OverlapThreshold = 0 }, false},
		{"inverted tiers", func(c *Config) { c.Tiers = TierConfig{Medium: 10, High: 4} }, false},
		{"negative workers", func(c *Config) { c.Workers = -1 }, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestParseSize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"15KB", 15 * 1024, true},
		{"15kb", 15 * 1024, true},
		{"1.5K", 1536, true},
		{"2MB", 2 * 1024 * 1024, true},
		{"1m", 1024 * 1024, true},
		{"64000", 64000, true},
		{"10 KB", 10 * 1024, true},
		{"", 0, false},
		{"-5KB", 0, false},
		{"0", 0, false},
		{"lots", 0, false},
	}

	for _, tc := range cases {
		got, err := ParseSize(tc.in)
		if tc.ok {
			require.NoError(t, err, tc.in)
			assert.Equal(t, tc.want, got, tc.in)
		} else {
			assert.Error(t, err, tc.in)
		}
	}
}
