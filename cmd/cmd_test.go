package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// analyzedRepo writes a small Python project and runs the analyzer
// over it, returning the repo root.
func analyzedRepo(t *testing.T, noStore bool) string {
	t.Helper()
	tmpDir := t.TempDir()

	files := map[string]string{
		"app.py": `from util import helper

def main():
    helper()
`,
		"util.py": `def helper():
    return 1
`,
	}
	for path, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, path), []byte(content), 0o644))
	}

	cmd := &AnalyzeCmd{Path: tmpDir, NoStore: noStore}
	require.NoError(t, cmd.Run())
	return tmpDir
}

func TestAnalyzeCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("AnalyzePythonRepo", func(t *testing.T) {
		tmpDir := analyzedRepo(t, true)

		cartoDir := filepath.Join(tmpDir, ".carto")
		_, err := os.Stat(filepath.Join(cartoDir, "index.json"))
		assert.NoError(t, err)

		entries, err := os.ReadDir(filepath.Join(cartoDir, "clusters"))
		require.NoError(t, err)
		assert.NotEmpty(t, entries)
	})

	t.Run("WithStoreCreatesDatabase", func(t *testing.T) {
		tmpDir := analyzedRepo(t, false)

		_, err := os.Stat(filepath.Join(tmpDir, ".carto", "badger"))
		assert.NoError(t, err)
	})

	t.Run("FlagOverrides", func(t *testing.T) {
		tmpDir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "a.py"), []byte("x = 1\n"), 0o644))

		cmd := &AnalyzeCmd{Path: tmpDir, Mode: "navigation", ClusterSize: "64KB", Level: "basic", NoStore: true}
		assert.NoError(t, cmd.Run())
	})

	t.Run("InvalidPath", func(t *testing.T) {
		cmd := &AnalyzeCmd{Path: "/nonexistent/path"}
		assert.Error(t, cmd.Run())
	})

	t.Run("NotADirectory", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "file.txt")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0o644))

		cmd := &AnalyzeCmd{Path: tmpFile}
		assert.Error(t, cmd.Run())
	})

	t.Run("InvalidMode", func(t *testing.T) {
		cmd := &AnalyzeCmd{Path: t.TempDir(), Mode: "bogus"}
		assert.Error(t, cmd.Run())
	})
}

func TestLoadRunConfig(t *testing.T) {
	t.Parallel()

	t.Run("Defaults", func(t *testing.T) {
		tmpDir := t.TempDir()
		root, cfg, err := loadRunConfig(tmpDir, "", "", "", 0)
		require.NoError(t, err)
		assert.Equal(t, tmpDir, root)
		assert.Equal(t, "analysis", cfg.Mode)
		assert.Equal(t, "rich", cfg.Level)
	})

	t.Run("FlagsOverrideFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ".carto.yaml"), []byte("mode: refactoring\nlevel: basic\n"), 0o644))

		_, cfg, err := loadRunConfig(tmpDir, "navigation", "", "", 2)
		require.NoError(t, err)
		assert.Equal(t, "navigation", cfg.Mode)
		assert.Equal(t, "basic", cfg.Level)
		assert.Equal(t, 2, cfg.Workers)
	})

	t.Run("InvalidOverrideFails", func(t *testing.T) {
		_, _, err := loadRunConfig(t.TempDir(), "", "", "verbose", 0)
		assert.Error(t, err)
	})
}

func TestReadCommands(t *testing.T) {
	tmpDir := analyzedRepo(t, false)
	t.Chdir(tmpDir)

	t.Run("List", func(t *testing.T) {
		cmd := &ListCmd{}
		assert.NoError(t, cmd.Run())
	})

	t.Run("ShowByID", func(t *testing.T) {
		cmd := &ShowCmd{Cluster: "cluster_001"}
		assert.NoError(t, cmd.Run())
	})

	t.Run("ShowUnknown", func(t *testing.T) {
		cmd := &ShowCmd{Cluster: "cluster_999"}
		err := cmd.Run()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("RecommendAll", func(t *testing.T) {
		cmd := &RecommendCmd{}
		assert.NoError(t, cmd.Run())
	})

	t.Run("RecommendUnknownTask", func(t *testing.T) {
		cmd := &RecommendCmd{Task: "rewrite_in_rust"}
		assert.Error(t, cmd.Run())
	})

	t.Run("Cycles", func(t *testing.T) {
		cmd := &CyclesCmd{}
		assert.NoError(t, cmd.Run())
	})

	t.Run("Status", func(t *testing.T) {
		cmd := &StatusCmd{}
		assert.NoError(t, cmd.Run())
	})
}

func TestReadCommands_NoIndex(t *testing.T) {
	t.Chdir(t.TempDir())

	err := (&ListCmd{}).Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carto analyze")

	err = (&StatusCmd{}).Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carto analyze")
}

func TestCleanCmd_Run(t *testing.T) {
	t.Run("ForceDeletes", func(t *testing.T) {
		tmpDir := analyzedRepo(t, true)
		t.Chdir(tmpDir)

		cmd := &CleanCmd{Force: true}
		require.NoError(t, cmd.Run())

		_, err := os.Stat(filepath.Join(tmpDir, ".carto"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("NothingToClean", func(t *testing.T) {
		t.Chdir(t.TempDir())

		cmd := &CleanCmd{Force: true}
		assert.Error(t, cmd.Run())
	})
}

func TestNewCLI(t *testing.T) {
	t.Parallel()

	cli := NewCLI()
	assert.NotNil(t, cli)
}
