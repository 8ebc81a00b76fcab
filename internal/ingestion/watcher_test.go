package ingestion

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartograph/carto/internal/config"
)

func TestWatch_StopsOnCancel(t *testing.T) {
	t.Parallel()

	root := testRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- Watch(ctx, Options{Root: root, Config: config.Default()}, nil)
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestWatch_RunsAfterChange(t *testing.T) {
	t.Parallel()

	root := testRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runs := make(chan *Result, 4)
	go func() {
		_ = Watch(ctx, Options{Root: root, Config: config.Default()}, func(result *Result, err error) {
			if err == nil {
				runs <- result
			}
		})
	}()

	// Give the watcher time to register directories before touching
	// the tree.
	time.Sleep(300 * time.Millisecond)
	writeFile(t, root, "extra.py", "def extra():\n    return 3\n")

	select {
	case result := <-runs:
		require.NotNil(t, result)
		assert.Equal(t, 3, result.Files)
	case <-time.After(15 * time.Second):
		t.Fatal("no pipeline run after file change")
	}
}

func TestAddWatchDirs_AnchoredPatternsMatchFromRoot(t *testing.T) {
	t.Parallel()

	// "/generated/" is anchored: it ignores the top-level directory
	// only. A same-named directory deeper in the tree stays watched,
	// including when its parent is added late by a create event.
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "generated"), 0o755))
	matcher := buildMatcher(root, []string{"/generated/"})

	watcher, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer watcher.Close()

	require.NoError(t, addWatchDirs(watcher, root, root, matcher))

	// The subtree appears after the initial walk; the event loop walks
	// it starting at the created directory.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub", "generated"), 0o755))
	require.NoError(t, addWatchDirs(watcher, root, filepath.Join(root, "sub"), matcher))

	watched := make(map[string]bool)
	for _, dir := range watcher.WatchList() {
		rel, relErr := filepath.Rel(root, dir)
		require.NoError(t, relErr)
		watched[filepath.ToSlash(rel)] = true
	}

	assert.False(t, watched["generated"])
	assert.True(t, watched["sub"])
	assert.True(t, watched["sub/generated"])
}

func TestWatchRelevant(t *testing.T) {
	t.Parallel()

	root := testRepo(t)
	matcher := buildMatcher(root, nil)

	assert.True(t, watchRelevant(root+"/app.py", root, matcher))
	assert.False(t, watchRelevant(root+"/README.md", root, matcher))
	assert.False(t, watchRelevant(root+"/.carto/index.json", root, matcher))
	assert.False(t, watchRelevant(root+"/node_modules/x.js", root, matcher))
}
