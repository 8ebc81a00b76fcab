package ingestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/cartograph/carto/internal/parsers"
)

// DebounceInterval batches filesystem events before re-analyzing.
// Editors fire several events per save; one run per burst is enough.
const DebounceInterval = 2 * time.Second

// Watch monitors the repository and re-runs the pipeline when source
// files change. Blocks until the context is cancelled. onRun is called
// after every completed run; a failed run is reported there with a nil
// result.
func Watch(ctx context.Context, opts Options, onRun func(*Result, error)) error {
	matcher := buildMatcher(opts.Root, opts.Config.Exclude)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := addWatchDirs(watcher, opts.Root, opts.Root, matcher); err != nil {
		return fmt.Errorf("setting up watcher: %w", err)
	}

	debounce := time.NewTimer(DebounceInterval)
	debounce.Stop()
	dirty := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watchRelevant(event.Name, opts.Root, matcher) {
				continue
			}
			// New directories must be added to the watch set or
			// changes below them go unseen.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addWatchDirs(watcher, opts.Root, event.Name, matcher)
				}
			}
			dirty = true
			debounce.Reset(DebounceInterval)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)

		case <-debounce.C:
			if !dirty {
				continue
			}
			dirty = false
			result, err := Run(ctx, opts)
			if onRun != nil {
				onRun(result, err)
			}
		}
	}
}

// addWatchDirs watches every non-ignored directory under start. Ignore
// patterns are anchored at the repository root, so rel-paths are always
// computed against root, not against start.
func addWatchDirs(watcher *fsnotify.Watcher, root, start string, matcher gitignore.Matcher) error {
	return filepath.Walk(start, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		relPath, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		relPath = filepath.ToSlash(relPath)
		if relPath != "." {
			if info.Name() == ".git" || matcher.Match(splitPath(relPath), true) {
				return filepath.SkipDir
			}
		}
		return watcher.Add(path)
	})
}

// watchRelevant reports whether a changed path should trigger a run:
// a supported source file, or a directory event, neither ignored.
func watchRelevant(path, root string, matcher gitignore.Matcher) bool {
	relPath, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	relPath = filepath.ToSlash(relPath)

	info, statErr := os.Stat(path)
	isDir := statErr == nil && info.IsDir()

	if matcher.Match(splitPath(relPath), isDir) {
		return false
	}
	if isDir {
		return true
	}
	// Deleted files cannot be stat'ed; judge by extension alone.
	return parsers.Supported(path)
}
