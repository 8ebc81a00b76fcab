// Package ingestion turns a repository on disk into a published
// cluster index: walk, parse, resolve, graph, cluster, emit.
package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/cartograph/carto/internal/parsers"
)

// FileEntry is one source file selected by the walk.
type FileEntry struct {
	// Path is the absolute file path.
	Path string

	// RelPath is the path relative to the repo root, with forward
	// slashes. It is the record key everywhere downstream.
	RelPath string

	// Content is the file content.
	Content []byte

	// SHA256 is the content hash, used as the parse cache key.
	SHA256 string
}

// Patterns skipped on top of .gitignore.
var defaultIgnorePatterns = []string{
	".git/",
	".carto/",
	"node_modules/",
	"vendor/",
	"__pycache__/",
	".venv/",
	"venv/",
	".tox/",
	".pytest_cache/",
	".mypy_cache/",
	"dist/",
	"build/",
	"coverage/",
	".DS_Store",
}

// WalkRepo walks the repository root and returns every supported
// source file, sorted by RelPath. extra holds additional ignore
// patterns from configuration, in gitignore syntax.
func WalkRepo(root string, extra []string) ([]FileEntry, error) {
	matcher := buildMatcher(root, extra)

	var entries []FileEntry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if relPath == "." {
				return nil
			}
			if d.Name() == ".git" || matcher.Match(splitPath(relPath), true) {
				return filepath.SkipDir
			}
			return nil
		}

		if !parsers.Supported(path) {
			return nil
		}
		if matcher.Match(splitPath(relPath), false) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		hash := sha256.Sum256(content)

		entries = append(entries, FileEntry{
			Path:    path,
			RelPath: relPath,
			Content: content,
			SHA256:  hex.EncodeToString(hash[:]),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// WalkDir is already lexical, but the sort keeps the contract
	// independent of the filesystem.
	sort.Slice(entries, func(i, j int) bool { return entries[i].RelPath < entries[j].RelPath })
	return entries, nil
}

func buildMatcher(root string, extra []string) gitignore.Matcher {
	patterns := make([]gitignore.Pattern, 0, len(defaultIgnorePatterns)+len(extra))
	for _, p := range defaultIgnorePatterns {
		patterns = append(patterns, gitignore.ParsePattern(p, nil))
	}
	for _, p := range extra {
		patterns = append(patterns, gitignore.ParsePattern(p, nil))
	}
	patterns = append(patterns, loadGitignore(root)...)
	return gitignore.NewMatcher(patterns)
}

// loadGitignore reads .gitignore at the repository root. A missing or
// unreadable file just means no extra patterns.
func loadGitignore(root string) []gitignore.Pattern {
	content, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}

	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return patterns
}

func splitPath(path string) []string {
	return strings.Split(path, "/")
}
