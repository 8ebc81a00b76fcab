package cluster

import (
	"sort"
	"strings"

	"github.com/cartograph/carto/internal/record"
)

// Purpose tags assigned by classification. PurposeUncategorized is the
// explicit fallback: files are never silently misclassified into a
// real category.
const (
	PurposeTests         = "tests"
	PurposeEntrypoint    = "entrypoint"
	PurposeAPI           = "api"
	PurposeModels        = "models"
	PurposeConfig        = "config"
	PurposeUtilities     = "utilities"
	PurposeCore          = "core"
	PurposeUncategorized = "uncategorized"
)

// Classify is a pure function from a file record to a purpose tag,
// derived from path conventions and symbol patterns.
func Classify(rec *record.FileRecord) string {
	if rec == nil {
		return PurposeUncategorized
	}

	base := rec.Path
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	lowerBase := strings.ToLower(base)
	lowerPath := strings.ToLower(rec.Path)

	if isTestFile(lowerBase, lowerPath, rec) {
		return PurposeTests
	}
	if isEntrypoint(lowerBase, lowerPath) {
		return PurposeEntrypoint
	}

	switch {
	case pathHasSegment(lowerPath, "api", "handlers", "routes", "views", "controllers", "endpoints"):
		return PurposeAPI
	case pathHasSegment(lowerPath, "models", "model", "schema", "schemas", "entities", "types"):
		return PurposeModels
	case pathHasSegment(lowerPath, "config", "settings", "conf"):
		return PurposeConfig
	case pathHasSegment(lowerPath, "utils", "util", "helpers", "common", "shared"):
		return PurposeUtilities
	case pathHasSegment(lowerPath, "core", "engine", "domain", "internal", "services"):
		return PurposeCore
	}

	// Symbol patterns as a secondary signal.
	if classCount, total := symbolShape(rec); total > 0 && classCount*2 > total {
		return PurposeModels
	}

	return PurposeUncategorized
}

func isTestFile(base, path string, rec *record.FileRecord) bool {
	if strings.HasPrefix(base, "test_") || strings.Contains(base, "_test.") ||
		strings.HasSuffix(base, ".test.ts") || strings.HasSuffix(base, ".spec.ts") {
		return true
	}
	if pathHasSegment(path, "tests", "test", "testdata", "__tests__", "spec") {
		return true
	}

	// A file dominated by test-named symbols classifies as tests even
	// outside a test directory.
	testSyms := 0
	for _, sym := range rec.Symbols {
		lower := strings.ToLower(sym.Name)
		if strings.HasPrefix(lower, "test") || strings.HasSuffix(lower, "_test") {
			testSyms++
		}
	}
	return len(rec.Symbols) > 0 && testSyms*2 > len(rec.Symbols)
}

func isEntrypoint(base, path string) bool {
	switch base {
	case "main.go", "main.py", "main.ts", "main.js", "__main__.py", "index.ts", "index.js", "cli.py", "app.py":
		return true
	}
	return pathHasSegment(path, "cmd", "cli", "bin")
}

func pathHasSegment(path string, segments ...string) bool {
	parts := strings.Split(path, "/")
	if len(parts) > 1 {
		parts = parts[:len(parts)-1] // directories only
	}
	for _, part := range parts {
		for _, seg := range segments {
			if part == seg {
				return true
			}
		}
	}
	return false
}

func symbolShape(rec *record.FileRecord) (classes, total int) {
	for _, sym := range rec.Symbols {
		total++
		if sym.Kind == record.SymbolClass || sym.Kind == record.SymbolInterface || sym.Kind == record.SymbolTypeAlias {
			classes++
		}
	}
	return classes, total
}

// dominantPurpose returns the most common purpose tag among the files,
// ties broken lexicographically.
func dominantPurpose(store *record.Store, files []string) string {
	counts := make(map[string]int)
	for _, path := range files {
		counts[Classify(store.Get(path))]++
	}
	if len(counts) == 0 {
		return PurposeUncategorized
	}

	tags := make([]string, 0, len(counts))
	for tag := range counts {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if counts[tags[i]] != counts[tags[j]] {
			return counts[tags[i]] > counts[tags[j]]
		}
		return tags[i] < tags[j]
	})
	return tags[0]
}
