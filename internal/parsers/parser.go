// Package parsers extracts structural facts from source files.
//
// Each parser turns one file into a record.FileRecord: declared
// symbols, import targets, outgoing references, and complexity. Go is
// parsed with the standard AST; Python and TypeScript use line-level
// heuristics that are deliberately tolerant of broken input.
package parsers

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/cartograph/carto/internal/record"
)

// Parser is a language-specific extractor. Parse must not retain
// content and must be safe for concurrent use.
type Parser interface {
	// Parse extracts a file record from source. path is repo-relative.
	Parse(path string, content []byte) (*record.FileRecord, error)

	// Language returns the language tag this parser handles.
	Language() string
}

var byExtension = map[string]Parser{
	".go":  NewGoParser(),
	".py":  NewPythonParser(),
	".pyi": NewPythonParser(),
	".ts":  NewTypeScriptParser(),
	".tsx": NewTypeScriptParser(),
	".js":  NewTypeScriptParser(),
	".jsx": NewTypeScriptParser(),
}

// ForPath returns the parser for the file's extension, or nil when the
// extension is not supported.
func ForPath(path string) Parser {
	return byExtension[strings.ToLower(filepath.Ext(path))]
}

// Supported reports whether a parser exists for the path.
func Supported(path string) bool {
	return ForPath(path) != nil
}

// Extensions returns the supported file extensions, sorted.
func Extensions() []string {
	exts := make([]string, 0, len(byExtension))
	for ext := range byExtension {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// maintainability derives a 0-100 heuristic score from file size and
// aggregate complexity. Dense, highly branching files score low.
func maintainability(size int64, lines, complexity int) float64 {
	if lines == 0 {
		return 100
	}
	score := 100.0
	score -= float64(complexity) / float64(lines) * 120
	score -= float64(size) / 1024 / 4
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := 1
	for _, b := range content {
		if b == '\n' {
			n++
		}
	}
	return n
}

func visibilityOf(exported bool) record.Visibility {
	if exported {
		return record.VisibilityPublic
	}
	return record.VisibilityPrivate
}
