// Package record provides the structural record store for carto.
//
// It defines the per-file structural facts produced by the language
// parsers (symbols, imports, references, complexity) and the in-memory
// store that collects them for one analysis run. Records are immutable
// once the store is sealed.
package record

// SymbolKind represents the kind of a declared symbol.
type SymbolKind string

const (
	SymbolFunction  SymbolKind = "function"
	SymbolMethod    SymbolKind = "method"
	SymbolClass     SymbolKind = "class"
	SymbolInterface SymbolKind = "interface"
	SymbolTypeAlias SymbolKind = "type_alias"
	SymbolVariable  SymbolKind = "variable"
	SymbolConstant  SymbolKind = "constant"
)

// Visibility represents the export visibility of a symbol.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// RefKind represents the kind of a declared-to-declared reference.
type RefKind string

const (
	RefCall        RefKind = "call"
	RefUsage       RefKind = "usage"
	RefInheritance RefKind = "inheritance"
)

// Symbol represents a code entity declared in a file.
type Symbol struct {
	// Name is the symbol name (function, class, variable, etc.)
	Name string `json:"name"`

	// Kind is the symbol kind.
	Kind SymbolKind `json:"kind"`

	// Visibility is public for exported symbols, private otherwise.
	Visibility Visibility `json:"visibility"`

	// StartLine is the starting line number (1-based).
	StartLine int `json:"start_line"`

	// EndLine is the ending line number (1-based).
	EndLine int `json:"end_line"`

	// Signature is the declaration signature, where the parser extracts one.
	Signature string `json:"signature,omitempty"`
}

// Reference represents a reference from this file to a symbol that may be
// declared in another file. The graph builder resolves the name against
// the store; unresolvable references are dropped.
type Reference struct {
	// Name is the referenced symbol name.
	Name string `json:"name"`

	// Kind classifies the reference (call, usage, inheritance).
	Kind RefKind `json:"kind"`

	// Line is the line number of the reference (1-based).
	Line int `json:"line"`
}

// FileRecord holds the structural facts for a single source file.
//
// Imports contains candidate targets: repo-relative file paths where the
// parser could resolve the module path, raw module strings otherwise. The
// graph builder keeps targets present in the store as edges and downgrades
// the rest to external-dependency metadata.
type FileRecord struct {
	// Path is the repo-relative file path and the unique record key.
	Path string `json:"path"`

	// Language is the language tag (e.g. "go", "python").
	Language string `json:"language"`

	// Size is the file size in bytes.
	Size int64 `json:"size"`

	// Imports is the ordered list of import targets.
	Imports []string `json:"imports,omitempty"`

	// Symbols declared in this file.
	Symbols []Symbol `json:"symbols,omitempty"`

	// References from this file to named symbols.
	References []Reference `json:"references,omitempty"`

	// Complexity is the aggregate cyclomatic complexity of the file.
	Complexity int `json:"complexity"`

	// Maintainability is a heuristic maintainability score (0-100).
	Maintainability float64 `json:"maintainability"`
}

// ExportedSymbols returns the number of public symbols in the record.
func (r *FileRecord) ExportedSymbols() int {
	count := 0
	for _, sym := range r.Symbols {
		if sym.Visibility == VisibilityPublic {
			count++
		}
	}
	return count
}

// Severity represents the severity of a diagnostic.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic records a per-file issue encountered during a run.
// Diagnostics accumulate on the store and ride on the published index;
// they never abort the run.
type Diagnostic struct {
	// Severity is the diagnostic severity.
	Severity Severity `json:"severity"`

	// Stage names the pipeline stage that produced the diagnostic.
	Stage string `json:"stage"`

	// Path is the file the diagnostic refers to, if any.
	Path string `json:"path,omitempty"`

	// Message is the human-readable description.
	Message string `json:"message"`
}
