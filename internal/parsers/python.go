package parsers

import (
	"regexp"
	"strings"

	"github.com/cartograph/carto/internal/record"
)

// PythonParser extracts structure from Python source with line-level
// regexes. It tolerates code the real interpreter would reject, which
// matters when analyzing repositories mid-refactor.
type PythonParser struct {
	defRe    *regexp.Regexp
	classRe  *regexp.Regexp
	importRe *regexp.Regexp
	callRe   *regexp.Regexp
	branchRe *regexp.Regexp
}

// NewPythonParser creates a new Python parser.
func NewPythonParser() *PythonParser {
	return &PythonParser{
		defRe:    regexp.MustCompile(`^(\s*)(?:async\s+)?def\s+(\w+)\s*\(([^)]*)\)\s*(?:->\s*([^:]+))?:`),
		classRe:  regexp.MustCompile(`^(\s*)class\s+(\w+)\s*(?:\(([^)]*)\))?:`),
		importRe: regexp.MustCompile(`^\s*(?:from\s+([\w.]+)\s+)?import\s+(.+)`),
		callRe:   regexp.MustCompile(`([A-Za-z_]\w*)\s*\(`),
		branchRe: regexp.MustCompile(`^\s*(?:if|elif|for|while|except|case)\b|\band\b|\bor\b`),
	}
}

// Language returns the language this parser handles.
func (p *PythonParser) Language() string {
	return "python"
}

var pythonKeywords = map[string]bool{
	"def": true, "class": true, "if": true, "elif": true, "for": true,
	"while": true, "with": true, "except": true, "return": true,
	"print": true, "len": true, "range": true, "isinstance": true,
	"super": true, "str": true, "int": true, "float": true, "bool": true,
	"list": true, "dict": true, "set": true, "tuple": true, "type": true,
}

// Parse extracts symbols, imports, and references from Python source.
func (p *PythonParser) Parse(path string, content []byte) (*record.FileRecord, error) {
	rec := &record.FileRecord{
		Path:     path,
		Language: "python",
		Size:     int64(len(content)),
	}

	lines := strings.Split(string(content), "\n")
	local := map[string]bool{}
	classIndent := -1
	complexity := 0

	type pendingRef struct {
		name string
		kind record.RefKind
		line int
	}
	var pending []pendingRef

	for i, line := range lines {
		lineNum := i + 1
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if m := p.classRe.FindStringSubmatch(line); m != nil {
			classIndent = len(m[1])
			local[m[2]] = true
			rec.Symbols = append(rec.Symbols, record.Symbol{
				Name:       m[2],
				Kind:       record.SymbolClass,
				Visibility: visibilityOf(!strings.HasPrefix(m[2], "_")),
				StartLine:  lineNum,
				EndLine:    lineNum,
				Signature:  trimmed,
			})
			for _, base := range strings.Split(m[3], ",") {
				base = strings.TrimSpace(base)
				base = strings.TrimPrefix(base, "metaclass=")
				if dot := strings.LastIndex(base, "."); dot >= 0 {
					base = base[dot+1:]
				}
				if base != "" && base != "object" {
					pending = append(pending, pendingRef{base, record.RefInheritance, lineNum})
				}
			}
			continue
		}

		if m := p.defRe.FindStringSubmatch(line); m != nil {
			indent := len(m[1])
			kind := record.SymbolFunction
			if classIndent >= 0 && indent > classIndent {
				kind = record.SymbolMethod
			} else {
				classIndent = -1
			}
			local[m[2]] = true
			rec.Symbols = append(rec.Symbols, record.Symbol{
				Name:       m[2],
				Kind:       kind,
				Visibility: visibilityOf(!strings.HasPrefix(m[2], "_")),
				StartLine:  lineNum,
				EndLine:    lineNum,
				Signature:  trimmed,
			})
			complexity++ // each function starts at complexity 1
			continue
		}

		if classIndent >= 0 && len(line)-len(strings.TrimLeft(line, " \t")) <= classIndent {
			classIndent = -1
		}

		if m := p.importRe.FindStringSubmatch(line); m != nil {
			p.appendImports(rec, m[1], m[2])
			continue
		}

		if p.branchRe.MatchString(line) {
			complexity++
		}

		for _, call := range p.callRe.FindAllStringSubmatch(trimmed, -1) {
			name := call[1]
			if pythonKeywords[name] {
				continue
			}
			pending = append(pending, pendingRef{name, record.RefCall, lineNum})
		}
	}

	// Filter references to locally declared names after the whole file
	// is scanned; a call can precede the local def that satisfies it.
	seen := map[string]bool{}
	for _, ref := range pending {
		if local[ref.name] {
			continue
		}
		key := string(ref.kind) + ":" + ref.name
		if seen[key] {
			continue
		}
		seen[key] = true
		rec.References = append(rec.References, record.Reference{Name: ref.name, Kind: ref.kind, Line: ref.line})
	}

	rec.Complexity = complexity
	rec.Maintainability = maintainability(rec.Size, len(lines), complexity)
	return rec, nil
}

// appendImports records "import a.b, c" and "from a.b import x, y".
// Module paths keep their dotted form; resolution to repo files happens
// during ingestion, where the full path set is known.
func (p *PythonParser) appendImports(rec *record.FileRecord, fromModule, names string) {
	if fromModule != "" {
		rec.Imports = append(rec.Imports, fromModule)
		return
	}
	for _, part := range strings.Split(names, ",") {
		part = strings.TrimSpace(part)
		if idx := strings.Index(part, " as "); idx > 0 {
			part = part[:idx]
		}
		part = strings.TrimSpace(part)
		if part != "" {
			rec.Imports = append(rec.Imports, part)
		}
	}
}
