package parsers

import (
	"regexp"
	"strings"

	"github.com/cartograph/carto/internal/record"
)

// TypeScriptParser extracts structure from TypeScript and JavaScript
// source. One parser covers both; in plain JavaScript the type-level
// patterns simply never match.
type TypeScriptParser struct {
	funcRe      *regexp.Regexp
	arrowRe     *regexp.Regexp
	classRe     *regexp.Regexp
	interfaceRe *regexp.Regexp
	typeRe      *regexp.Regexp
	constRe     *regexp.Regexp
	importRe    *regexp.Regexp
	requireRe   *regexp.Regexp
	callRe      *regexp.Regexp
	newRe       *regexp.Regexp
	branchRe    *regexp.Regexp
}

// NewTypeScriptParser creates a new TypeScript/JavaScript parser.
func NewTypeScriptParser() *TypeScriptParser {
	return &TypeScriptParser{
		funcRe:      regexp.MustCompile(`^\s*(export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*(\w+)\s*\(([^)]*)`),
		arrowRe:     regexp.MustCompile(`^\s*(export\s+)?(?:const|let)\s+(\w+)\s*(?::[^=]+)?=\s*(?:async\s+)?(?:\([^)]*\)|\w+)\s*(?::\s*[\w<>\[\], .]+)?\s*=>`),
		classRe:     regexp.MustCompile(`^\s*(export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+(\w+)(?:\s+extends\s+([\w.]+))?(?:\s+implements\s+([\w,\s.]+))?`),
		interfaceRe: regexp.MustCompile(`^\s*(export\s+)?interface\s+(\w+)(?:\s+extends\s+([\w,\s.]+))?`),
		typeRe:      regexp.MustCompile(`^\s*(export\s+)?type\s+(\w+)\s*=`),
		constRe:     regexp.MustCompile(`^\s*(export\s+)const\s+(\w+)\s*[:=]`),
		importRe:    regexp.MustCompile(`^\s*import\s+(?:type\s+)?.*?from\s+['"]([^'"]+)['"]|^\s*import\s+['"]([^'"]+)['"]`),
		requireRe:   regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`),
		callRe:      regexp.MustCompile(`([A-Za-z_$]\w*)\s*\(`),
		newRe:       regexp.MustCompile(`new\s+([A-Za-z_$][\w.]*)`),
		branchRe:    regexp.MustCompile(`^\s*(?:if|for|while|case|catch)\b|&&|\|\||\?\s*[^.:]`),
	}
}

// Language returns the language this parser handles.
func (p *TypeScriptParser) Language() string {
	return "typescript"
}

var tsKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"function": true, "return": true, "typeof": true, "require": true,
	"console": true, "constructor": true, "super": true, "import": true,
	"String": true, "Number": true, "Boolean": true, "Array": true,
	"Object": true, "Promise": true, "Error": true, "JSON": true,
	"Math": true, "Date": true, "Map": true, "Set": true,
}

// Parse extracts symbols, imports, and references from TS/JS source.
func (p *TypeScriptParser) Parse(path string, content []byte) (*record.FileRecord, error) {
	rec := &record.FileRecord{
		Path:     path,
		Language: "typescript",
		Size:     int64(len(content)),
	}

	lines := strings.Split(string(content), "\n")
	local := map[string]bool{}
	complexity := 0

	type pendingRef struct {
		name string
		kind record.RefKind
		line int
	}
	var pending []pendingRef

	declare := func(name string, kind record.SymbolKind, exported bool, line int, sig string) {
		local[name] = true
		rec.Symbols = append(rec.Symbols, record.Symbol{
			Name:       name,
			Kind:       kind,
			Visibility: visibilityOf(exported),
			StartLine:  line,
			EndLine:    line,
			Signature:  sig,
		})
	}

	inherit := func(bases string, line int) {
		for _, base := range strings.Split(bases, ",") {
			base = strings.TrimSpace(base)
			if dot := strings.LastIndex(base, "."); dot >= 0 {
				base = base[dot+1:]
			}
			if idx := strings.Index(base, "<"); idx >= 0 {
				base = base[:idx]
			}
			if base != "" {
				pending = append(pending, pendingRef{base, record.RefInheritance, line})
			}
		}
	}

	for i, line := range lines {
		lineNum := i + 1
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "*") {
			continue
		}

		if m := p.importRe.FindStringSubmatch(line); m != nil {
			module := m[1]
			if module == "" {
				module = m[2]
			}
			rec.Imports = append(rec.Imports, module)
			continue
		}
		for _, m := range p.requireRe.FindAllStringSubmatch(line, -1) {
			rec.Imports = append(rec.Imports, m[1])
		}

		switch {
		case p.classRe.MatchString(line):
			m := p.classRe.FindStringSubmatch(line)
			declare(m[2], record.SymbolClass, m[1] != "", lineNum, trimmed)
			if m[3] != "" {
				inherit(m[3], lineNum)
			}
			if m[4] != "" {
				inherit(m[4], lineNum)
			}
			complexity++
			continue
		case p.interfaceRe.MatchString(line):
			m := p.interfaceRe.FindStringSubmatch(line)
			declare(m[2], record.SymbolInterface, m[1] != "", lineNum, trimmed)
			if m[3] != "" {
				inherit(m[3], lineNum)
			}
			continue
		case p.typeRe.MatchString(line):
			m := p.typeRe.FindStringSubmatch(line)
			declare(m[2], record.SymbolTypeAlias, m[1] != "", lineNum, trimmed)
			continue
		case p.funcRe.MatchString(line):
			m := p.funcRe.FindStringSubmatch(line)
			declare(m[2], record.SymbolFunction, m[1] != "", lineNum, trimmed)
			complexity++
			continue
		case p.arrowRe.MatchString(line):
			m := p.arrowRe.FindStringSubmatch(line)
			declare(m[2], record.SymbolFunction, m[1] != "", lineNum, trimmed)
			complexity++
		case p.constRe.MatchString(line):
			m := p.constRe.FindStringSubmatch(line)
			declare(m[2], record.SymbolConstant, true, lineNum, trimmed)
		}

		if p.branchRe.MatchString(line) {
			complexity++
		}

		for _, call := range p.callRe.FindAllStringSubmatch(trimmed, -1) {
			name := call[1]
			if tsKeywords[name] {
				continue
			}
			pending = append(pending, pendingRef{name, record.RefCall, lineNum})
		}

		if m := p.newRe.FindStringSubmatch(line); m != nil {
			name := m[1]
			if dot := strings.LastIndex(name, "."); dot >= 0 {
				name = name[dot+1:]
			}
			if !tsKeywords[name] {
				pending = append(pending, pendingRef{name, record.RefUsage, lineNum})
			}
		}
	}

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
