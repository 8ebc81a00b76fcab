package ingestion

import (
	"path"
	"sort"
	"strings"

	"github.com/cartograph/carto/internal/record"
)

// resolver rewrites raw import strings into repo-relative file paths.
// Targets that stay unresolved keep their raw form; the graph layer
// treats them as external dependencies.
type resolver struct {
	paths map[string]bool
	// dirFiles maps a repo directory to the source files directly in
	// it, used for Go package imports.
	dirFiles map[string][]string
}

func newResolver(recs []*record.FileRecord) *resolver {
	r := &resolver{
		paths:    make(map[string]bool, len(recs)),
		dirFiles: make(map[string][]string),
	}
	for _, rec := range recs {
		r.paths[rec.Path] = true
		dir := path.Dir(rec.Path)
		r.dirFiles[dir] = append(r.dirFiles[dir], rec.Path)
	}
	for dir := range r.dirFiles {
		sort.Strings(r.dirFiles[dir])
	}
	return r
}

// resolveAll returns records with rewritten imports. The inputs are
// not mutated; cached records must survive a run untouched.
func (r *resolver) resolveAll(recs []*record.FileRecord) []*record.FileRecord {
	out := make([]*record.FileRecord, len(recs))
	for i, rec := range recs {
		clone := *rec
		clone.Imports = r.resolveImports(rec)
		out[i] = &clone
	}
	return out
}

func (r *resolver) resolveImports(rec *record.FileRecord) []string {
	var resolved []string
	seen := map[string]bool{}
	add := func(targets ...string) {
		for _, t := range targets {
			if t != "" && t != rec.Path && !seen[t] {
				seen[t] = true
				resolved = append(resolved, t)
			}
		}
	}

	for _, raw := range rec.Imports {
		var targets []string
		switch rec.Language {
		case "python":
			targets = r.pythonTargets(rec.Path, raw)
		case "typescript":
			targets = r.relativeTargets(rec.Path, raw)
		case "go":
			targets = r.goTargets(rec.Path, raw)
		}
		if len(targets) == 0 {
			add(raw) // unresolved, kept as external
			continue
		}
		add(targets...)
	}
	return resolved
}

// pythonTargets resolves dotted module paths. Absolute modules resolve
// from the repo root, then from the importing file's directory, which
// covers src-layout projects analyzed from the package directory.
func (r *resolver) pythonTargets(from, module string) []string {
	if strings.HasPrefix(module, ".") {
		dots := 0
		for dots < len(module) && module[dots] == '.' {
			dots++
		}
		base := path.Dir(from)
		for i := 1; i < dots; i++ {
			base = path.Dir(base)
		}
		rest := strings.ReplaceAll(module[dots:], ".", "/")
		return r.pythonCandidates(path.Join(base, rest))
	}

	modPath := strings.ReplaceAll(module, ".", "/")
	if targets := r.pythonCandidates(modPath); targets != nil {
		return targets
	}
	return r.pythonCandidates(path.Join(path.Dir(from), modPath))
}

func (r *resolver) pythonCandidates(base string) []string {
	if base == "" || base == "." {
		return nil
	}
	for _, candidate := range []string{base + ".py", path.Join(base, "__init__.py")} {
		if r.paths[candidate] {
			return []string{candidate}
		}
	}
	return nil
}

// relativeTargets resolves ./ and ../ specifiers the way a TypeScript
// module loader would. Bare specifiers are package imports and stay
// external.
func (r *resolver) relativeTargets(from, specifier string) []string {
	if !strings.HasPrefix(specifier, ".") {
		return nil
	}
	base := path.Clean(path.Join(path.Dir(from), specifier))

	if r.paths[base] {
		return []string{base}
	}
	for _, ext := range []string{".ts", ".tsx", ".js", ".jsx"} {
		if r.paths[base+ext] {
			return []string{base + ext}
		}
	}
	for _, ext := range []string{".ts", ".tsx", ".js", ".jsx"} {
		if index := path.Join(base, "index"+ext); r.paths[index] {
			return []string{index}
		}
	}
	return nil
}

// goTargets resolves an import path to a repo package directory by
// longest path-suffix match, then targets every Go file in it. The
// module prefix is unknown here, so "example.com/app/internal/store"
// matches the repo directory "internal/store".
func (r *resolver) goTargets(from, importPath string) []string {
	segments := strings.Split(importPath, "/")
	for start := 0; start < len(segments); start++ {
		dir := strings.Join(segments[start:], "/")
		files, ok := r.dirFiles[dir]
		if !ok {
			continue
		}
		var targets []string
		for _, f := range files {
			if f != from && strings.HasSuffix(f, ".go") {
				targets = append(targets, f)
			}
		}
		if len(targets) > 0 {
			return targets
		}
	}
	return nil
}
