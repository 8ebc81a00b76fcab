package graph

import (
	"fmt"
	"sort"

	"github.com/cartograph/carto/internal/record"
)

// Build constructs the dependency graph from a sealed record store.
//
// Import targets present in the store become import edges; everything
// else is kept as external-dependency metadata. References are resolved
// by symbol name against a definition index over the store; a reference
// whose name is declared in several files produces an edge to each
// declaring file. Build never mutates the records.
func Build(store *record.Store) *Graph {
	g := newGraph()

	paths := store.Paths()
	for _, path := range paths {
		g.addNode(path, store.Get(path).Size)
	}

	// Definition index: symbol name -> sorted list of declaring files.
	defines := make(map[string][]string)
	for _, path := range paths {
		for _, sym := range store.Get(path).Symbols {
			defines[sym.Name] = append(defines[sym.Name], path)
		}
	}
	for name := range defines {
		sort.Strings(defines[name])
	}

	for _, path := range paths {
		rec := store.Get(path)

		for _, imp := range rec.Imports {
			if imp == path {
				continue
			}
			if store.Has(imp) {
				g.addWeight(path, imp, EdgeImport, 1)
			} else {
				g.addExternal(path, imp)
			}
		}

		for _, ref := range rec.References {
			targets := defines[ref.Name]
			if len(targets) == 0 {
				continue
			}
			kind := EdgeCall
			if ref.Kind == record.RefInheritance {
				kind = EdgeInheritance
			}
			for _, target := range targets {
				if target == path {
					continue
				}
				// Resolved references couple files more tightly than imports.
				g.addWeight(path, target, kind, 2)
			}
		}
	}

	return g
}

// BuildWithDiagnostics builds the graph and records a summary diagnostic
// for every file whose imports were all unresolvable, which usually means
// a parser produced a degenerate record.
func BuildWithDiagnostics(store *record.Store) *Graph {
	g := Build(store)

	for _, path := range store.Paths() {
		rec := store.Get(path)
		if len(rec.Imports) == 0 {
			continue
		}
		if len(g.Successors(path)) == 0 && len(g.External(path)) == len(rec.Imports) {
			store.AddDiagnostic(record.Diagnostic{
				Severity: record.SeverityWarning,
				Stage:    "graph",
				Path:     path,
				Message:  fmt.Sprintf("no repo-internal imports resolved (%d external)", len(rec.Imports)),
			})
		}
	}

	return g
}
