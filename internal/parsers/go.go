package parsers

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/fzipp/gocyclo"

	"github.com/cartograph/carto/internal/record"
)

// GoParser parses Go source with the standard library AST.
type GoParser struct{}

// NewGoParser creates a new Go parser.
func NewGoParser() *GoParser {
	return &GoParser{}
}

// Language returns the language this parser handles.
func (p *GoParser) Language() string {
	return "go"
}

// Parse extracts symbols, imports, and references from Go source.
func (p *GoParser) Parse(path string, content []byte) (*record.FileRecord, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, content, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parsing go source: %w", err)
	}

	rec := &record.FileRecord{
		Path:     path,
		Language: "go",
		Size:     int64(len(content)),
	}

	for _, imp := range file.Imports {
		rec.Imports = append(rec.Imports, strings.Trim(imp.Path.Value, `"`))
	}

	// Names declared in this file. References to them stay local and
	// carry no coupling signal.
	local := map[string]bool{}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			sym := p.funcSymbol(d, fset, content)
			local[sym.Name] = true
			rec.Symbols = append(rec.Symbols, sym)
		case *ast.GenDecl:
			for _, sym := range p.genSymbols(d, fset, content) {
				local[sym.Name] = true
				rec.Symbols = append(rec.Symbols, sym)
			}
		}
	}

	p.collectReferences(file, fset, local, rec)

	for _, stat := range gocyclo.AnalyzeASTFile(file, fset, nil) {
		rec.Complexity += stat.Complexity
	}
	rec.Maintainability = maintainability(rec.Size, countLines(content), rec.Complexity)

	return rec, nil
}

func (p *GoParser) funcSymbol(fn *ast.FuncDecl, fset *token.FileSet, content []byte) record.Symbol {
	sym := record.Symbol{
		Name:       fn.Name.Name,
		Kind:       record.SymbolFunction,
		Visibility: visibilityOf(fn.Name.IsExported()),
		StartLine:  fset.Position(fn.Pos()).Line,
		EndLine:    fset.Position(fn.End()).Line,
	}
	if fn.Recv != nil && len(fn.Recv.List) > 0 {
		sym.Kind = record.SymbolMethod
	}
	sym.Signature = p.signature(fn, fset, content)
	return sym
}

func (p *GoParser) signature(fn *ast.FuncDecl, fset *token.FileSet, content []byte) string {
	sig := fn.Name.Name

	params := []string{}
	if fn.Type.Params != nil {
		for _, param := range fn.Type.Params.List {
			params = append(params, p.nodeText(param, fset, content))
		}
	}
	sig += "(" + strings.Join(params, ", ") + ")"

	if fn.Type.Results != nil && len(fn.Type.Results.List) > 0 {
		returns := []string{}
		for _, ret := range fn.Type.Results.List {
			returns = append(returns, p.nodeText(ret, fset, content))
		}
		if len(returns) == 1 {
			sig += " " + returns[0]
		} else {
			sig += " (" + strings.Join(returns, ", ") + ")"
		}
	}

	return sig
}

func (p *GoParser) genSymbols(decl *ast.GenDecl, fset *token.FileSet, content []byte) []record.Symbol {
	var syms []record.Symbol

	switch decl.Tok {
	case token.TYPE:
		for _, spec := range decl.Specs {
			typeSpec, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			sym := record.Symbol{
				Name:       typeSpec.Name.Name,
				Visibility: visibilityOf(typeSpec.Name.IsExported()),
				StartLine:  fset.Position(decl.Pos()).Line,
				EndLine:    fset.Position(decl.End()).Line,
			}
			switch t := typeSpec.Type.(type) {
			case *ast.StructType:
				sym.Kind = record.SymbolClass
				sym.Signature = "type " + typeSpec.Name.Name + " struct"
			case *ast.InterfaceType:
				sym.Kind = record.SymbolInterface
				sym.Signature = "type " + typeSpec.Name.Name + " interface"
			default:
				sym.Kind = record.SymbolTypeAlias
				sym.Signature = "type " + typeSpec.Name.Name + " " + p.nodeText(t, fset, content)
			}
			syms = append(syms, sym)
		}

	case token.VAR, token.CONST:
		kind := record.SymbolVariable
		if decl.Tok == token.CONST {
			kind = record.SymbolConstant
		}
		for _, spec := range decl.Specs {
			valueSpec, ok := spec.(*ast.ValueSpec)
			if !ok {
				continue
			}
			for _, name := range valueSpec.Names {
				if name.Name == "_" {
					continue
				}
				syms = append(syms, record.Symbol{
					Name:       name.Name,
					Kind:       kind,
					Visibility: visibilityOf(name.IsExported()),
					StartLine:  fset.Position(name.Pos()).Line,
					EndLine:    fset.Position(name.End()).Line,
				})
			}
		}
	}

	return syms
}

// collectReferences records calls and embedded-type usages whose target
// name is not declared in this file. Duplicate (name, kind) pairs are
// collapsed; the graph layer weights by resolved reference, not by
// occurrence count.
func (p *GoParser) collectReferences(file *ast.File, fset *token.FileSet, local map[string]bool, rec *record.FileRecord) {
	seen := map[string]bool{}
	add := func(name string, kind record.RefKind, pos token.Pos) {
		if name == "" || local[name] {
			return
		}
		key := string(kind) + ":" + name
		if seen[key] {
			return
		}
		seen[key] = true
		rec.References = append(rec.References, record.Reference{
			Name: name,
			Kind: kind,
			Line: fset.Position(pos).Line,
		})
	}

	ast.Inspect(file, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.CallExpr:
			switch fun := node.Fun.(type) {
			case *ast.Ident:
				add(fun.Name, record.RefCall, fun.Pos())
			case *ast.SelectorExpr:
				add(fun.Sel.Name, record.RefCall, fun.Pos())
			}
		case *ast.StructType:
			// Embedded fields behave like inheritance for coupling.
			for _, field := range node.Fields.List {
				if len(field.Names) > 0 {
					continue
				}
				if name := embeddedName(field.Type); name != "" {
					add(name, record.RefInheritance, field.Pos())
				}
			}
		case *ast.CompositeLit:
			if ident, ok := node.Type.(*ast.Ident); ok {
				add(ident.Name, record.RefUsage, ident.Pos())
			}
		}
		return true
	})
}

func embeddedName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		if ident, ok := t.X.(*ast.Ident); ok {
			return ident.Name
		}
	case *ast.SelectorExpr:
		return t.Sel.Name
	}
	return ""
}

func (p *GoParser) nodeText(n ast.Node, fset *token.FileSet, content []byte) string {
	if n == nil {
		return ""
	}
	start := fset.Position(n.Pos()).Offset
	end := fset.Position(n.End()).Offset
	if start >= 0 && end <= len(content) {
		return string(content[start:end])
	}
	return ""
}
