package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartograph/carto/internal/record"
)

const goSample = `package server

import (
	"fmt"

	"example.com/app/store"
)

type Handler struct {
	Base
	name string
}

type Reader interface {
	Read() error
}

const defaultPort = 8080

func NewHandler(name string) *Handler {
	s := store.Open()
	fmt.Println(s)
	return &Handler{name: name}
}

func (h *Handler) Serve() error {
	if h.name == "" {
		return fmt.Errorf("no name")
	}
	return nil
}
`

func symbolNames(rec *record.FileRecord) map[string]record.SymbolKind {
	out := map[string]record.SymbolKind{}
	for _, sym := range rec.Symbols {
		out[sym.Name] = sym.Kind
	}
	return out
}

func refNames(rec *record.FileRecord, kind record.RefKind) []string {
	var out []string
	for _, ref := range rec.References {
		if ref.Kind == kind {
			out = append(out, ref.Name)
		}
	}
	return out
}

func TestGoParser_Symbols(t *testing.T) {
	t.Parallel()

	rec, err := NewGoParser().Parse("server/handler.go", []byte(goSample))
	require.NoError(t, err)

	assert.Equal(t, "go", rec.Language)
	assert.Equal(t, int64(len(goSample)), rec.Size)

	kinds := symbolNames(rec)
	assert.Equal(t, record.SymbolClass, kinds["Handler"])
	assert.Equal(t, record.SymbolInterface, kinds["Reader"])
	assert.Equal(t, record.SymbolConstant, kinds["defaultPort"])
	assert.Equal(t, record.SymbolFunction, kinds["NewHandler"])
	assert.Equal(t, record.SymbolMethod, kinds["Serve"])
}

func TestGoParser_Visibility(t *testing.T) {
	t.Parallel()

	rec, err := NewGoParser().Parse("server/handler.go", []byte(goSample))
	require.NoError(t, err)

	vis := map[string]record.Visibility{}
	for _, sym := range rec.Symbols {
		vis[sym.Name] = sym.Visibility
	}
	assert.Equal(t, record.VisibilityPublic, vis["Handler"])
	assert.Equal(t, record.VisibilityPrivate, vis["defaultPort"])
	assert.Equal(t, 4, rec.ExportedSymbols())
}

func TestGoParser_ImportsAndReferences(t *testing.T) {
	t.Parallel()

	rec, err := NewGoParser().Parse("server/handler.go", []byte(goSample))
	require.NoError(t, err)

	assert.Equal(t, []string{"fmt", "example.com/app/store"}, rec.Imports)

	calls := refNames(rec, record.RefCall)
	assert.Contains(t, calls, "Open")
	assert.Contains(t, calls, "Println")
	// Locally declared names never become references.
	assert.NotContains(t, calls, "NewHandler")

	assert.Equal(t, []string{"Base"}, refNames(rec, record.RefInheritance))
}

func TestGoParser_Complexity(t *testing.T) {
	t.Parallel()

	rec, err := NewGoParser().Parse("server/handler.go", []byte(goSample))
	require.NoError(t, err)

	// NewHandler contributes 1, Serve contributes 2 (one branch).
	assert.Equal(t, 3, rec.Complexity)
	assert.Greater(t, rec.Maintainability, 0.0)
	assert.LessOrEqual(t, rec.Maintainability, 100.0)
}

func TestGoParser_SignatureIncludesReturns(t *testing.T) {
	t.Parallel()

	rec, err := NewGoParser().Parse("server/handler.go", []byte(goSample))
	require.NoError(t, err)

	for _, sym := range rec.Symbols {
		if sym.Name == "NewHandler" {
			assert.Equal(t, "NewHandler(name string) *Handler", sym.Signature)
			return
		}
	}
	t.Fatal("NewHandler symbol not found")
}

func TestGoParser_SyntaxErrorFails(t *testing.T) {
	t.Parallel()

	_, err := NewGoParser().Parse("bad.go", []byte("package x\nfunc {"))
	assert.Error(t, err)
}

func TestGoParser_DuplicateReferencesCollapse(t *testing.T) {
	t.Parallel()

	src := `package x

func a() {
	helper()
	helper()
	helper()
}
`
	rec, err := NewGoParser().Parse("x.go", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"helper"}, refNames(rec, record.RefCall))
}
