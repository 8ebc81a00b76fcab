// Package keywords extracts descriptive terms for file groups using
// TF-IDF over symbol names and path segments. No external ML models
// are involved.
package keywords

import (
	"math"
	"sort"
	"strings"

	"github.com/cartograph/carto/internal/record"
)

// DefaultCount is the number of keywords extracted per group.
const DefaultCount = 5

// stopwords are identifier fragments too generic to describe anything.
var stopwords = map[string]bool{
	"get": true, "set": true, "new": true, "init": true, "main": true,
	"test": true, "util": true, "utils": true, "impl": true, "base": true,
	"data": true, "value": true, "item": true, "self": true, "this": true,
	"src": true, "lib": true, "internal": true, "pkg": true, "index": true,
	"err": true, "error": true, "string": true, "int": true, "bool": true,
}

// Extractor scores terms against the whole repository so keywords
// reflect what is distinctive about a group, not what is common
// everywhere.
type Extractor struct {
	idf      map[string]float64
	docs     map[string][]string
	docCount int
}

// NewExtractor builds term statistics from every record in the store,
// one document per file.
func NewExtractor(store *record.Store) *Extractor {
	e := &Extractor{
		idf:  make(map[string]float64),
		docs: make(map[string][]string),
	}

	docFreq := make(map[string]int)
	for _, path := range store.Paths() {
		rec := store.Get(path)
		terms := documentTerms(rec)
		e.docs[rec.Path] = terms
		e.docCount++

		seen := make(map[string]bool)
		for _, term := range terms {
			if !seen[term] {
				docFreq[term]++
				seen[term] = true
			}
		}
	}

	for term, df := range docFreq {
		e.idf[term] = math.Log(float64(e.docCount)/float64(df)) + 1
	}
	return e
}

// Top returns the n highest-scoring terms for the given file group,
// ordered by score descending with ties broken alphabetically.
func (e *Extractor) Top(files []string, n int) []string {
	if n <= 0 {
		n = DefaultCount
	}

	tf := make(map[string]int)
	for _, path := range files {
		for _, term := range e.docs[path] {
			tf[term]++
		}
	}
	if len(tf) == 0 {
		return nil
	}

	maxTF := 0
	for _, count := range tf {
		if count > maxTF {
			maxTF = count
		}
	}

	type scored struct {
		term  string
		score float64
	}
	ranked := make([]scored, 0, len(tf))
	for term, count := range tf {
		score := float64(count) / float64(maxTF) * e.idf[term]
		ranked = append(ranked, scored{term, score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].term < ranked[j].term
	})

	if n > len(ranked) {
		n = len(ranked)
	}
	top := make([]string, n)
	for i := 0; i < n; i++ {
		top[i] = ranked[i].term
	}
	return top
}

// documentTerms tokenizes a record into its term list: declared symbol
// names plus the path segments, file extension stripped.
func documentTerms(rec *record.FileRecord) []string {
	var terms []string
	for _, sym := range rec.Symbols {
		terms = append(terms, Tokenize(sym.Name)...)
	}

	path := rec.Path
	if idx := strings.LastIndex(path, "."); idx > 0 {
		path = path[:idx]
	}
	terms = append(terms, Tokenize(path)...)
	return terms
}

// Tokenize splits an identifier or path into lowercase terms, breaking
// on camelCase boundaries and non-alphanumeric characters. Short
// fragments, digits-only fragments, and stopwords are dropped.
func Tokenize(text string) []string {
	// Insert breaks at lower-to-upper transitions before folding case.
	var b strings.Builder
	b.Grow(len(text) + 8)
	for i, r := range text {
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := rune(text[i-1])
			if prev >= 'a' && prev <= 'z' || prev >= '0' && prev <= '9' {
				b.WriteByte(' ')
			}
		}
		b.WriteRune(r)
	}

	fields := strings.FieldsFunc(strings.ToLower(b.String()), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})

	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 3 || stopwords[f] || allDigits(f) {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
