package record

import (
	"sort"
	"sync"
)

// Store is the in-memory collection of FileRecords for one analysis run.
//
// The parse workers add records concurrently; Seal is the join barrier
// after which the store is read-only and safe to share without locking.
type Store struct {
	mu      sync.RWMutex
	records map[string]*FileRecord
	diags   []Diagnostic
	sealed  bool
}

// NewStore creates a new empty store.
func NewStore() *Store {
	return &Store{
		records: make(map[string]*FileRecord),
	}
}

// Add inserts a record into the store. A record with an empty path, or a
// path already present, is skipped with a recorded warning rather than
// failing the run. Returns true if the record was stored.
func (s *Store) Add(rec *FileRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed {
		return false
	}
	if rec == nil || rec.Path == "" {
		s.diags = append(s.diags, Diagnostic{
			Severity: SeverityWarning,
			Stage:    "record",
			Message:  "skipped record with missing path",
		})
		return false
	}
	if _, exists := s.records[rec.Path]; exists {
		s.diags = append(s.diags, Diagnostic{
			Severity: SeverityWarning,
			Stage:    "record",
			Path:     rec.Path,
			Message:  "skipped duplicate record",
		})
		return false
	}

	s.records[rec.Path] = rec
	return true
}

// AddDiagnostic appends a diagnostic to the store.
func (s *Store) AddDiagnostic(d Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diags = append(s.diags, d)
}

// Seal marks the store read-only. All workers must have completed before
// Seal is called; afterwards no record is added or mutated.
func (s *Store) Seal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sealed = true
}

// Sealed reports whether the store has been sealed.
func (s *Store) Sealed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sealed
}

// Get returns the record for the given path, or nil.
func (s *Store) Get(path string) *FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[path]
}

// Has reports whether a record exists for the given path.
func (s *Store) Has(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[path]
	return ok
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Paths returns all record paths in sorted order.
func (s *Store) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]string, 0, len(s.records))
	for path := range s.records {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// TotalSize returns the summed byte size of all records.
func (s *Store) TotalSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, rec := range s.records {
		total += rec.Size
	}
	return total
}

// Diagnostics returns a copy of the accumulated diagnostics, ordered by
// path then message for stable output.
func (s *Store) Diagnostics() []Diagnostic {
	s.mu.RLock()
	defer s.mu.RUnlock()

	diags := make([]Diagnostic, len(s.diags))
	copy(diags, s.diags)
	sort.Slice(diags, func(i, j int) bool {
		if diags[i].Path != diags[j].Path {
			return diags[i].Path < diags[j].Path
		}
		return diags[i].Message < diags[j].Message
	})
	return diags
}
