// Package emit serializes the cluster index and per-cluster payloads.
//
// The same input and configuration always produce byte-identical
// artifacts: every list is pre-sorted by the producing layer, map keys
// are sorted by encoding/json, and no timestamps appear inside the
// artifact bodies. Downstream agents cache keyed by these bytes.
package emit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cartograph/carto/internal/cluster"
	"github.com/cartograph/carto/internal/graph"
	"github.com/cartograph/carto/internal/index"
	"github.com/cartograph/carto/internal/record"
)

// Level selects how much detail the artifacts carry.
type Level string

const (
	// LevelBasic emits member paths only.
	LevelBasic Level = "basic"

	// LevelRich emits full metadata, records, and recommendations.
	LevelRich Level = "rich"
)

// ValidLevel reports whether the level is one of the known values.
func ValidLevel(level Level) bool {
	return level == LevelBasic || level == LevelRich
}

// ClusterPayload is the per-cluster artifact: the cluster description
// plus the full file records of its members, scoped to that cluster.
type ClusterPayload struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Purpose    string   `json:"purpose"`
	Files      []string `json:"files"`
	Overlap    []string `json:"overlap,omitempty"`
	Size       int64    `json:"size"`
	Complexity int      `json:"complexity"`
	Oversized  bool     `json:"oversized,omitempty"`

	// Records carries the member file records (rich level only).
	Records []*record.FileRecord `json:"records,omitempty"`

	// External maps member paths to their unresolved imports
	// (rich level only).
	External map[string][]string `json:"external_dependencies,omitempty"`
}

// basicIndex is the reduced master index emitted at basic level.
type basicIndex struct {
	Summary  index.Summary `json:"summary"`
	Clusters []basicEntry  `json:"clusters"`
}

type basicEntry struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Files []string `json:"files"`
}

// MarshalIndex serializes the master index at the given level.
func MarshalIndex(idx *index.Index, level Level) ([]byte, error) {
	var v any = idx
	if level == LevelBasic {
		b := basicIndex{Summary: idx.Summary, Clusters: make([]basicEntry, 0, len(idx.Clusters))}
		for _, c := range idx.Clusters {
			b.Clusters = append(b.Clusters, basicEntry{ID: c.ID, Name: c.Name, Files: c.Files})
		}
		v = b
	}

	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling index: %w", err)
	}
	return append(out, '\n'), nil
}

// BuildPayload assembles the per-cluster payload for one cluster.
func BuildPayload(c *cluster.Cluster, store *record.Store, g *graph.Graph, level Level) *ClusterPayload {
	payload := &ClusterPayload{
		ID:         c.ID,
		Name:       c.Name,
		Purpose:    c.Purpose,
		Files:      c.Files,
		Overlap:    c.Overlap,
		Size:       c.Size,
		Complexity: c.Complexity,
		Oversized:  c.Oversized,
	}

	if level == LevelRich {
		for _, path := range c.Files {
			if rec := store.Get(path); rec != nil {
				payload.Records = append(payload.Records, rec)
			}
			if ext := g.External(path); len(ext) > 0 {
				if payload.External == nil {
					payload.External = make(map[string][]string)
				}
				payload.External[path] = ext
			}
		}
	}

	return payload
}

// MarshalPayload serializes one cluster payload.
func MarshalPayload(payload *ClusterPayload) ([]byte, error) {
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling cluster %s: %w", payload.ID, err)
	}
	return append(out, '\n'), nil
}

// Writer writes the artifacts under an output directory:
// <dir>/index.json and <dir>/clusters/<id>.json.
type Writer struct {
	dir   string
	level Level
}

// NewWriter creates a writer for the given output directory and level.
func NewWriter(dir string, level Level) *Writer {
	return &Writer{dir: dir, level: level}
}

// Write emits the master index and one payload per cluster. A previous
// clusters directory is replaced wholesale so stale payloads from an
// earlier run cannot survive.
func (w *Writer) Write(idx *index.Index, store *record.Store, g *graph.Graph) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	indexJSON, err := MarshalIndex(idx, w.level)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(w.dir, "index.json"), indexJSON, 0o644); err != nil {
		return fmt.Errorf("writing index.json: %w", err)
	}

	clustersDir := filepath.Join(w.dir, "clusters")
	if err := os.RemoveAll(clustersDir); err != nil {
		return fmt.Errorf("clearing clusters directory: %w", err)
	}
	if err := os.MkdirAll(clustersDir, 0o755); err != nil {
		return fmt.Errorf("creating clusters directory: %w", err)
	}

	for _, c := range idx.Clusters {
		payload := BuildPayload(c, store, g, w.level)
		payloadJSON, err := MarshalPayload(payload)
		if err != nil {
			return err
		}
		name := filepath.Join(clustersDir, c.ID+".json")
		if err := os.WriteFile(name, payloadJSON, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}

	return nil
}
