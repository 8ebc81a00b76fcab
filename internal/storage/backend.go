// Package storage persists analysis artifacts between runs.
//
// The backend stores the serialized master index, the per-cluster
// payloads, and a small set of run metadata keys. Values are opaque
// bytes; serialization belongs to the emit layer.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested key has never been stored.
var ErrNotFound = errors.New("storage: not found")

// Meta keys written by the pipeline.
const (
	MetaMode       = "mode"
	MetaRunAt      = "run_at"
	MetaFiles      = "files"
	MetaClusters   = "clusters"
	MetaRepoRoot   = "repo_root"
	MetaDurationMS = "duration_ms"
)

// Backend is the persistence interface for analysis artifacts.
// Implementations must be safe for concurrent use.
type Backend interface {
	// PutIndex replaces the stored master index.
	PutIndex(ctx context.Context, data []byte) error

	// Index returns the stored master index, or ErrNotFound.
	Index(ctx context.Context) ([]byte, error)

	// PutClusters replaces the whole cluster payload set. Payloads
	// from earlier runs are removed.
	PutClusters(ctx context.Context, payloads map[string][]byte) error

	// Cluster returns one cluster payload by id, or ErrNotFound.
	Cluster(ctx context.Context, id string) ([]byte, error)

	// ClusterIDs returns the stored cluster ids, sorted.
	ClusterIDs(ctx context.Context) ([]string, error)

	// PutMeta stores one metadata key.
	PutMeta(ctx context.Context, key, value string) error

	// Meta returns one metadata value, or ErrNotFound.
	Meta(ctx context.Context, key string) (string, error)

	// Close releases all resources held by the backend.
	Close() error
}
