package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes for different data types
const (
	keyIndex      = "index"
	prefixCluster = "c:"
	prefixMeta    = "m:"
)

// BadgerBackend persists artifacts in a BadgerDB database.
type BadgerBackend struct {
	mu sync.RWMutex
	db *badger.DB
}

// OpenBadger opens or creates the database at the given path.
func OpenBadger(path string, readOnly bool) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithLoggingLevel(badger.ERROR)
	if readOnly {
		opts = opts.WithReadOnly(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger DB: %w", err)
	}
	return &BadgerBackend{db: db}, nil
}

// Close releases all resources held by the backend.
func (b *BadgerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

// PutIndex replaces the stored master index.
func (b *BadgerBackend) PutIndex(ctx context.Context, data []byte) error {
	return b.set(ctx, []byte(keyIndex), data)
}

// Index returns the stored master index, or ErrNotFound.
func (b *BadgerBackend) Index(ctx context.Context) ([]byte, error) {
	return b.get(ctx, []byte(keyIndex))
}

// PutClusters replaces the whole cluster payload set.
func (b *BadgerBackend) PutClusters(ctx context.Context, payloads map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Collect stale ids first; deleting inside the iterator would
	// invalidate it.
	var stale [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixCluster)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("listing stored clusters: %w", err)
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return fmt.Errorf("deleting stale cluster: %w", err)
		}
	}
	for id, data := range payloads {
		if err := wb.Set([]byte(prefixCluster+id), data); err != nil {
			return fmt.Errorf("setting cluster %s: %w", id, err)
		}
	}
	return wb.Flush()
}

// Cluster returns one cluster payload by id, or ErrNotFound.
func (b *BadgerBackend) Cluster(ctx context.Context, id string) ([]byte, error) {
	return b.get(ctx, []byte(prefixCluster+id))
}

// ClusterIDs returns the stored cluster ids, sorted.
func (b *BadgerBackend) ClusterIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	var ids []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixCluster)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			ids = append(ids, strings.TrimPrefix(string(it.Item().Key()), prefixCluster))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing clusters: %w", err)
	}

	sort.Strings(ids)
	return ids, nil
}

// PutMeta stores one metadata key.
func (b *BadgerBackend) PutMeta(ctx context.Context, key, value string) error {
	return b.set(ctx, []byte(prefixMeta+key), []byte(value))
}

// Meta returns one metadata value, or ErrNotFound.
func (b *BadgerBackend) Meta(ctx context.Context, key string) (string, error) {
	data, err := b.get(ctx, []byte(prefixMeta+key))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (b *BadgerBackend) set(ctx context.Context, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (b *BadgerBackend) get(ctx context.Context, key []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return out, nil
}
