// Package badgerstore implements the embedded-KV storage backend on top of
// github.com/dgraph-io/badger/v4, grounded on pkg/metadata/store/badger's
// View/Update transaction pattern. Grounded on kvdb/unqlite.c for the
// backend's semantics: set/get/delete/list/commit over a single embedded
// database handle per namespace, with an in-memory mode when no path is
// configured (spec §4.4).
package badgerstore

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/kvprop/propd/internal/logger"
	"github.com/kvprop/propd/pkg/property/store"
)

// Backend is a badgerstore.Backend rooted at a single Badger database
// handle, one per namespace.
type Backend struct {
	db *badger.DB
}

func New() *Backend {
	return &Backend{}
}

func (b *Backend) Name() string { return "badger" }

// Open opens (creating if necessary) a Badger database at path, or in
// Badger's in-memory mode when path is empty — the direct analogue of
// unqlite.c's UNQLITE_OPEN_IN_MEMORY branch for namespaces with no
// configured path.
func (b *Backend) Open(_ context.Context, path string) error {
	opts := badger.DefaultOptions(path)
	opts = opts.WithLogger(nil) // badger's own logger is noisy; we log at the call sites instead
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("badgerstore: open: %w", err)
	}
	b.db = db
	return nil
}

func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *Backend) Set(_ context.Context, key string, value []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("badgerstore: set %s: %w", key, err)
	}
	return nil
}

func (b *Backend) Get(_ context.Context, key string) ([]byte, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			value = append([]byte(nil), v...)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badgerstore: get %s: %w", key, err)
	}
	return value, nil
}

func (b *Backend) Delete(_ context.Context, key string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("badgerstore: delete %s: %w", key, err)
	}
	return nil
}

func (b *Backend) List(_ context.Context, visit store.VisitFunc) error {
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.KeyCopy(nil))
			err := item.Value(func(v []byte) error {
				visit(key, append([]byte(nil), v...))
				return nil
			})
			if err != nil {
				logger.Warn("badgerstore: list value read failed", logger.KeyKey, key, logger.KeyError, err)
			}
		}
		return nil
	})
}

// Commit flushes the write-ahead log to disk. Badger's transactions are
// already durable on Update by default, but Sync makes the spec's deferred
// commit (§4.7) meaningful for backends whose sync writes can be deferred.
func (b *Backend) Commit(_ context.Context) error {
	if err := b.db.Sync(); err != nil {
		return fmt.Errorf("badgerstore: sync: %w", err)
	}
	return nil
}
