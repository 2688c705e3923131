// Package fileperkey implements the file-per-key storage backend: one
// regular file per property under a namespace directory. Grounded on
// kvdb/file.c — set is truncate-then-write, get is read-to-EOF, list
// filters directory entries to regular files, delete is unlink, and commit
// is a no-op (the OS page cache is trusted to persist writes eventually).
package fileperkey

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kvprop/propd/pkg/property/store"
)

// Backend is a fileperkey.Backend rooted at a single namespace directory.
type Backend struct {
	dir string
}

// New returns an unopened Backend. Call Open before use.
func New() *Backend {
	return &Backend{}
}

func (b *Backend) Name() string { return "file" }

// Open creates dir (and any missing parents) if it doesn't already exist.
// An empty path is rejected: unlike the embedded-KV backend, file-per-key
// has no in-memory mode — every property is a file, and a file needs
// somewhere to live.
func (b *Backend) Open(_ context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("fileperkey: path is required (no in-memory mode)")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("fileperkey: mkdir %s: %w", path, err)
	}
	b.dir = path
	return nil
}

func (b *Backend) Close() error { return nil }

func (b *Backend) Set(_ context.Context, key string, value []byte) error {
	f, err := os.OpenFile(b.keyPath(key), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o666)
	if err != nil {
		return fmt.Errorf("fileperkey: open %s: %w", key, err)
	}
	defer f.Close()
	if _, err := f.Write(value); err != nil {
		return fmt.Errorf("fileperkey: write %s: %w", key, err)
	}
	return nil
}

func (b *Backend) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(b.keyPath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("fileperkey: read %s: %w", key, err)
	}
	return data, nil
}

func (b *Backend) Delete(_ context.Context, key string) error {
	if err := os.Remove(b.keyPath(key)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return store.ErrNotFound
		}
		return fmt.Errorf("fileperkey: unlink %s: %w", key, err)
	}
	return nil
}

func (b *Backend) List(_ context.Context, visit store.VisitFunc) error {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return fmt.Errorf("fileperkey: readdir %s: %w", b.dir, err)
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		value, err := os.ReadFile(filepath.Join(b.dir, entry.Name()))
		if err != nil {
			// A file disappearing mid-listing is not fatal to the scan.
			continue
		}
		visit(entry.Name(), value)
	}
	return nil
}

// Commit is a no-op: this backend relies on the OS page cache, accepting
// that a crash mid-write can leave a partial value. That trade-off is
// documented in spec §4.3 as deliberate.
func (b *Backend) Commit(_ context.Context) error { return nil }

// keyPath maps a key to its file path. Keys are validated upstream (§4.5
// NUL-termination, KeyMax) but may still contain '/' — Base strips any
// directory components a malicious or buggy client tries to smuggle in, so
// a key can never escape its namespace directory.
func (b *Backend) keyPath(key string) string {
	return filepath.Join(b.dir, filepath.Base(key))
}
