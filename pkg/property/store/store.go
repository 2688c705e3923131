// Package store defines the storage-backend contract every namespace
// implementation (file-per-key, embedded-KV) must satisfy. Backends never
// enforce naming policy — namespace routing and the ro. read-only rule
// live one layer up, in pkg/property/server.
package store

import "context"

// VisitFunc is called once per stored property during List. The backends
// pass a freshly allocated value on every call, so the visitor may retain
// it beyond the call.
type VisitFunc func(key string, value []byte)

// Backend is the storage contract for a single namespace. Implementations
// are exclusively owned by the reactor goroutine — the single-threaded
// concurrency model of spec §5 means no implementation needs internal
// locking.
type Backend interface {
	// Open prepares the backend to serve a namespace rooted at path. An
	// empty path selects the backend's in-memory mode where supported.
	Open(ctx context.Context, path string) error
	// Close releases any resources Open acquired.
	Close() error

	// Set stores value under key, overwriting any existing value. Set does
	// not know about the ro. policy: the naming layer has already rejected
	// any write that policy forbids.
	Set(ctx context.Context, key string, value []byte) error
	// Get returns the stored value for key, or ErrNotFound-class error if
	// absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes key. Deleting an absent key is backend-specific:
	// fileperkey returns ErrNotFound, badgerstore returns nil. The naming
	// layer surfaces ErrNotFound to clients as ErrNoData.
	Delete(ctx context.Context, key string) error
	// List enumerates every stored property in a single pass. The
	// enumeration is unordered and need only be self-consistent within one
	// call.
	List(ctx context.Context, visit VisitFunc) error
	// Commit flushes pending state to durable storage. May be a no-op.
	Commit(ctx context.Context) error

	// Name identifies the backend kind for logging/metrics (e.g. "file",
	// "badger").
	Name() string
}

// ErrNotFound is a sentinel a Backend.Get implementation should wrap (via
// errors.Is-compatible wrapping, or by returning it directly) when key is
// absent.
var ErrNotFound = &notFoundError{}

type notFoundError struct{}

func (*notFoundError) Error() string { return "store: key not found" }
