// Package server implements the property reactor: the single-threaded
// event loop (C7), the namespace/naming-policy layer sitting above the
// storage backends (C1 + the shared policy half of C2), and the startup
// bootstrap loader (C8) and wiring (C11).
package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/kvprop/propd/pkg/property"
	"github.com/kvprop/propd/pkg/property/perrors"
	"github.com/kvprop/propd/pkg/property/store"
)

// Namespaces routes keys to backends and enforces the policy rules the
// backends themselves don't know about: persist-vs-volatile routing (C1)
// and the ro. write-once rule (spec §3, "Read-only policy"). It also
// tracks the dirty flag the reactor's commit timer consults.
//
// Namespaces is owned exclusively by the reactor goroutine; like the
// backends underneath it, it carries no internal locking.
type Namespaces struct {
	persist  store.Backend
	volatile store.Backend // nil if the volatile namespace is disabled

	// readOnlySeen records ro.* keys that have been successfully set at
	// least once, across both namespaces, so a second non-force write can
	// be rejected even after the value itself would be indistinguishable
	// from "not yet set". Touched only by the reactor goroutine.
	readOnlySeen map[string]struct{}
	dirty        bool
}

func NewNamespaces(persist store.Backend, volatile store.Backend) *Namespaces {
	return &Namespaces{
		persist:      persist,
		volatile:     volatile,
		readOnlySeen: make(map[string]struct{}),
	}
}

// Route implements C1: route(key) -> {NS_PERSIST, NS_VOLATILE} | ERR_NO_NAMESPACE.
// It is pure: same input always yields the same output (spec §8 invariant 3).
func (n *Namespaces) Route(key string) (property.Namespace, error) {
	if strings.HasPrefix(key, property.PersistPrefix) {
		return property.NamespacePersist, nil
	}
	if n.volatile == nil {
		return 0, perrors.ErrNoNamespace
	}
	return property.NamespaceVolatile, nil
}

func (n *Namespaces) backendFor(ns property.Namespace) store.Backend {
	if ns == property.NamespacePersist {
		return n.persist
	}
	return n.volatile
}

// Set implements the naming-policy half of C2/C3/C4's Set contract: route,
// then — unless force is set — reject a write to an already-seen ro.* key
// with ErrPerm.
func (n *Namespaces) Set(ctx context.Context, key string, value []byte, force bool) error {
	if property.KeyEmpty(key) {
		return perrors.ErrInval
	}
	if property.KeyTooLong(key) {
		return perrors.Err2Big
	}
	if !property.ValidValue(value) {
		return perrors.Err2Big
	}
	ns, err := n.Route(key)
	if err != nil {
		return err
	}

	if property.IsReadOnly(key) && !force {
		if _, seen := n.readOnlySeen[key]; seen {
			return perrors.ErrPerm
		}
	}

	backend := n.backendFor(ns)
	if err := backend.Set(ctx, key, value); err != nil {
		return fmt.Errorf("%w: %v", perrors.ErrIO, err)
	}

	if property.IsReadOnly(key) {
		n.readOnlySeen[key] = struct{}{}
	}
	n.dirty = true
	return nil
}

func (n *Namespaces) Get(ctx context.Context, key string, bufCap int) ([]byte, error) {
	if property.KeyEmpty(key) {
		return nil, perrors.ErrInval
	}
	if property.KeyTooLong(key) {
		return nil, perrors.Err2Big
	}
	ns, err := n.Route(key)
	if err != nil {
		return nil, err
	}
	value, err := n.backendFor(ns).Get(ctx, key)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, perrors.ErrNoData
		}
		return nil, fmt.Errorf("%w: %v", perrors.ErrIO, err)
	}
	if bufCap >= 0 && len(value) > bufCap {
		value = value[:bufCap]
	}
	return value, nil
}

func (n *Namespaces) Delete(ctx context.Context, key string, force bool) error {
	if property.KeyEmpty(key) {
		return perrors.ErrInval
	}
	if property.KeyTooLong(key) {
		return perrors.Err2Big
	}
	ns, err := n.Route(key)
	if err != nil {
		return err
	}
	if property.IsReadOnly(key) && !force {
		if _, seen := n.readOnlySeen[key]; seen {
			return perrors.ErrPerm
		}
	}
	backend := n.backendFor(ns)
	if err := backend.Delete(ctx, key); err != nil {
		if err == store.ErrNotFound {
			return perrors.ErrNoData
		}
		return fmt.Errorf("%w: %v", perrors.ErrIO, err)
	}
	n.dirty = true
	return nil
}

// List enumerates every key in every enabled namespace exactly once (spec
// §8 invariant 7).
func (n *Namespaces) List(ctx context.Context, visit store.VisitFunc) error {
	if err := n.persist.List(ctx, visit); err != nil {
		return fmt.Errorf("%w: %v", perrors.ErrIO, err)
	}
	if n.volatile != nil {
		if err := n.volatile.List(ctx, visit); err != nil {
			return fmt.Errorf("%w: %v", perrors.ErrIO, err)
		}
	}
	return nil
}

// Commit flushes every enabled backend and clears the dirty flag.
func (n *Namespaces) Commit(ctx context.Context) error {
	if err := n.persist.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", perrors.ErrIO, err)
	}
	if n.volatile != nil {
		if err := n.volatile.Commit(ctx); err != nil {
			return fmt.Errorf("%w: %v", perrors.ErrIO, err)
		}
	}
	n.dirty = false
	return nil
}

// Dirty reports whether a mutation has occurred since the last Commit.
func (n *Namespaces) Dirty() bool {
	return n.dirty
}

// Close closes every enabled backend.
func (n *Namespaces) Close() error {
	var firstErr error
	if err := n.persist.Close(); err != nil {
		firstErr = err
	}
	if n.volatile != nil {
		if err := n.volatile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
