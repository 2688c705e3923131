// Package storetest is a conformance suite run identically against every
// store.Backend implementation, mirroring pkg/metadata/storetest's
// one-table-of-assertions-per-backend pattern.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvprop/propd/pkg/property/store"
)

// Run exercises the backend-agnostic contract of spec §4.2 and the
// round-trip invariants of spec §8 against a freshly opened backend. new
// must return a backend opened against a fresh, isolated root (a temp
// directory or an empty in-memory instance); Run calls Close itself.
func Run(t *testing.T, newBackend func(t *testing.T) store.Backend) {
	t.Helper()

	t.Run("set then get round-trips", func(t *testing.T) {
		b := newBackend(t)
		defer b.Close()
		ctx := context.Background()

		require.NoError(t, b.Set(ctx, "persist.foo", []byte("hello")))
		got, err := b.Get(ctx, "persist.foo")
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), got)
	})

	t.Run("get on absent key errors", func(t *testing.T) {
		b := newBackend(t)
		defer b.Close()
		ctx := context.Background()

		_, err := b.Get(ctx, "persist.nope")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("delete then get errors", func(t *testing.T) {
		b := newBackend(t)
		defer b.Close()
		ctx := context.Background()

		require.NoError(t, b.Set(ctx, "persist.foo", []byte("v")))
		require.NoError(t, b.Delete(ctx, "persist.foo"))
		_, err := b.Get(ctx, "persist.foo")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("list enumerates every key exactly once", func(t *testing.T) {
		b := newBackend(t)
		defer b.Close()
		ctx := context.Background()

		want := map[string]string{"k1": "v1", "k2": "v2", "k3": "v3"}
		for k, v := range want {
			require.NoError(t, b.Set(ctx, k, []byte(v)))
		}

		got := map[string]string{}
		require.NoError(t, b.List(ctx, func(key string, value []byte) {
			got[key] = string(value)
		}))
		assert.Equal(t, want, got)
	})

	t.Run("commit is idempotent", func(t *testing.T) {
		b := newBackend(t)
		defer b.Close()
		ctx := context.Background()

		require.NoError(t, b.Commit(ctx))
		require.NoError(t, b.Commit(ctx))
	})

	t.Run("binary values with embedded NULs round-trip exactly", func(t *testing.T) {
		b := newBackend(t)
		defer b.Close()
		ctx := context.Background()

		value := []byte{0x00, 0x01, 0x00, 0xff, 0x00}
		require.NoError(t, b.Set(ctx, "persist.bin", value))
		got, err := b.Get(ctx, "persist.bin")
		require.NoError(t, err)
		assert.Equal(t, value, got)
	})

	t.Run("set overwrites existing value", func(t *testing.T) {
		b := newBackend(t)
		defer b.Close()
		ctx := context.Background()

		require.NoError(t, b.Set(ctx, "persist.foo", []byte("v1")))
		require.NoError(t, b.Set(ctx, "persist.foo", []byte("v2")))
		got, err := b.Get(ctx, "persist.foo")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), got)
	})
}
