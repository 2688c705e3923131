package badgerstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kvprop/propd/pkg/property/store"
	"github.com/kvprop/propd/pkg/property/store/badgerstore"
	"github.com/kvprop/propd/pkg/property/store/storetest"
)

// newBackend opens an in-memory Badger instance per spec §4.4: a namespace
// with no configured path runs the embedded engine in memory.
func newBackend(t *testing.T) store.Backend {
	t.Helper()
	b := badgerstore.New()
	require.NoError(t, b.Open(context.Background(), ""))
	return b
}

func TestConformance(t *testing.T) {
	storetest.Run(t, newBackend)
}

func TestOnDiskOpen(t *testing.T) {
	b := badgerstore.New()
	require.NoError(t, b.Open(context.Background(), t.TempDir()))
	defer b.Close()

	ctx := context.Background()
	require.NoError(t, b.Set(ctx, "persist.foo", []byte("v")))
	require.NoError(t, b.Commit(ctx))
	got, err := b.Get(ctx, "persist.foo")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)
}
