package server

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvprop/propd/pkg/property/watch"
)

// fakeWatcher records every notification write it receives, for asserting
// which mutations a watcher did or didn't observe.
type fakeWatcher struct {
	bytes.Buffer
	closed bool
}

func (f *fakeWatcher) Close() error { f.closed = true; return nil }

func notifyRaw(reg *watch.Registry, key string, value []byte) {
	reg.Notify(key, value, func(w io.Writer, k string, v []byte) error {
		_, err := w.Write([]byte(k))
		return err
	})
}

func TestSubmitRunsOnReactorGoroutine(t *testing.T) {
	ns := newTestNamespaces(t)
	re := NewReactor(ns, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go re.Run(ctx)

	var ran bool
	re.Submit(func(ctx context.Context) {
		ran = true
		require.NoError(t, re.NS.Set(ctx, "persist.a", []byte("1"), false))
	})
	assert.True(t, ran)

	var got []byte
	re.Submit(func(ctx context.Context) {
		v, err := re.NS.Get(ctx, "persist.a", 64)
		require.NoError(t, err)
		got = v
	})
	assert.Equal(t, "1", string(got))
}

func TestDeferredCommitFiresAfterMutation(t *testing.T) {
	ns := newTestNamespaces(t)
	re := NewReactor(ns, 20*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go re.Run(ctx)

	re.Submit(func(ctx context.Context) {
		require.NoError(t, re.NS.Set(ctx, "persist.a", []byte("1"), false))
	})

	require.Eventually(t, func() bool {
		var dirty bool
		re.Submit(func(context.Context) { dirty = ns.Dirty() })
		return !dirty
	}, time.Second, 5*time.Millisecond, "deferred commit never cleared the dirty flag")
}

func TestWatcherRegisteredAfterMutationDoesNotSeeIt(t *testing.T) {
	reg := watch.NewRegistry()

	// A mutation happens before any watcher is registered.
	notifyRaw(reg, "persist.net.ip", []byte("1.2.3.4"))

	w := &fakeWatcher{}
	reg.Register("persist.net.*", w, "test")
	assert.Equal(t, 0, w.Len(), "watcher must not see mutations that predate its registration")

	notifyRaw(reg, "persist.net.ip", []byte("5.6.7.8"))
	assert.Equal(t, "persist.net.ip", w.String())
}

func TestNotifyDropsFailingWatcher(t *testing.T) {
	reg := watch.NewRegistry()
	good := &fakeWatcher{}
	reg.Register("persist.*", good, "good")
	bad := &failingWatcher{}
	reg.Register("persist.*", bad, "bad")

	notifyRaw(reg, "persist.a", []byte("v"))

	assert.Equal(t, "persist.a", good.String())
	assert.True(t, bad.closed)
	assert.Equal(t, 1, reg.Count())
}

// failingWatcher always errors on Write, simulating a dead connection.
type failingWatcher struct {
	closed bool
}

func (f *failingWatcher) Write(p []byte) (int, error) { return 0, io.ErrClosedPipe }
func (f *failingWatcher) Close() error                { f.closed = true; return nil }
