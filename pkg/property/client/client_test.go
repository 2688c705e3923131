package client_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvprop/propd/pkg/property/client"
	"github.com/kvprop/propd/pkg/property/server"
)

func startTestServer(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "propd.sock")

	cfg := server.Config{
		SocketPath:      sockPath,
		VolatileEnabled: true,
		PersistBackend:  server.BackendSpec{Kind: "file", Path: filepath.Join(dir, "persist")},
		VolatileBackend: server.BackendSpec{Kind: "badger", Path: ""},
		CommitInterval:  time.Hour,
		SocketTimeout:   5 * time.Second,
	}

	srv, err := server.New(cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Serve(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return sockPath
}

func TestSetGetDelete(t *testing.T) {
	sock := startTestServer(t)
	c := client.New(sock)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, c.Set(ctx, "persist.foo", []byte("hello"), false))

	value, err := c.Get(ctx, "persist.foo", 64)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(value))

	require.NoError(t, c.Delete(ctx, "persist.foo"))

	_, err = c.Get(ctx, "persist.foo", 64)
	assert.Error(t, err)
}

func TestListEnumeratesEveryKey(t *testing.T) {
	sock := startTestServer(t)
	c := client.New(sock)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, c.Set(ctx, "persist.a", []byte("1"), false))
	require.NoError(t, c.Set(ctx, "persist.b", []byte("2"), false))

	props, err := c.List(ctx)
	require.NoError(t, err)
	seen := map[string]string{}
	for _, p := range props {
		seen[p.Key] = string(p.Value)
	}
	assert.Equal(t, "1", seen["persist.a"])
	assert.Equal(t, "2", seen["persist.b"])
}

func TestMonitorReceivesNotification(t *testing.T) {
	sock := startTestServer(t)
	c := client.New(sock)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	w, err := c.Monitor(ctx, "persist.net.*")
	require.NoError(t, err)
	defer w.Close()

	setCtx, setCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer setCancel()
	require.NoError(t, c.Set(setCtx, "persist.net.ip", []byte("1.2.3.4"), false))

	p, err := w.Next()
	require.NoError(t, err)
	assert.Equal(t, "persist.net.ip", p.Key)
	assert.Equal(t, "1.2.3.4", string(p.Value))
}

func TestCommitIsIdempotent(t *testing.T) {
	sock := startTestServer(t)
	c := client.New(sock)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, c.Commit(ctx))
	require.NoError(t, c.Commit(ctx))
}
