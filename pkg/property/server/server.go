package server

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/kvprop/propd/internal/logger"
	"github.com/kvprop/propd/pkg/property/metrics"
	"github.com/kvprop/propd/pkg/property/store"
	"github.com/kvprop/propd/pkg/property/store/badgerstore"
	"github.com/kvprop/propd/pkg/property/store/fileperkey"
)

// Config is the subset of the daemon's configuration the wiring layer (C11)
// needs: where to listen, which backends back which namespace, the
// bootstrap source list, and the commit/socket timeouts.
type Config struct {
	SocketPath       string
	RemoteSocketPath string // optional second listener; empty disables it

	VolatileEnabled bool
	PersistBackend  BackendSpec
	VolatileBackend BackendSpec

	BootstrapSources string
	CommitInterval   time.Duration
	SocketTimeout    time.Duration
}

// BackendSpec names a concrete store.Backend and its storage path.
type BackendSpec struct {
	Kind string // "file" or "badger"
	Path string
}

func buildBackend(spec BackendSpec) (store.Backend, error) {
	switch spec.Kind {
	case "file":
		return fileperkey.New(), nil
	case "badger", "":
		return badgerstore.New(), nil
	default:
		return nil, fmt.Errorf("server: unknown backend kind %q", spec.Kind)
	}
}

// Server owns the listening socket(s) and the reactor; it is the concrete
// realization of C11, startup/wiring.
type Server struct {
	cfg      Config
	reactor  *Reactor
	listener net.Listener
	remote   net.Listener

	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// New constructs backends and the reactor per cfg, but does not yet bind
// sockets or start the event loop — call Serve for that.
func New(cfg Config, m *metrics.Metrics) (*Server, error) {
	persist, err := buildBackend(cfg.PersistBackend)
	if err != nil {
		return nil, fmt.Errorf("server: persist backend: %w", err)
	}
	if err := persist.Open(context.Background(), cfg.PersistBackend.Path); err != nil {
		return nil, fmt.Errorf("server: open persist backend: %w", err)
	}

	var volatile store.Backend
	if cfg.VolatileEnabled {
		volatile, err = buildBackend(cfg.VolatileBackend)
		if err != nil {
			return nil, fmt.Errorf("server: volatile backend: %w", err)
		}
		if err := volatile.Open(context.Background(), cfg.VolatileBackend.Path); err != nil {
			return nil, fmt.Errorf("server: open volatile backend: %w", err)
		}
	}

	ns := NewNamespaces(persist, volatile)
	re := NewReactor(ns, cfg.CommitInterval, m)
	re.BootstrapSources = cfg.BootstrapSources

	return &Server{cfg: cfg, reactor: re}, nil
}

// Serve binds the listening socket(s), runs the bootstrap loader, and then
// runs the reactor and accept loop(s) until ctx is cancelled. Stop alone
// ends the accept loops but not the reactor, so Serve returns only once
// ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	if err := os.Remove(s.cfg.SocketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("server: remove stale socket %s: %w", s.cfg.SocketPath, err)
	}
	listener, err := net.Listen("unix", s.cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.cfg.SocketPath, err)
	}
	s.listener = listener

	if s.cfg.RemoteSocketPath != "" {
		if err := os.Remove(s.cfg.RemoteSocketPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("server: remove stale remote socket %s: %w", s.cfg.RemoteSocketPath, err)
		}
		remote, err := net.Listen("unix", s.cfg.RemoteSocketPath)
		if err != nil {
			return fmt.Errorf("server: listen remote %s: %w", s.cfg.RemoteSocketPath, err)
		}
		s.remote = remote
	}

	if err := LoadSources(ctx, s.reactor.NS, s.cfg.BootstrapSources, false); err != nil {
		logger.Error("server: bootstrap load failed", logger.KeyError, err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.reactor.Run(ctx)
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop(ctx, s.listener)
	}()

	if s.remote != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.acceptLoop(ctx, s.remote)
		}()
	}

	go func() {
		<-ctx.Done()
		s.Stop(context.Background())
	}()

	s.wg.Wait()
	return s.reactor.NS.Close()
}

func (s *Server) acceptLoop(ctx context.Context, l net.Listener) {
	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			logger.Warn("server: accept failed", logger.KeyError, err)
			return
		}
		go HandleConnection(ctx, s.reactor, conn, s.cfg.SocketTimeout)
	}
}

// Stop closes the listening sockets, which unblocks the accept loops.
// In-flight per-connection goroutines complete on their own since the
// reactor keeps running until ctx is fully cancelled.
func (s *Server) Stop(context.Context) {
	s.shutdownOnce.Do(func() {
		if s.listener != nil {
			s.listener.Close()
		}
		if s.remote != nil {
			s.remote.Close()
		}
	})
}
