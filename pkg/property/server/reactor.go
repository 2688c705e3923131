package server

import (
	"context"
	"time"

	"github.com/kvprop/propd/internal/logger"
	"github.com/kvprop/propd/pkg/property/metrics"
	"github.com/kvprop/propd/pkg/property/watch"
)

// Reactor is the single-threaded event loop of spec §4.7/§5: one goroutine
// (Run) owns Namespaces and the watcher Registry exclusively, so neither
// needs locking. Every other goroutine in the process — one per accepted
// connection, the idiomatic Go way to do blocking socket I/O — talks to
// the reactor only by submitting a closure through Submit and blocking on
// its completion. This is the channel-actor translation of the original's
// single epoll_wait loop: Go's natural per-connection-goroutine model is
// kept for I/O, while the "no other thread touches backends, the watcher
// list, or the commit deadline" invariant is preserved by funneling all
// state mutation through one owner goroutine.
type Reactor struct {
	NS       *Namespaces
	Watchers *watch.Registry

	// BootstrapSources is the semicolon-separated source-file list R
	// (reload) re-runs against NS with force=true.
	BootstrapSources string

	commitInterval time.Duration
	metrics        *metrics.Metrics

	jobs chan func(ctx context.Context)
}

func NewReactor(ns *Namespaces, commitInterval time.Duration, m *metrics.Metrics) *Reactor {
	return &Reactor{
		NS:             ns,
		Watchers:       watch.NewRegistry(),
		commitInterval: commitInterval,
		metrics:        m,
		jobs:           make(chan func(context.Context), 64),
	}
}

// Submit runs fn on the reactor goroutine and blocks until it returns.
// Connection handlers use this for every access to NS or Watchers.
func (re *Reactor) Submit(fn func(ctx context.Context)) {
	done := make(chan struct{})
	re.jobs <- func(ctx context.Context) {
		fn(ctx)
		close(done)
	}
	<-done
}

// Run is the reactor's event loop. It multiplexes incoming jobs (requests
// dispatched by connection goroutines) against the deferred-commit timer
// (spec §4.7 source 3) until ctx is cancelled.
func (re *Reactor) Run(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	armed := false

	for {
		select {
		case <-ctx.Done():
			if armed {
				timer.Stop()
			}
			return

		case job := <-re.jobs:
			job(ctx)
			if re.NS.Dirty() && !armed {
				timer.Reset(re.commitInterval)
				armed = true
			}

		case <-timer.C:
			armed = false
			if err := re.NS.Commit(ctx); err != nil {
				logger.Error("reactor: deferred commit failed", logger.KeyError, err)
				continue
			}
			re.metrics.Commit()
			logger.Debug("reactor: deferred commit ran")
		}
	}
}

// Metrics exposes the reactor's metrics sink to connection handlers.
func (re *Reactor) Metrics() *metrics.Metrics {
	return re.metrics
}
