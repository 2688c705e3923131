// Package metrics exposes optional Prometheus counters for the reactor.
// Every exported method is nil-safe: a nil *Metrics costs nothing, so the
// reactor can call these unconditionally and callers that don't want
// Prometheus simply never construct one.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters/gauges the reactor updates per request.
type Metrics struct {
	connectionsTotal  prometheus.Counter
	connectionsActive prometheus.Gauge
	requestsTotal     *prometheus.CounterVec
	requestErrors     *prometheus.CounterVec
	watchersActive    prometheus.Gauge
	notificationsSent prometheus.Counter
	commitsTotal      prometheus.Counter
}

// New registers a fresh set of collectors against reg and returns a Metrics
// that reports to them. Pass a nil *prometheus.Registry to disable metrics
// entirely; New then returns nil, and every method on the nil receiver is a
// no-op.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		return nil
	}

	factory := promauto.With(reg)

	return &Metrics{
		connectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "propd_connections_total",
			Help: "Total accepted connections.",
		}),
		connectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "propd_connections_active",
			Help: "Connections currently held open by the reactor (request handlers and monitors).",
		}),
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "propd_requests_total",
			Help: "Requests handled, labeled by opcode.",
		}, []string{"opcode"}),
		requestErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "propd_request_errors_total",
			Help: "Requests that returned a negative status, labeled by opcode.",
		}, []string{"opcode"}),
		watchersActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "propd_watchers_active",
			Help: "Monitor connections currently registered.",
		}),
		notificationsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "propd_notifications_sent_total",
			Help: "Change-notification frames written to watchers.",
		}),
		commitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "propd_commits_total",
			Help: "Backend commit invocations (timer-driven or explicit C requests).",
		}),
	}
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connectionsTotal.Inc()
	m.connectionsActive.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connectionsActive.Dec()
}

func (m *Metrics) Request(opcode string, failed bool) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(opcode).Inc()
	if failed {
		m.requestErrors.WithLabelValues(opcode).Inc()
	}
}

func (m *Metrics) WatcherRegistered() {
	if m == nil {
		return
	}
	m.watchersActive.Inc()
}

func (m *Metrics) WatcherDropped() {
	if m == nil {
		return
	}
	m.watchersActive.Dec()
}

func (m *Metrics) NotificationSent() {
	if m == nil {
		return
	}
	m.notificationsSent.Inc()
}

func (m *Metrics) Commit() {
	if m == nil {
		return
	}
	m.commitsTotal.Inc()
}
