// Package metrics holds the Prometheus collectors of the dashboard, on a
// registry of their own so nothing global leaks into /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "linkdash"

type Metrics struct {
	registry *prometheus.Registry

	BackendRequests *prometheus.CounterVec
	BackendDuration *prometheus.HistogramVec
	ListCache       *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge
	SessionEvents   *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		BackendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Backend API calls by endpoint and outcome",
		}, []string{"method", "endpoint", "outcome"}),
		BackendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Backend API call latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		ListCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "list_cache_total",
			Help:      "List loads by entity kind and result (fetched, stale, discarded, superseded, error)",
		}, []string{"kind", "result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Served HTTP requests by route pattern and status code",
		}, []string{"route", "status"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Sessions currently held by the in-memory store",
		}),
		SessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session changes by event (login, logout, language)",
		}, []string{"event"}),
	}

	reg.MustRegister(m.BackendRequests, m.BackendDuration, m.ListCache, m.HTTPRequests, m.ActiveSessions, m.SessionEvents)
	return m
}

// ObserveBackend satisfies backend.Observer.
func (m *Metrics) ObserveBackend(method, endpoint, outcome string, d time.Duration) {
	m.BackendRequests.WithLabelValues(method, endpoint, outcome).Inc()
	m.BackendDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// ObserveCache satisfies listview.Observer.
func (m *Metrics) ObserveCache(kind, result string) {
	m.ListCache.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) ObserveHTTP(route string, status int) {
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

func (m *Metrics) SetActiveSessions(n int) {
	m.ActiveSessions.Set(float64(n))
}

func (m *Metrics) ObserveSession(event string) {
	m.SessionEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
