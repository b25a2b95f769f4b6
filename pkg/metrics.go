package cache

// metrics.go is a thin abstraction over Prometheus so the façade can be used
// with or without metrics: a nil-safe *promMetrics wrapper with
// per-cache-name/per-backend labels, since oauth2-cache has named caches
// rather than shards.
//
// © 2025 oauth2-cache authors. MIT License.

import (
	"github.com/prometheus/client_golang/prometheus"
)

type promMetrics struct {
	hits      *prometheus.CounterVec
	misses    *prometheus.CounterVec
	sets      *prometheus.CounterVec
	errors    *prometheus.CounterVec
	entries   *prometheus.GaugeVec
}

func newPromMetrics(reg *prometheus.Registry) *promMetrics {
	labels := []string{"name", "backend"}

	pm := &promMetrics{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oauth2_cache",
			Name:      "hits_total",
			Help:      "Number of cache hits.",
		}, labels),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oauth2_cache",
			Name:      "misses_total",
			Help:      "Number of cache misses (including expired entries).",
		}, labels),
		sets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oauth2_cache",
			Name:      "sets_total",
			Help:      "Number of Set calls, including deletes.",
		}, labels),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oauth2_cache",
			Name:      "errors_total",
			Help:      "Number of hard back-end failures (I/O, network, lock).",
		}, labels),
		entries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "oauth2_cache",
			Name:      "entries",
			Help:      "Approximate live entry count, where the back-end can report it.",
		}, labels),
	}

	reg.MustRegister(pm.hits, pm.misses, pm.sets, pm.errors, pm.entries)
	return pm
}

func (m *promMetrics) incHit(name, backend string) {
	if m == nil {
		return
	}
	m.hits.WithLabelValues(name, backend).Inc()
}

func (m *promMetrics) incMiss(name, backend string) {
	if m == nil {
		return
	}
	m.misses.WithLabelValues(name, backend).Inc()
}

func (m *promMetrics) incSet(name, backend string) {
	if m == nil {
		return
	}
	m.sets.WithLabelValues(name, backend).Inc()
}

func (m *promMetrics) incError(name, backend string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(name, backend).Inc()
}

func (m *promMetrics) setEntries(name, backend string, n float64) {
	if m == nil {
		return
	}
	m.entries.WithLabelValues(name, backend).Set(n)
}
