// Package metrics exposes analyzer counters and latencies in Prometheus format.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "trendscope"

// Analysis outcomes
const (
	StatusOK     = "ok"
	StatusCached = "cached"
	StatusError  = "error"
)

// Metrics holds the analyzer collectors and the registry they are registered on
type Metrics struct {
	registry      *prometheus.Registry
	analyses      *prometheus.CounterVec
	anomalies     *prometheus.CounterVec
	cacheRequests *prometheus.CounterVec
	jobs          *prometheus.CounterVec
	duration      prometheus.Histogram
	seriesCount   prometheus.Histogram
}

// New creates the collectors on a dedicated registry, together with the Go
// runtime and process collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Analysis requests by outcome.",
		}, []string{"status"}),
		anomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anomalies_total",
			Help:      "Anomalies reported by detection method.",
		}, []string{"method"}),
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Result cache lookups by result.",
		}, []string{"result"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Queued analysis jobs processed by status.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Engine run time of uncached analyses.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		seriesCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_series",
			Help:      "Named series per analysis request.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128, 256},
		}),
	}

	m.registry.MustRegister(
		m.analyses,
		m.anomalies,
		m.cacheRequests,
		m.jobs,
		m.duration,
		m.seriesCount,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the registry the collectors live on
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveAnalysis counts one analysis. The duration is recorded only for engine runs.
func (m *Metrics) ObserveAnalysis(status string, series int, d time.Duration) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(status).Inc()
	if status == StatusOK {
		m.duration.Observe(d.Seconds())
		m.seriesCount.Observe(float64(series))
	}
}

// AddAnomalies counts anomalies found by method
func (m *Metrics) AddAnomalies(method string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.anomalies.WithLabelValues(method).Add(float64(n))
}

// CacheLookup counts a cache hit or miss
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheRequests.WithLabelValues(result).Inc()
}

// JobProcessed counts a queued job by its result status
func (m *Metrics) JobProcessed(status string) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
