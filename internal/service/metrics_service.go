package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the portal.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	renderTotal     *prometheus.CounterVec
	renderDuration  prometheus.Observer
	renderDegraded  *prometheus.CounterVec
	renderFailures  prometheus.Counter
	transitions     *prometheus.CounterVec
	exportJobs      *prometheus.CounterVec
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	renderTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "report_renders_total",
		Help: "Rendered report documents by envelope variant",
	}, []string{"variant"})

	renderDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "report_render_duration_seconds",
		Help:    "Time spent laying out report documents",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	})

	renderDegraded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "report_render_degraded_total",
		Help: "Selected charts rendered as the no-data placeholder",
	}, []string{"chart"})

	renderFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "report_render_failures_total",
		Help: "Renders that failed and surfaced as download failures",
	})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "report_transitions_total",
		Help: "Applied report status transitions by target status",
	}, []string{"to"})

	exportJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "register_export_jobs_total",
		Help: "Register export jobs by final outcome",
	}, []string{"format", "outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHits, cacheMisses,
		renderTotal, renderDuration, renderDegraded, renderFailures, transitions, exportJobs, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		renderTotal:     renderTotal,
		renderDuration:  renderDuration,
		renderDegraded:  renderDegraded,
		renderFailures:  renderFailures,
		transitions:     transitions,
		exportJobs:      exportJobs,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveCacheWrite tracks the duration of cache writes.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveRender records a completed render and its degraded charts.
func (m *MetricsService) ObserveRender(variant string, duration time.Duration, degradedCharts []string) {
	if m == nil {
		return
	}
	if variant == "" {
		variant = "none"
	}
	m.renderTotal.WithLabelValues(variant).Inc()
	m.renderDuration.Observe(duration.Seconds())
	for _, chart := range degradedCharts {
		m.renderDegraded.WithLabelValues(chart).Inc()
	}
}

// RecordRenderFailure counts a render that could not produce a document.
func (m *MetricsService) RecordRenderFailure() {
	if m == nil {
		return
	}
	m.renderFailures.Inc()
}

// RecordTransition counts an applied status change.
func (m *MetricsService) RecordTransition(to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to).Inc()
}

// RecordExportJob counts a register export reaching a final state.
func (m *MetricsService) RecordExportJob(format, outcome string) {
	if m == nil {
		return
	}
	m.exportJobs.WithLabelValues(format, outcome).Inc()
}
