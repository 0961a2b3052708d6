// Package metrics exposes Prometheus collectors for the build engine:
// build counts and duration, failed-service counts, queue-name resolution
// outcomes, and cycle detections. Grounded on oriys/nova's
// internal/metrics/prometheus.go (registry-per-process, MustRegister at
// init, nil-safe recorder functions so callers don't need to check whether
// metrics were initialized).
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics wraps the collectors for one build engine process.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	buildsTotal          *prometheus.CounterVec
	buildDuration        prometheus.Histogram
	failedServicesTotal  *prometheus.CounterVec
	cycleDetectionsTotal prometheus.Counter

	queueLookupsTotal *prometheus.CounterVec
	queueRetryTotal   prometheus.Counter

	uptime prometheus.GaugeFunc
}

var defaultBuildBuckets = []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}

var promMetrics *PrometheusMetrics
var startTime = time.Now()

// InitPrometheus initializes the Prometheus metrics subsystem.
func InitPrometheus(namespace string, buckets []float64) {
	if len(buckets) == 0 {
		buckets = defaultBuildBuckets
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	pm := &PrometheusMetrics{
		registry: registry,

		buildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "builds_total",
				Help:      "Total number of snapshot builds, by outcome",
			},
			[]string{"outcome"}, // complete, partial, failed
		),

		buildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "build_duration_milliseconds",
				Help:      "Duration of a full snapshot build in milliseconds",
				Buckets:   buckets,
			},
		),

		failedServicesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "failed_services_total",
				Help:      "Services excluded from a build, by error type",
			},
			[]string{"error_type"},
		),

		cycleDetectionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycle_detections_total",
				Help:      "Total cyclic service-call dependencies detected during ordering",
			},
		),

		queueLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queue_lookups_total",
				Help:      "Queue-name resolutions, by kind and result",
			},
			[]string{"kind", "result"}, // kind: function, topic; result: cache_hit, resolved, error, empty, no_endpoint
		),

		queueRetryTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queue_resolver_retries_total",
				Help:      "Total retry attempts made by the queue resolver",
			},
		),
	}

	pm.uptime = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Time since the metrics subsystem was initialized",
		},
		func() float64 {
			return time.Since(startTime).Seconds()
		},
	)

	registry.MustRegister(
		pm.buildsTotal,
		pm.buildDuration,
		pm.failedServicesTotal,
		pm.cycleDetectionsTotal,
		pm.queueLookupsTotal,
		pm.queueRetryTotal,
		pm.uptime,
	)

	promMetrics = pm
}

// RecordBuild records the outcome and duration of a completed build.
func RecordBuild(outcome string, durationMs int64) {
	if promMetrics == nil {
		return
	}
	promMetrics.buildsTotal.WithLabelValues(outcome).Inc()
	promMetrics.buildDuration.Observe(float64(durationMs))
}

// RecordFailedService records one service excluded from a build.
func RecordFailedService(errorType string) {
	if promMetrics == nil {
		return
	}
	promMetrics.failedServicesTotal.WithLabelValues(errorType).Inc()
}

// RecordCycleDetection records one cyclic-dependency rejection.
func RecordCycleDetection() {
	if promMetrics == nil {
		return
	}
	promMetrics.cycleDetectionsTotal.Inc()
}

// RecordQueueLookup records the result of one queue-name resolution.
func RecordQueueLookup(kind, result string) {
	if promMetrics == nil {
		return
	}
	promMetrics.queueLookupsTotal.WithLabelValues(kind, result).Inc()
}

// RecordQueueRetry records one retry attempt by the queue resolver.
func RecordQueueRetry() {
	if promMetrics == nil {
		return
	}
	promMetrics.queueRetryTotal.Inc()
}

// PrometheusHandler returns an HTTP handler for Prometheus scraping.
func PrometheusHandler() http.Handler {
	if promMetrics == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("prometheus metrics not initialized"))
		})
	}
	return promhttp.HandlerFor(promMetrics.registry, promhttp.HandlerOpts{})
}

// PrometheusRegistry returns the registry, for wiring custom collectors.
func PrometheusRegistry() *prometheus.Registry {
	if promMetrics == nil {
		return nil
	}
	return promMetrics.registry
}
