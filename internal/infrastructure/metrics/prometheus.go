package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusExporter exports metrics to Prometheus format.
type PrometheusExporter struct {
	collector *Collector

	grpcRequests *prometheus.CounterVec
	grpcDuration *prometheus.HistogramVec
	grpcErrors   *prometheus.CounterVec
	pageErrors   *prometheus.CounterVec
	assignments  *prometheus.CounterVec
}

// NewPrometheusExporter creates a new Prometheus exporter registered on reg.
// Cache metrics are read from the collector at scrape time.
func NewPrometheusExporter(collector *Collector, reg prometheus.Registerer) *PrometheusExporter {
	factory := promauto.With(reg)

	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "pagetypes_cache_hits_total",
		Help: "Total number of page type cache hits",
	}, func() float64 { return float64(collector.GetCacheMetrics().Hits) })
	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "pagetypes_cache_misses_total",
		Help: "Total number of page type cache misses",
	}, func() float64 { return float64(collector.GetCacheMetrics().Misses) })
	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "pagetypes_cache_evictions_total",
		Help: "Total number of cache evictions due to memory limits",
	}, func() float64 { return float64(collector.GetCacheMetrics().Evictions) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "pagetypes_cache_keys_current",
		Help: "Current number of page types in the cache",
	}, func() float64 { return float64(collector.GetCacheMetrics().KeysCurrent) })
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "pagetypes_cache_memory_bytes",
		Help: "Current memory usage of the page type cache in bytes",
	}, func() float64 { return float64(collector.GetCacheMetrics().MemoryBytes) })

	return &PrometheusExporter{
		collector: collector,
		grpcRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagetypes_grpc_requests_total",
				Help: "Total number of gRPC requests",
			},
			[]string{"method"},
		),
		grpcDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pagetypes_grpc_request_duration_seconds",
				Help:    "Duration of gRPC requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
			},
			[]string{"method"},
		),
		grpcErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagetypes_grpc_errors_total",
				Help: "Total number of gRPC errors",
			},
			[]string{"method"},
		),
		pageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagetypes_page_errors_total",
				Help: "Total number of page errors returned in mutation payloads",
			},
			[]string{"code"},
		),
		assignments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagetypes_attribute_assignments_total",
				Help: "Total number of attributes requested per successful operation",
			},
			[]string{"operation"},
		),
	}
}

// RecordRequest records a request in Prometheus.
func (e *PrometheusExporter) RecordRequest(method string) {
	e.grpcRequests.WithLabelValues(method).Inc()
}

// RecordDuration records a duration in Prometheus.
func (e *PrometheusExporter) RecordDuration(method string, durationSeconds float64) {
	e.grpcDuration.WithLabelValues(method).Observe(durationSeconds)
}

// RecordError records an error in Prometheus.
func (e *PrometheusExporter) RecordError(method string) {
	e.grpcErrors.WithLabelValues(method).Inc()
}

// RecordPageError records a page error in both the collector and Prometheus.
func (e *PrometheusExporter) RecordPageError(code string) {
	e.collector.RecordPageError(code)
	e.pageErrors.WithLabelValues(code).Inc()
}

// RecordAssignments records changed attributes in both the collector and Prometheus.
func (e *PrometheusExporter) RecordAssignments(operation string, count int) {
	if count <= 0 {
		return
	}
	e.collector.RecordAssignments(operation, count)
	e.assignments.WithLabelValues(operation).Add(float64(count))
}
