// Package telemetry holds the process-wide Prometheus collectors.
package telemetry

import "github.com/prometheus/client_golang/prometheus"

// HTTPRequestDuration records request latency by method, route pattern,
// and status code.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "monk",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	},
	[]string{"method", "route", "status"},
)

// QueryDuration records how long a lowered filter query takes to
// execute against the adapter, by model and operation (select/find/
// aggregate).
var QueryDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "monk",
		Subsystem: "query",
		Name:      "duration_seconds",
		Help:      "Filter/query engine execution duration in seconds.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	},
	[]string{"model", "operation"},
)

// SchemaCacheResult counts schema registry cache hits and misses
// (spec.md §4.2's TTL-backed cache).
var SchemaCacheResult = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "monk",
		Subsystem: "schema_cache",
		Name:      "results_total",
		Help:      "Schema registry cache lookups by result.",
	},
	[]string{"result"}, // hit | miss | singleflight_shared
)

// PatternCacheResult counts pattern/query cache hits and misses
// (pkg/querycache).
var PatternCacheResult = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "monk",
		Subsystem: "pattern_cache",
		Name:      "results_total",
		Help:      "Query pattern cache lookups by result.",
	},
	[]string{"result"}, // hit | miss
)

// RecordBatchSize histograms how many records pass through one call to
// the record pipeline's createAll/updateAll/deleteAll (spec.md §4.4).
var RecordBatchSize = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "monk",
		Subsystem: "record",
		Name:      "batch_size",
		Help:      "Number of records in one record-pipeline batch operation.",
		Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	},
	[]string{"operation"}, // create | update | delete
)

// All returns every collector this module registers against the
// process-wide Prometheus registry.
func All() []prometheus.Collector {
	return []prometheus.Collector{
		HTTPRequestDuration,
		QueryDuration,
		SchemaCacheResult,
		PatternCacheResult,
		RecordBatchSize,
	}
}

// NewMetricsRegistry builds a fresh Prometheus registry and registers
// every given collector against it, so /metrics never shares process
// state with the default global registry.
func NewMetricsRegistry(collectors ...prometheus.Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	for _, c := range collectors {
		reg.MustRegister(c)
	}
	return reg
}
