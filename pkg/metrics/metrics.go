// Package metrics defines the Prometheus collectors for index loading and
// query execution.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors.
type Metrics struct {
	IndexLoadsTotal   *prometheus.CounterVec
	IndexLoadDuration *prometheus.HistogramVec
	IndexDocuments    *prometheus.GaugeVec
	IndexTerms        *prometheus.GaugeVec
	LoadedVersions    prometheus.Gauge
	QueriesTotal      *prometheus.CounterVec
	QueryLatency      *prometheus.HistogramVec
	QueryResultsCount *prometheus.HistogramVec
	ReloadsSkipped    prometheus.Counter
}

// New creates all collectors under namespace and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func New(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		IndexLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "index_loads_total",
				Help:      "Index load attempts by version and status (ok, malformed, source_unavailable, ...).",
			},
			[]string{"version", "status"},
		),
		IndexLoadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "index_load_duration_seconds",
				Help:      "Time to fetch, decode and validate an index.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"version"},
		),
		IndexDocuments: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "index_documents",
				Help:      "Number of documents in the loaded index.",
			},
			[]string{"version"},
		),
		IndexTerms: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "index_terms",
				Help:      "Number of distinct body terms in the loaded index.",
			},
			[]string{"version"},
		),
		LoadedVersions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "loaded_versions",
				Help:      "Number of index versions currently loaded.",
			},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Queries by version and result type (hit, zero_result, empty, error).",
			},
			[]string{"version", "result_type"},
		),
		QueryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_latency_seconds",
				Help:      "Query execution latency in seconds.",
				Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
			},
			[]string{"version"},
		),
		QueryResultsCount: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_results_count",
				Help:      "Number of matches returned per query.",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
			},
			[]string{"version"},
		),
		ReloadsSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reloads_skipped_total",
				Help:      "Reloads skipped because the source checksum did not change.",
			},
		),
	}

	collectors := []prometheus.Collector{
		m.IndexLoadsTotal,
		m.IndexLoadDuration,
		m.IndexDocuments,
		m.IndexTerms,
		m.LoadedVersions,
		m.QueriesTotal,
		m.QueryLatency,
		m.QueryResultsCount,
		m.ReloadsSkipped,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
