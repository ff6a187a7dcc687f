package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingest and search pipeline Prometheus metrics.
var (
	IngestRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qaindex",
			Name:      "ingest_runs_total",
			Help:      "Dataset loads by outcome",
		},
		[]string{"status"},
	)

	IngestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "qaindex",
			Name:      "ingest_duration_seconds",
			Help:      "Dataset load duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	DocumentsIngestedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "qaindex",
			Name:      "documents_ingested_total",
			Help:      "Documents upserted into the collection",
		},
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qaindex",
			Name:      "search_requests_total",
			Help:      "Query requests by action and outcome",
		},
		[]string{"action", "status"},
	)

	ResultsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "qaindex",
			Name:      "search_results_dropped_total",
			Help:      "Matches dropped below the relevance threshold",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers ingest and search metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(IngestRunsTotal)
	prometheus.MustRegister(IngestDuration)
	prometheus.MustRegister(DocumentsIngestedTotal)
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(ResultsDroppedTotal)
	pipelineMetricsRegistered = true
}
