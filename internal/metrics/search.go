package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search Prometheus metrics.
var (
	SearchQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opsearch",
			Name:      "search_queries_total",
			Help:      "Total number of search queries by outcome",
		},
		[]string{"outcome"}, // "ok" / "invalid" / "canceled"
	)

	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "opsearch",
			Name:      "search_duration_seconds",
			Help:      "Time spent scanning and ranking records for one query",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	SearchMatches = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "opsearch",
			Name:      "search_matches",
			Help:      "Number of matches returned per query",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100, 500},
		},
	)

	SearchRecordsScanned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "opsearch",
			Name:      "search_records_scanned_total",
			Help:      "Total records scored across all queries",
		},
	)

	SearchCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opsearch",
			Name:      "search_cache_total",
			Help:      "Search result cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

// Dataset Prometheus metrics.
var (
	DatasetRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "opsearch",
			Name:      "dataset_records",
			Help:      "Number of records in the active snapshot",
		},
	)

	DatasetReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opsearch",
			Name:      "dataset_reloads_total",
			Help:      "Dataset load attempts by status",
		},
		[]string{"status"}, // "ok" / "error"
	)

	DatasetLoadedTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "opsearch",
			Name:      "dataset_loaded_timestamp_seconds",
			Help:      "Unix time of the last successful dataset load",
		},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers search, cache and dataset metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchQueriesTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchMatches)
	prometheus.MustRegister(SearchRecordsScanned)
	prometheus.MustRegister(SearchCacheTotal)
	prometheus.MustRegister(DatasetRecords)
	prometheus.MustRegister(DatasetReloadsTotal)
	prometheus.MustRegister(DatasetLoadedTimestamp)
	searchMetricsRegistered = true
}
