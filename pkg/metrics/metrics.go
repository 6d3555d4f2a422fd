// Package metrics defines the Prometheus collectors used by the search engine
// and its consumers and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the engine.
type Metrics struct {
	DocsAddedTotal      prometheus.Counter
	DocsRemovedTotal    *prometheus.CounterVec
	AddFailuresTotal    *prometheus.CounterVec
	IndexedDocs         prometheus.Gauge
	IndexedTerms        prometheus.Gauge
	SearchQueriesTotal  *prometheus.CounterVec
	SearchLatency       *prometheus.HistogramVec
	SearchResultsCount  prometheus.Histogram
	BatchQueriesTotal   prometheus.Counter
	CacheHitsTotal      prometheus.Counter
	CacheMissesTotal    prometheus.Counter
	ZeroResultRequests  prometheus.Gauge
	DuplicatesRemoved   prometheus.Counter
	AnalyticsDropsTotal prometheus.Counter
}

// New creates all collectors and registers them with reg. A nil reg leaves
// the collectors unregistered, which is convenient in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DocsAddedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_added_total",
				Help: "Total documents added to the index.",
			},
		),
		DocsRemovedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docs_removed_total",
				Help: "Total documents removed from the index by strategy.",
			},
			[]string{"strategy"},
		),
		AddFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "doc_add_failures_total",
				Help: "Rejected document additions by error kind.",
			},
			[]string{"kind"},
		),
		IndexedDocs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "indexed_documents",
				Help: "Number of live documents.",
			},
		),
		IndexedTerms: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "indexed_terms",
				Help: "Number of terms with a non-empty posting list.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by strategy and outcome (hit, zero_result, or error kind).",
			},
			[]string{"strategy", "outcome"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"strategy"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 2, 3, 4, 5},
			},
		),
		BatchQueriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "batch_queries_total",
				Help: "Total queries dispatched through batch processing.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of result cache misses.",
			},
		),
		ZeroResultRequests: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "zero_result_requests",
				Help: "Requests with no results inside the statistics window.",
			},
		),
		DuplicatesRemoved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "duplicate_docs_removed_total",
				Help: "Total documents removed as duplicates.",
			},
		),
		AnalyticsDropsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "analytics_events_dropped_total",
				Help: "Analytics events dropped because the buffer was full.",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.DocsAddedTotal,
			m.DocsRemovedTotal,
			m.AddFailuresTotal,
			m.IndexedDocs,
			m.IndexedTerms,
			m.SearchQueriesTotal,
			m.SearchLatency,
			m.SearchResultsCount,
			m.BatchQueriesTotal,
			m.CacheHitsTotal,
			m.CacheMissesTotal,
			m.ZeroResultRequests,
			m.DuplicatesRemoved,
			m.AnalyticsDropsTotal,
		)
	}

	return m
}

// Handler returns the Prometheus scrape HTTP handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
