// Package metrics defines the Prometheus metric collectors used across the
// search engine and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the engine.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   prometheus.Histogram
	DocsIndexedTotal     *prometheus.CounterVec
	IndexErrorsTotal     *prometheus.CounterVec
	BarrelLoadsTotal     *prometheus.CounterVec
	BarrelCacheHits      prometheus.Counter
	BarrelCacheMisses    prometheus.Counter
	CorruptShardsTotal   *prometheus.CounterVec
	LexiconSize          prometheus.Gauge
	QueryCacheHits       prometheus.Counter
	QueryCacheMisses     prometheus.Counter
}

// New creates all metrics and registers them with the default Prometheus
// registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates all metrics and registers them with reg. Callers that need
// isolation register against their own prometheus.NewRegistry().
func NewWith(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by target and outcome (ok, zero_result, error).",
			},
			[]string{"target", "outcome"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"target"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
			},
		),
		DocsIndexedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docs_indexed_total",
				Help: "Total documents indexed by target type.",
			},
			[]string{"target"},
		),
		IndexErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_errors_total",
				Help: "Total indexing failures by target type.",
			},
			[]string{"target"},
		),
		BarrelLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "barrel_loads_total",
				Help: "Total barrel file loads from disk by index kind.",
			},
			[]string{"kind"},
		),
		BarrelCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "barrel_cache_hits_total",
				Help: "Total barrel cache hits.",
			},
		),
		BarrelCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "barrel_cache_misses_total",
				Help: "Total barrel cache misses.",
			},
		),
		CorruptShardsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corrupt_shards_total",
				Help: "Total corrupt shard files encountered by index kind.",
			},
			[]string{"kind"},
		),
		LexiconSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "lexicon_size",
				Help: "Number of distinct tokens in the lexicon.",
			},
		),
		QueryCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "query_cache_hits_total",
				Help: "Total query-result cache hits.",
			},
		),
		QueryCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "query_cache_misses_total",
				Help: "Total query-result cache misses.",
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.DocsIndexedTotal,
		m.IndexErrorsTotal,
		m.BarrelLoadsTotal,
		m.BarrelCacheHits,
		m.BarrelCacheMisses,
		m.CorruptShardsTotal,
		m.LexiconSize,
		m.QueryCacheHits,
		m.QueryCacheMisses,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
