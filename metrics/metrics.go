// Package metrics provides Prometheus metrics for the campus assistant
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the campus assistant
type Metrics struct {
	// HTTP request metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Retrieval metrics
	RetrievalDuration prometheus.Histogram
	RetrievalResults  *prometheus.HistogramVec
	FallbackFAQsTotal prometheus.Counter
	QueryCacheHits    prometheus.Counter
	QueryCacheMisses  prometheus.Counter

	// Corpus metrics
	CorpusRecords  *prometheus.GaugeVec
	ReloadsTotal   *prometheus.CounterVec
	LastReloadTime prometheus.Gauge

	// Generation metrics
	GenerationDuration prometheus.Histogram
	GenerationErrors   prometheus.Counter
}

// NewMetrics creates and registers all metrics on reg. Pass
// prometheus.NewRegistry() in tests to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{}

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campus_assistant_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campus_assistant_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	m.RetrievalDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "campus_assistant_retrieval_duration_seconds",
			Help:    "Duration of fuzzy retrieval across all corpora",
			Buckets: []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1},
		},
	)

	m.RetrievalResults = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campus_assistant_retrieval_results",
			Help:    "Number of results kept per corpus after filtering",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		},
		[]string{"corpus"},
	)

	m.FallbackFAQsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "campus_assistant_fallback_faqs_total",
			Help: "Number of contexts that used the fallback FAQ list",
		},
	)

	m.QueryCacheHits = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "campus_assistant_query_cache_hits_total",
			Help: "Retrievals answered from the query cache",
		},
	)

	m.QueryCacheMisses = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "campus_assistant_query_cache_misses_total",
			Help: "Retrievals that ran the matcher",
		},
	)

	m.CorpusRecords = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "campus_assistant_corpus_records",
			Help: "Number of records in each loaded corpus",
		},
		[]string{"corpus"},
	)

	m.ReloadsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campus_assistant_corpus_reloads_total",
			Help: "Corpus reload attempts",
		},
		[]string{"status"},
	)

	m.LastReloadTime = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "campus_assistant_corpus_last_reload_timestamp_seconds",
			Help: "Unix time of the last successful index build",
		},
	)

	m.GenerationDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "campus_assistant_generation_duration_seconds",
			Help:    "Duration of generation service calls",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	m.GenerationErrors = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "campus_assistant_generation_errors_total",
			Help: "Generation calls that failed and were replaced by the fallback message",
		},
	)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordRetrieval records one retrieval and its per-corpus result counts
func (m *Metrics) RecordRetrieval(duration time.Duration, faqs, departments, procedures int) {
	if m == nil {
		return
	}
	m.RetrievalDuration.Observe(duration.Seconds())
	m.RetrievalResults.WithLabelValues("faqs").Observe(float64(faqs))
	m.RetrievalResults.WithLabelValues("departments").Observe(float64(departments))
	m.RetrievalResults.WithLabelValues("procedures").Observe(float64(procedures))
}

// RecordCacheLookup counts a query cache hit or miss
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.QueryCacheHits.Inc()
	} else {
		m.QueryCacheMisses.Inc()
	}
}

// RecordFallback counts a context built from fallback FAQs
func (m *Metrics) RecordFallback() {
	if m == nil {
		return
	}
	m.FallbackFAQsTotal.Inc()
}

// RecordReload records a reload attempt and, on success, the corpus sizes
func (m *Metrics) RecordReload(err error, faqs, departments, procedures int) {
	if m == nil {
		return
	}
	if err != nil {
		m.ReloadsTotal.WithLabelValues("error").Inc()
		return
	}
	m.ReloadsTotal.WithLabelValues("success").Inc()
	m.CorpusRecords.WithLabelValues("faqs").Set(float64(faqs))
	m.CorpusRecords.WithLabelValues("departments").Set(float64(departments))
	m.CorpusRecords.WithLabelValues("procedures").Set(float64(procedures))
	m.LastReloadTime.SetToCurrentTime()
}

// RecordGeneration records a generation call
func (m *Metrics) RecordGeneration(duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.GenerationDuration.Observe(duration.Seconds())
	if err != nil {
		m.GenerationErrors.Inc()
	}
}
