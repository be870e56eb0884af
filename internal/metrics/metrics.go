// Package metrics defines the Prometheus collectors of the search service
// and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   *prometheus.HistogramVec
	IndexBuildsTotal     *prometheus.CounterVec
	IndexTerms           *prometheus.GaugeVec
	IndexDocuments       *prometheus.GaugeVec
	IndexObjects         *prometheus.GaugeVec
	JobsTotal            *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, route, and status.",
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
				Help: "Total search queries by index and result type (hit, zero_result).",
			},
			[]string{"index", "result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search query latency in seconds.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			},
			[]string{"index"},
		),
		SearchResultsCount: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of hits returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 500},
			},
			[]string{"index"},
		),
		IndexBuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_builds_total",
				Help: "Total index builds and imports by source and status.",
			},
			[]string{"source", "status"},
		),
		IndexTerms: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "index_terms",
				Help: "Number of distinct terms in the published snapshot of an index.",
			},
			[]string{"index"},
		),
		IndexDocuments: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "index_documents",
				Help: "Number of documents in the published snapshot of an index.",
			},
			[]string{"index"},
		),
		IndexObjects: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "index_objects",
				Help: "Number of objects in the published snapshot of an index.",
			},
			[]string{"index"},
		),
		JobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobs_total",
				Help: "Total background jobs by type and final status.",
			},
			[]string{"type", "status"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.IndexBuildsTotal,
		m.IndexTerms,
		m.IndexDocuments,
		m.IndexObjects,
		m.JobsTotal,
	)

	return m
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus scrape HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSearch records one answered query. A nil receiver is a no-op so
// callers can run without metrics.
func (m *Metrics) ObserveSearch(indexName string, seconds float64, hits int) {
	if m == nil {
		return
	}
	resultType := "hit"
	if hits == 0 {
		resultType = "zero_result"
	}
	m.SearchQueriesTotal.WithLabelValues(indexName, resultType).Inc()
	m.SearchLatency.WithLabelValues(indexName).Observe(seconds)
	m.SearchResultsCount.WithLabelValues(indexName).Observe(float64(hits))
}

// ObserveBuild records the outcome of a build or import.
func (m *Metrics) ObserveBuild(source string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.IndexBuildsTotal.WithLabelValues(source, status).Inc()
}

// SetIndexSize publishes the size gauges of an index.
func (m *Metrics) SetIndexSize(indexName string, terms, documents, objects int) {
	if m == nil {
		return
	}
	m.IndexTerms.WithLabelValues(indexName).Set(float64(terms))
	m.IndexDocuments.WithLabelValues(indexName).Set(float64(documents))
	m.IndexObjects.WithLabelValues(indexName).Set(float64(objects))
}

// DeleteIndex drops the per-index series of a removed index.
func (m *Metrics) DeleteIndex(indexName string) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{"index": indexName}
	m.IndexTerms.Delete(labels)
	m.IndexDocuments.Delete(labels)
	m.IndexObjects.Delete(labels)
	m.SearchQueriesTotal.DeletePartialMatch(labels)
	m.SearchLatency.Delete(labels)
	m.SearchResultsCount.Delete(labels)
}

// ObserveJob records a job reaching a terminal status.
func (m *Metrics) ObserveJob(jobType, status string) {
	if m == nil {
		return
	}
	m.JobsTotal.WithLabelValues(jobType, status).Inc()
}
