package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles Prometheus collectors for one scrape run.
type Metrics struct {
	Registry        *prometheus.Registry
	FetchesTotal    *prometheus.CounterVec
	FetchDuration   prometheus.Histogram
	FetchFailures   *prometheus.CounterVec
	RenderSessions  prometheus.Counter
	RenderFailures  prometheus.Counter
	ProductsTotal   prometheus.Counter
	DegradedFields  *prometheus.CounterVec
	BatchesTotal    prometheus.Counter
	SheetsWritten   prometheus.Counter
}

// NewMetrics constructs and registers all collectors on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	fetches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rozvidka_fetches_total",
			Help: "Total HTTP fetches issued, by endpoint kind.",
		},
		[]string{"kind"},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rozvidka_fetch_duration_seconds",
			Help:    "HTTP fetch latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	fetchFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rozvidka_fetch_failures_total",
			Help: "Total HTTP fetches that degraded to empty results, by endpoint kind.",
		},
		[]string{"kind"},
	)
	renderSessions := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rozvidka_render_sessions_total",
			Help: "Total rendered-browser grouping sessions started.",
		},
	)
	renderFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rozvidka_render_failures_total",
			Help: "Total rendered-browser sessions that degraded to a zero grouping result.",
		},
	)
	products := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rozvidka_products_enriched_total",
			Help: "Total products run through the enrichment orchestrator.",
		},
	)
	degraded := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rozvidka_degraded_fields_total",
			Help: "Total enrichment fields that fell back to their default value.",
		},
		[]string{"field"},
	)
	batches := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rozvidka_batches_total",
			Help: "Total detail batches processed.",
		},
	)
	sheets := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rozvidka_sheets_written_total",
			Help: "Total category sheets written to workbooks.",
		},
	)

	registry.MustRegister(fetches, fetchDuration, fetchFailures, renderSessions,
		renderFailures, products, degraded, batches, sheets)

	return &Metrics{
		Registry:       registry,
		FetchesTotal:   fetches,
		FetchDuration:  fetchDuration,
		FetchFailures:  fetchFailures,
		RenderSessions: renderSessions,
		RenderFailures: renderFailures,
		ProductsTotal:  products,
		DegradedFields: degraded,
		BatchesTotal:   batches,
		SheetsWritten:  sheets,
	}
}

// ObserveFetch records one fetch outcome.
func (m *Metrics) ObserveFetch(kind string, d time.Duration, failed bool) {
	m.FetchesTotal.WithLabelValues(kind).Inc()
	m.FetchDuration.Observe(d.Seconds())
	if failed {
		m.FetchFailures.WithLabelValues(kind).Inc()
	}
}

// Serve exposes the registry on its own listener. Errors are logged, not
// surfaced: metrics must never take down a scrape run.
func (m *Metrics) Serve(port int, path string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))

	addr := fmt.Sprintf(":%d", port)
	logger.Info("metrics listener starting", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("metrics listener error", "error", err)
		}
	}()
}
