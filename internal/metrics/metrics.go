// Package metrics exposes Prometheus collectors for the ingest and flatten jobs.
package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Route outcomes recorded by ObserveRoute.
const (
	RoutePublished     = "published"
	RouteFetchFailed   = "fetch_failed"
	RoutePublishFailed = "publish_failed"
	RouteArchiveFailed = "archive_failed"
)

// Line outcomes recorded by ObserveLine.
const (
	LineOK             = "ok"
	LineParseError     = "parse_error"
	LineExpansionError = "expansion_error"
)

var (
	fetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transit_fetch_attempts_total",
			Help: "Total number of HTTP fetch attempts, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	routesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transit_routes_total",
			Help: "Total number of route iterations, labeled by final status.",
		},
		[]string{"status"},
	)

	linesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transit_flatten_lines_total",
			Help: "Total number of input lines processed, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	rowsEmittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transit_flatten_rows_emitted_total",
			Help: "Total number of flat rows produced by the transform.",
		},
	)

	appendDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "transit_warehouse_append_duration_seconds",
			Help:    "Histogram of warehouse append latencies, labeled by sink.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"sink"},
	)
)

// ObserveFetchAttempt counts one HTTP attempt.
func ObserveFetchAttempt(outcome string) {
	fetchAttemptsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRoute counts one finished route iteration.
func ObserveRoute(status string) {
	routesTotal.WithLabelValues(status).Inc()
}

// ObserveLine counts one processed input line.
func ObserveLine(outcome string) {
	linesTotal.WithLabelValues(outcome).Inc()
}

// AddRowsEmitted increments the emitted row counter.
func AddRowsEmitted(n int) {
	if n > 0 {
		rowsEmittedTotal.Add(float64(n))
	}
}

// ObserveAppend records the duration of one warehouse append.
func ObserveAppend(sink string, duration time.Duration) {
	appendDurationSeconds.WithLabelValues(sink).Observe(duration.Seconds())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// NewRouter serves /metrics and a liveness probe on /healthz.
func NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", Handler())
	return r
}
