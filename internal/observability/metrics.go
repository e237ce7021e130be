package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// unmatchedRoute labels requests no mux pattern claimed. Raw paths would let
// any client grow the label set.
const unmatchedRoute = "unmatched"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowbit_http_requests_total",
			Help: "API requests by route and response code.",
		},
		[]string{"route", "code"},
	)
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flowbit_http_request_duration_seconds",
			Help:    "API request latency by route.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"route"},
	)
	httpRequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "flowbit_http_requests_in_flight",
		Help: "API requests currently being served.",
	})

	promptResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowbit_prompt_resolutions_total",
			Help: "Prompts resolved to a query template.",
		},
		[]string{"intent", "fallback"},
	)
	queryExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowbit_query_executions_total",
			Help: "Template query executions by outcome.",
		},
		[]string{"intent", "outcome"},
	)
	queryDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flowbit_query_duration_seconds",
			Help:    "Template query execution latency in seconds.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"intent"},
	)
	queryRowsReturned = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flowbit_query_rows_returned",
			Help:    "Rows returned per template query.",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000},
		},
		[]string{"intent"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		httpRequestsInFlight,
		promptResolutionsTotal,
		queryExecutionsTotal,
		queryDurationSeconds,
		queryRowsReturned,
	)
}

// routeLabel is the mux pattern that served r, without the method prefix.
func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return unmatchedRoute
	}
	if _, path, ok := strings.Cut(r.Pattern, " "); ok {
		return path
	}
	return r.Pattern
}

func observeHTTPRequest(route string, status int, elapsed time.Duration) {
	httpRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	httpRequestDurationSeconds.WithLabelValues(route).Observe(elapsed.Seconds())
}

func ObservePromptResolution(intent string, fallback bool) {
	promptResolutionsTotal.WithLabelValues(intent, strconv.FormatBool(fallback)).Inc()
}

// ObserveQueryExecution records one execution. outcome is "ok" or an error kind.
func ObserveQueryExecution(intent, outcome string, rows int, elapsed time.Duration) {
	queryExecutionsTotal.WithLabelValues(intent, outcome).Inc()
	queryDurationSeconds.WithLabelValues(intent).Observe(elapsed.Seconds())
	if outcome == "ok" {
		queryRowsReturned.WithLabelValues(intent).Observe(float64(rows))
	}
}
