package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	queriesTotal *prometheus.CounterVec
	querySeconds prometheus.Histogram

	fnInvocations *prometheus.CounterVec
	fnTimeouts    prometheus.Counter
	cellsNulled   prometheus.Counter
)

func init() {
	queriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridbase_queries_total",
			Help: "Total number of queries executed",
		},
		[]string{"status"},
	)
	querySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gridbase_query_duration_seconds",
			Help:    "Query execution duration",
			Buckets: prometheus.DefBuckets,
		},
	)
	fnInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridbase_fn_invocations_total",
			Help: "Total number of sandboxed function invocations",
		},
		[]string{"status"},
	)
	fnTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gridbase_fn_timeouts_total",
			Help: "Function invocations that exceeded the execution budget",
		},
	)
	cellsNulled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gridbase_cells_nulled_total",
			Help: "Projection cells nulled because a function invocation failed",
		},
	)
}

// RecordQuery records one query execution with its outcome.
func RecordQuery(status string, duration time.Duration) {
	if status == "" {
		status = "ok"
	}
	queriesTotal.WithLabelValues(status).Inc()
	querySeconds.Observe(duration.Seconds())
}

// RecordInvocation records one function invocation outcome.
func RecordInvocation(status string) {
	if status == "" {
		status = "ok"
	}
	fnInvocations.WithLabelValues(status).Inc()
}

// IncTimeout counts a budget overrun.
func IncTimeout() {
	fnTimeouts.Inc()
}

// IncCellNulled counts a projection cell degraded to null.
func IncCellNulled() {
	cellsNulled.Inc()
}

// Handler returns the Prometheus HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
