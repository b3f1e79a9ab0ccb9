// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Run metrics
	RunsTotal            *prometheus.CounterVec
	RunDuration          prometheus.Histogram
	BarsProcessed        prometheus.Counter
	CircuitBreakersFired prometheus.Counter

	// Trade metrics
	TradesClosed    *prometheus.CounterVec
	EntriesRejected prometheus.Counter

	// Sweep metrics
	SweepRunsTotal *prometheus.CounterVec
	SweepDuration  prometheus.Histogram
	SweepGridSize  prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
	ReportsGenerated  prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "backtest_engine"
	}

	return &Metrics{
		// Run metrics
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "total",
			Help:      "Total number of backtest runs by status",
		}, []string{"status"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Backtest run wall-clock duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),
		BarsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "bars_processed_total",
			Help:      "Total number of bars processed across all runs",
		}),
		CircuitBreakersFired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "circuit_breakers_fired_total",
			Help:      "Total number of runs where the drawdown circuit breaker fired",
		}),

		// Trade metrics
		TradesClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "closed_total",
			Help:      "Total number of closed trades by exit reason",
		}, []string{"exit_reason"}),
		EntriesRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "entries_rejected_total",
			Help:      "Total number of entries rejected by sizing or limits",
		}),

		// Sweep metrics
		SweepRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "runs_total",
			Help:      "Total number of sweep grid points executed by status",
		}, []string{"status"}),
		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "duration_seconds",
			Help:      "Full sweep wall-clock duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		SweepGridSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "grid_size",
			Help:      "Number of grid points in the most recent sweep",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of the last successful backtest run",
		}),
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRun records a finished backtest run.
func RecordRun(status string, durationSeconds float64, bars int) {
	DefaultMetrics.RunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.RunDuration.Observe(durationSeconds)
	DefaultMetrics.BarsProcessed.Add(float64(bars))
	if status == "ok" {
		DefaultMetrics.LastSuccessfulRun.Set(float64(time.Now().Unix()))
	}
}

// RecordEntryRejected increments the rejected-entry counter.
func RecordEntryRejected() {
	DefaultMetrics.EntriesRejected.Inc()
}

// RecordCircuitBreaker increments the circuit breaker counter.
func RecordCircuitBreaker() {
	DefaultMetrics.CircuitBreakersFired.Inc()
}

// RecordTradeClosed increments the closed trade counter for an exit reason.
func RecordTradeClosed(exitReason string) {
	DefaultMetrics.TradesClosed.WithLabelValues(exitReason).Inc()
}

// RecordSweep records a finished sweep.
func RecordSweep(gridSize, failed int, durationSeconds float64) {
	DefaultMetrics.SweepGridSize.Set(float64(gridSize))
	DefaultMetrics.SweepDuration.Observe(durationSeconds)
	DefaultMetrics.SweepRunsTotal.WithLabelValues("ok").Add(float64(gridSize - failed))
	DefaultMetrics.SweepRunsTotal.WithLabelValues("error").Add(float64(failed))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
