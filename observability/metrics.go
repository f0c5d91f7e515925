package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Job metrics
	JobsSubmittedTotal *prometheus.CounterVec
	JobsFinishedTotal  *prometheus.CounterVec
	JobsActive         prometheus.Gauge
	JobDuration        *prometheus.HistogramVec
	JobsDeduplicated   prometheus.Counter

	// Instrument pipeline metrics
	InstrumentsTotal   *prometheus.CounterVec
	InstrumentDuration *prometheus.HistogramVec
	VerdictsTotal      *prometheus.CounterVec
	SignalScores       *prometheus.HistogramVec

	// Indicator metrics
	IndicatorExclusions *prometheus.CounterVec

	// Market data source metrics
	SourceRequestsTotal *prometheus.CounterVec
	SourceDuration      *prometheus.HistogramVec
	FallbackTotal       prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryTotal    *prometheus.CounterVec
	DBErrorsTotal   *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// defaultBuckets are the default histogram buckets for duration metrics (in seconds)
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// scoreBuckets are histogram buckets for signal scores (0 to 100, 50 = neutral)
var scoreBuckets = []float64{0, 10, 20, 25, 40, 50, 60, 75, 80, 90, 100}

// globalMetrics is the global metrics instance
var globalMetrics *Metrics

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	m := &Metrics{
		JobsSubmittedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signal_machine",
				Subsystem: "jobs",
				Name:      "submitted_total",
				Help:      "Total number of analysis jobs submitted",
			},
			[]string{"strategy"},
		),
		JobsFinishedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signal_machine",
				Subsystem: "jobs",
				Name:      "finished_total",
				Help:      "Total number of analysis jobs by terminal status",
			},
			[]string{"status"},
		),
		JobsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "signal_machine",
				Subsystem: "jobs",
				Name:      "active",
				Help:      "Number of jobs currently processing",
			},
		),
		JobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "signal_machine",
				Subsystem: "jobs",
				Name:      "duration_seconds",
				Help:      "Wall-clock duration of analysis jobs in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"status"},
		),
		JobsDeduplicated: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "signal_machine",
				Subsystem: "jobs",
				Name:      "deduplicated_total",
				Help:      "Submissions that matched an existing non-terminal job",
			},
		),

		InstrumentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signal_machine",
				Subsystem: "pipeline",
				Name:      "instruments_total",
				Help:      "Per-instrument pipeline outcomes",
			},
			[]string{"status"},
		),
		InstrumentDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "signal_machine",
				Subsystem: "pipeline",
				Name:      "instrument_duration_seconds",
				Help:      "Duration of fetch+compute per instrument in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"status"},
		),
		VerdictsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signal_machine",
				Subsystem: "pipeline",
				Name:      "verdicts_total",
				Help:      "Total number of verdicts produced by verdict type",
			},
			[]string{"verdict"},
		),
		SignalScores: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "signal_machine",
				Subsystem: "pipeline",
				Name:      "score",
				Help:      "Distribution of aggregated signal scores",
				Buckets:   scoreBuckets,
			},
			[]string{"strategy"},
		),

		IndicatorExclusions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signal_machine",
				Subsystem: "indicators",
				Name:      "exclusions_total",
				Help:      "Indicators excluded from aggregation (NaN or calculation error)",
			},
			[]string{"indicator"},
		),

		SourceRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signal_machine",
				Subsystem: "marketdata",
				Name:      "requests_total",
				Help:      "Market data fetches by source and outcome",
			},
			[]string{"source", "status"},
		),
		SourceDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "signal_machine",
				Subsystem: "marketdata",
				Name:      "duration_seconds",
				Help:      "Duration of market data fetches in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"source"},
		),
		FallbackTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "signal_machine",
				Subsystem: "marketdata",
				Name:      "fallback_total",
				Help:      "Analyses served from the fallback data source",
			},
		),

		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "signal_machine",
				Subsystem: "database",
				Name:      "query_duration_seconds",
				Help:      "Duration of database queries in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"operation", "table"},
		),
		DBQueryTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signal_machine",
				Subsystem: "database",
				Name:      "queries_total",
				Help:      "Total number of database queries",
			},
			[]string{"operation", "table"},
		),
		DBErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signal_machine",
				Subsystem: "database",
				Name:      "errors_total",
				Help:      "Total number of database errors",
			},
			[]string{"operation", "table"},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signal_machine",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "signal_machine",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"method", "path"},
		),

		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "signal_machine",
				Subsystem: "circuit_breaker",
				Name:      "state",
				Help:      "Current state of circuit breakers (0=closed, 1=half-open, 2=open)",
			},
			[]string{"service"},
		),
		CircuitBreakerTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "signal_machine",
				Subsystem: "circuit_breaker",
				Name:      "trips_total",
				Help:      "Total number of circuit breaker trips",
			},
			[]string{"service"},
		),
	}

	return m
}

// InitMetrics initializes the global metrics instance
func InitMetrics() *Metrics {
	globalMetrics = NewMetrics(nil)
	return globalMetrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	if globalMetrics == nil {
		return InitMetrics()
	}
	return globalMetrics
}

// SetMetrics overrides the global metrics instance (useful for testing)
func SetMetrics(m *Metrics) {
	globalMetrics = m
}

// RecordJobSubmitted records a job submission
func (m *Metrics) RecordJobSubmitted(strategy string) {
	m.JobsSubmittedTotal.WithLabelValues(strategy).Inc()
}

// RecordJobFinished records a job reaching a terminal status
func (m *Metrics) RecordJobFinished(status string, duration time.Duration) {
	m.JobsFinishedTotal.WithLabelValues(status).Inc()
	m.JobDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordJobDeduplicated records a submission answered with an existing job id
func (m *Metrics) RecordJobDeduplicated() {
	m.JobsDeduplicated.Inc()
}

// RecordInstrument records a per-instrument pipeline outcome
func (m *Metrics) RecordInstrument(status string, duration time.Duration) {
	m.InstrumentsTotal.WithLabelValues(status).Inc()
	m.InstrumentDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordVerdict records a produced verdict and its score
func (m *Metrics) RecordVerdict(verdict, strategy string, score float64) {
	m.VerdictsTotal.WithLabelValues(verdict).Inc()
	m.SignalScores.WithLabelValues(strategy).Observe(score)
}

// RecordIndicatorExclusion records an indicator skipped during aggregation
func (m *Metrics) RecordIndicatorExclusion(indicator string) {
	m.IndicatorExclusions.WithLabelValues(indicator).Inc()
}

// RecordSourceRequest records a market data fetch
func (m *Metrics) RecordSourceRequest(source, status string, duration time.Duration) {
	m.SourceRequestsTotal.WithLabelValues(source, status).Inc()
	m.SourceDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordFallback records an analysis served from fallback data
func (m *Metrics) RecordFallback() {
	m.FallbackTotal.Inc()
}

// RecordDBQuery records a database query
func (m *Metrics) RecordDBQuery(operation, table string, duration time.Duration) {
	m.DBQueryTotal.WithLabelValues(operation, table).Inc()
	m.DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordDBError records a database error
func (m *Metrics) RecordDBError(operation, table string) {
	m.DBErrorsTotal.WithLabelValues(operation, table).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// SetCircuitBreakerState sets the current state of a circuit breaker
func (m *Metrics) SetCircuitBreakerState(service string, state int) {
	m.CircuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(service string) {
	m.CircuitBreakerTrips.WithLabelValues(service).Inc()
}

// Timer is a helper for timing operations
type Timer struct {
	start   time.Time
	metrics *Metrics
}

// NewTimer creates a new timer
func (m *Metrics) NewTimer() *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: m,
	}
}

// ObserveDB records the database query duration
func (t *Timer) ObserveDB(operation, table string) {
	t.metrics.RecordDBQuery(operation, table, time.Since(t.start))
}

// ObserveInstrument records the per-instrument pipeline duration
func (t *Timer) ObserveInstrument(status string) {
	t.metrics.RecordInstrument(status, time.Since(t.start))
}

// ObserveSource records the market data fetch duration
func (t *Timer) ObserveSource(source, status string) {
	t.metrics.RecordSourceRequest(source, status, time.Since(t.start))
}

// Duration returns the elapsed time
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
