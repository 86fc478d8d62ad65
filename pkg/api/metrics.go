package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds all Prometheus metrics for the API
type Metrics struct {
	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec

	// Tree operation metrics
	treeOperationsTotal   *prometheus.CounterVec
	treeOperationDuration *prometheus.HistogramVec
	treeSizeTotal         prometheus.Gauge
	treeHeight            prometheus.Gauge

	// API key authentication metrics
	authRequestsTotal *prometheus.CounterVec

	// Commit/diff metrics
	commitOperationsTotal *prometheus.CounterVec
	diffOperationsTotal   *prometheus.CounterVec

	// Health check metrics
	healthChecksTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	m := &Metrics{
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freyjatree_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "freyjatree_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpRequestsInFlight: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "freyjatree_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		treeOperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freyjatree_tree_operations_total",
				Help: "Total number of tree operations (get, set, delete, range)",
			},
			[]string{"operation", "status"},
		),

		treeOperationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "freyjatree_tree_operation_duration_seconds",
				Help:    "Tree operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		treeSizeTotal: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "freyjatree_tree_size_total",
				Help: "Total number of pairs in the tree",
			},
		),

		treeHeight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "freyjatree_tree_height",
				Help: "Current height of the tree",
			},
		),

		authRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freyjatree_auth_requests_total",
				Help: "Total number of authentication requests",
			},
			[]string{"status"},
		),

		commitOperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freyjatree_commit_operations_total",
				Help: "Total number of commit operations",
			},
			[]string{"status"},
		),

		diffOperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freyjatree_diff_operations_total",
				Help: "Total number of diff operations",
			},
			[]string{"status"},
		),

		healthChecksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freyjatree_health_checks_total",
				Help: "Total number of health checks",
			},
			[]string{"status"},
		),
	}

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	statusCodeStr := strconv.Itoa(statusCode)

	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCodeStr).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordTreeOperation records a tree operation (get/set/delete/range/walk).
func (m *Metrics) RecordTreeOperation(operation string, success bool, duration time.Duration) {
	status := statusSuccess
	if !success {
		status = statusError
	}

	m.treeOperationsTotal.WithLabelValues(operation, status).Inc()
	m.treeOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateTreeStats updates the tree size/height gauges.
func (m *Metrics) UpdateTreeStats(size, height int) {
	m.treeSizeTotal.Set(float64(size))
	m.treeHeight.Set(float64(height))
}

// RecordAuthRequest records an authentication request
func (m *Metrics) RecordAuthRequest(success bool) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.authRequestsTotal.WithLabelValues(status).Inc()
}

// RecordCommit records a Commit call.
func (m *Metrics) RecordCommit(success bool) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.commitOperationsTotal.WithLabelValues(status).Inc()
}

// RecordDiff records a DiffAgainst call.
func (m *Metrics) RecordDiff(success bool) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.diffOperationsTotal.WithLabelValues(status).Inc()
}

// RecordHealthCheck records a health check
func (m *Metrics) RecordHealthCheck(success bool) {
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.healthChecksTotal.WithLabelValues(status).Inc()
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		gauge := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(rw, r)

		duration := time.Since(start)
		m.RecordHTTPRequest(method, endpoint, rw.statusCode, duration)
	}
}

// InstrumentAuthMiddleware instruments the authentication middleware
func (m *Metrics) InstrumentAuthMiddleware(next func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("X-API-Key")
			hasAPIKey := apiKey != ""

			next(h).ServeHTTP(w, r)

			if rw, ok := w.(*responseWriter); ok {
				success := rw.statusCode != http.StatusUnauthorized
				if hasAPIKey {
					m.RecordAuthRequest(success)
				}
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
