package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_server_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_server_requests_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status_code"},
	)

	// Remote catalog call metrics
	catalogCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_call_duration_seconds",
			Help:    "Remote catalog API call duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		},
		[]string{"operation", "status_code"},
	)

	catalogCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_calls_total",
			Help: "Total number of remote catalog API calls",
		},
		[]string{"operation", "outcome"}, // ok/not_found/remote_error/transport_failure
	)

	// Auth metrics
	authOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_operations_total",
			Help: "Total number of account operations",
		},
		[]string{"operation", "status"}, // register/login/logout/check_username, success/failure
	)

	// Session metrics
	sessionOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_operations_total",
			Help: "Total number of session store operations",
		},
		[]string{"operation", "status"},
	)

	// Form validation metrics
	validationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "form_validation_failures_total",
			Help: "Total number of product form validation failures",
		},
		[]string{"field"},
	)

	// Rate limiting metrics
	rateLimitDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_dropped_total",
			Help: "Total number of requests dropped due to rate limiting",
		},
		[]string{"key_type"}, // user or ip
	)

	// Idempotency metrics
	idempotencyHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idempotency_hits_total",
			Help: "Total number of idempotency hits",
		},
		[]string{"type"}, // hit or miss
	)
)

// Init initializes the metrics
func Init() error {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		catalogCallDuration,
		catalogCallsTotal,
		authOperationsTotal,
		sessionOperationsTotal,
		validationFailuresTotal,
		rateLimitDroppedTotal,
		idempotencyHitsTotal,
	)

	return nil
}

// HTTPMetricsMiddleware records HTTP metrics
func HTTPMetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		method := c.Method()
		route := c.Route().Path
		if route == "" {
			route = c.Path()
		}
		statusCode := strconv.Itoa(c.Response().StatusCode())

		httpRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
		httpRequestDuration.WithLabelValues(method, route, statusCode).Observe(duration)

		return err
	}
}

// RecordCatalogCall records metrics for remote catalog API calls
func RecordCatalogCall(operation string, statusCode int, outcome string, duration time.Duration) {
	statusStr := strconv.Itoa(statusCode)
	catalogCallDuration.WithLabelValues(operation, statusStr).Observe(duration.Seconds())
	catalogCallsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordAuthOperation records account operations
func RecordAuthOperation(operation, status string) {
	authOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordSessionOperation records session store operations
func RecordSessionOperation(operation, status string) {
	sessionOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordValidationFailure records a product form validation failure
func RecordValidationFailure(field string) {
	validationFailuresTotal.WithLabelValues(field).Inc()
}

// RecordRateLimitDrop records rate limit drops
func RecordRateLimitDrop(keyType string) {
	rateLimitDroppedTotal.WithLabelValues(keyType).Inc()
}

// RecordIdempotencyHit records idempotency cache hits/misses
func RecordIdempotencyHit(hitType string) {
	idempotencyHitsTotal.WithLabelValues(hitType).Inc()
}

// PrometheusHandler returns the Prometheus metrics handler
func PrometheusHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
