// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics holds the Prometheus collectors of the A2A engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts handler operations by method and outcome
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "a2a_requests_total",
			Help: "Total number of A2A requests handled",
		},
		[]string{"method", "outcome"},
	)

	// RequestDuration tracks handler latency
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "a2a_request_duration_seconds",
			Help:    "A2A request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// ActiveExecutions tracks agent executions in flight
	ActiveExecutions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "a2a_active_executions",
			Help: "Number of agent executions in flight",
		},
	)

	// TaskTransitions counts applied task state changes
	TaskTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "a2a_task_transitions_total",
			Help: "Total number of task state transitions",
		},
		[]string{"state"},
	)

	// RejectedEvents counts executor events dropped because the task refused them
	RejectedEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "a2a_rejected_events_total",
			Help: "Total number of execution events rejected by the task state machine",
		},
		[]string{"kind"},
	)

	// PushDeliveries counts push notification attempts by outcome
	PushDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "a2a_push_deliveries_total",
			Help: "Total number of push notification deliveries",
		},
		[]string{"outcome"},
	)

	// HTTPRequestsTotal counts HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "a2a_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP latency
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "a2a_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush implements http.Flusher for SSE support
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware creates an HTTP middleware that records metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		path := normalizePath(r.URL.Path)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath normalizes URL paths to avoid high cardinality
func normalizePath(path string) string {
	switch path {
	case "/", "/.well-known/agent.json", "/.well-known/jwks.json", "/metrics", "/healthz":
		return path
	default:
		return "other"
	}
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest records the outcome and latency of a handler operation
func ObserveRequest(method string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	RequestsTotal.WithLabelValues(method, outcome).Inc()
	RequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}
