// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

// Package metrics exposes Prometheus instrumentation for the API server.
//
// It tracks generic HTTP throughput/latency plus the authorization pipeline's
// decision counters, and serves the standard /metrics endpoint.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// # Collectors

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scholaris_http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scholaris_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scholaris_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)

	authzDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scholaris_authz_decisions_total",
			Help: "Authorization pipeline decisions by stage and outcome.",
		},
		[]string{"stage", "outcome"},
	)
)

// Init registers all collectors with the default registry. Call once at startup.
func Init() {
	prometheus.MustRegister(httpInFlight, httpRequestsTotal, httpRequestDuration, authzDecisions)
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// # Recording

// Decision outcomes for [RecordDecision].
const (
	OutcomeAllowed = "allowed"
	OutcomeDenied  = "denied"
)

// Pipeline stages for [RecordDecision].
const (
	StageAuthentication = "authn"
	StageTenant         = "tenant"
	StageRole           = "role"
	StagePlanLimit      = "plan_limit"
	StageFeature        = "feature"
)

// RecordDecision counts one authorization decision.
func RecordDecision(stage, outcome string) {
	authzDecisions.WithLabelValues(stage, outcome).Inc()
}

// Instrument wraps an HTTP handler with throughput and latency collectors.
//
// Labels use method and status only; raw paths would explode cardinality
// with per-resource IDs.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(r.Method, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter captures the response code for labeling.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
