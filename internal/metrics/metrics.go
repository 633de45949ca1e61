// EventBnb - Event-Aware Rental Pricing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventbnb

// Package metrics declares the Prometheus instruments for the pipeline, the
// description generator and the lookup API. All collectors register with the
// default registry through promauto; `eventbnb serve` exposes them on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline Metrics
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventbnb_pipeline_runs_total",
			Help: "Total number of pipeline runs by outcome",
		},
		[]string{"status"}, // "success", "failed"
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eventbnb_pipeline_duration_seconds",
			Help:    "Duration of complete pipeline runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms .. ~80s
		},
	)

	PairsEmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventbnb_pairs_emitted_total",
			Help: "Total number of scored listing-event pairs emitted",
		},
	)

	PairsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventbnb_pairs_skipped_total",
			Help: "Total number of rows or pairs skipped by error kind",
		},
		[]string{"kind"}, // "ingestion", "scoring"
	)

	RowsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventbnb_rows_ingested_total",
			Help: "Total number of ingested input rows by source and result",
		},
		[]string{"source", "result"}, // source: "listings", "events"; result: "accepted", "rejected"
	)

	IndexQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventbnb_index_query_duration_seconds",
			Help:    "Duration of geospatial index radius queries in seconds",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		},
		[]string{"kind"}, // "linear", "grid"
	)

	// Description Generator Metrics
	DescribeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventbnb_describe_requests_total",
			Help: "Total number of description generation calls by result",
		},
		[]string{"result"}, // "success", "error", "rate_limited", "rejected"
	)

	DescribeCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventbnb_describe_cache_total",
			Help: "Description cache lookups by result",
		},
		[]string{"result"}, // "hit", "miss"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eventbnb_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventbnb_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventbnb_api_requests_total",
			Help: "Total number of lookup API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventbnb_api_request_duration_seconds",
			Help:    "Duration of lookup API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordPipelineRun records the outcome and duration of one pipeline run.
func RecordPipelineRun(duration time.Duration, pairs int, err error) {
	PipelineDuration.Observe(duration.Seconds())
	if err != nil {
		PipelineRuns.WithLabelValues("failed").Inc()
		return
	}
	PipelineRuns.WithLabelValues("success").Inc()
	PairsEmitted.Add(float64(pairs))
}

// RecordSkipped adds n skipped rows or pairs of the given kind.
func RecordSkipped(kind string, n int) {
	if n <= 0 {
		return
	}
	PairsSkipped.WithLabelValues(kind).Add(float64(n))
}

// RecordIngestion records accepted and rejected row counts for a source.
func RecordIngestion(source string, accepted, rejected int) {
	RowsIngested.WithLabelValues(source, "accepted").Add(float64(accepted))
	RowsIngested.WithLabelValues(source, "rejected").Add(float64(rejected))
}

// RecordAPIRequest records a lookup API request.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
