// ================================
// internal/metrics/metrics.go - Self-monitoring for ga4-insights
// ================================

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ga4_insights_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ga4_insights_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Analytics backend
	GA4RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ga4_insights_backend_requests_total",
			Help: "Total number of report requests sent to the analytics backend, per attempt",
		},
		[]string{"status"}, // success, retry, error
	)

	GA4RequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ga4_insights_backend_request_duration_seconds",
			Help:    "Analytics backend report duration in seconds, retries included",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	ReportRows = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ga4_insights_report_rows",
			Help:    "Number of rows returned per report",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	// Language model
	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ga4_insights_llm_requests_total",
			Help: "Total number of language model calls",
		},
		[]string{"provider", "operation", "status"}, // operation: extract, summarize
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ga4_insights_llm_request_duration_seconds",
			Help:    "Language model call duration in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "operation"},
	)

	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ga4_insights_llm_tokens_total",
			Help: "Tokens consumed by language model calls",
		},
		[]string{"provider", "direction"}, // input, output
	)

	// Pipeline
	PipelineRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ga4_insights_pipeline_requests_total",
			Help: "Total number of pipeline runs by input mode and outcome",
		},
		[]string{"mode", "outcome"}, // mode: structured, conversational; outcome: ok or error category
	)

	InsightsEmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ga4_insights_insights_emitted_total",
			Help: "Number of insight lines produced, by rule metric",
		},
		[]string{"metric"},
	)

	ConfigInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ga4_insights_build_info",
			Help: "Build and runtime configuration information",
		},
		[]string{"version", "llm_provider", "llm_model"},
	)
)

// RecordBackendAttempt counts one backend attempt.
func RecordBackendAttempt(status string) {
	GA4RequestsTotal.WithLabelValues(status).Inc()
}

// RecordBackendReport records a completed backend call.
func RecordBackendReport(d time.Duration, rows int) {
	GA4RequestDuration.Observe(d.Seconds())
	ReportRows.Observe(float64(rows))
}

// RecordLLMCall records one model round trip.
func RecordLLMCall(provider, operation string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	LLMRequestsTotal.WithLabelValues(provider, operation, status).Inc()
	LLMRequestDuration.WithLabelValues(provider, operation).Observe(d.Seconds())
}

// RecordLLMTokens adds token usage reported by the provider.
func RecordLLMTokens(provider string, input, output int64) {
	if input > 0 {
		LLMTokensTotal.WithLabelValues(provider, "input").Add(float64(input))
	}
	if output > 0 {
		LLMTokensTotal.WithLabelValues(provider, "output").Add(float64(output))
	}
}

// RecordPipeline counts one pipeline run.
func RecordPipeline(mode, outcome string) {
	PipelineRequestsTotal.WithLabelValues(mode, outcome).Inc()
}
