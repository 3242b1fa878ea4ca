package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Answer metrics
	AnswerRequests       prometheus.Counter
	AnswerRequestLatency prometheus.Histogram
	AnswerErrors         *prometheus.CounterVec
	ToolRuns             *prometheus.CounterVec

	// Feed metrics
	FeedGenerated prometheus.Counter
	FeedSkipped   prometheus.Counter
	FeedErrors    prometheus.Counter
	FeedExpired   prometheus.Counter
	EnumFallbacks *prometheus.CounterVec
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	metrics := &Metrics{
		// Answer requests counter
		AnswerRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "daybrief_answer_requests_total",
			Help: "Total number of answer requests processed",
		}),

		// Answer request latency histogram
		AnswerRequestLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "daybrief_answer_request_duration_seconds",
			Help:    "Answer request latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}, // up to 2 minutes for LLM responses
		}),

		// Answer errors by type
		AnswerErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "daybrief_answer_errors_total",
			Help: "Total number of answer errors by type",
		}, []string{"error_type"}),

		// Tool runs by tool name and outcome
		ToolRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "daybrief_tool_runs_total",
			Help: "Total number of tool executions by tool and outcome",
		}, []string{"tool", "outcome"}), // outcome: "success" or "error"

		// Feed generation counters
		FeedGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "daybrief_feed_items_generated_total",
			Help: "Total number of feed items generated",
		}),
		FeedSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "daybrief_feed_items_skipped_total",
			Help: "Total number of feed items skipped as already generated",
		}),
		FeedErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "daybrief_feed_generation_errors_total",
			Help: "Total number of per-item feed generation errors",
		}),
		FeedExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "daybrief_feed_items_expired_total",
			Help: "Total number of feed items marked expired by the sweep",
		}),

		// Enum fallbacks by kind (type or priority)
		EnumFallbacks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "daybrief_enum_fallbacks_total",
			Help: "Total number of generated enum values replaced by fallbacks",
		}, []string{"kind"}),
	}

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}

// RecordAnswerRequest records an answer request
func (m *Metrics) RecordAnswerRequest() {
	m.AnswerRequests.Inc()
}

// RecordAnswerLatency records answer request latency
func (m *Metrics) RecordAnswerLatency(seconds float64) {
	m.AnswerRequestLatency.Observe(seconds)
}

// RecordAnswerError records an answer error
func (m *Metrics) RecordAnswerError(errorType string) {
	m.AnswerErrors.WithLabelValues(errorType).Inc()
}

// RecordToolRun records a tool execution outcome
func (m *Metrics) RecordToolRun(tool string, failed bool) {
	outcome := "success"
	if failed {
		outcome = "error"
	}
	m.ToolRuns.WithLabelValues(tool, outcome).Inc()
}

// RecordFeedGeneration records the result counts of a generation run
func (m *Metrics) RecordFeedGeneration(generated, skipped, errors int) {
	m.FeedGenerated.Add(float64(generated))
	m.FeedSkipped.Add(float64(skipped))
	m.FeedErrors.Add(float64(errors))
}

// RecordFeedExpired records items expired by the sweep
func (m *Metrics) RecordFeedExpired(count int) {
	m.FeedExpired.Add(float64(count))
}

// RecordEnumFallback records a generated enum value replaced by a fallback
func (m *Metrics) RecordEnumFallback(kind string) {
	m.EnumFallbacks.WithLabelValues(kind).Inc()
}
