package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec
	httpErrorsTotal    *prometheus.CounterVec

	extractionSeconds  *prometheus.HistogramVec
	extractionFailures *prometheus.CounterVec

	evaluationsTotal   *prometheus.CounterVec
	evaluationSeconds  prometheus.Histogram
	eventPublishErrors prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used by the evaluator.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gema_evaluator",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gema_evaluator",
			Name:      "http_latency_seconds",
			Help:      "Latency distribution for HTTP requests.",
			Buckets:   []float64{0.01, 0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gema_evaluator",
			Name:      "http_errors_total",
			Help:      "Total number of error responses.",
		}, []string{"method", "route", "status"})

		extractionSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gema_evaluator",
			Name:      "extraction_duration_seconds",
			Help:      "Time spent extracting document text.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"format"})

		extractionFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gema_evaluator",
			Name:      "extraction_failures_total",
			Help:      "Documents that could not be read.",
		}, []string{"format"})

		evaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gema_evaluator",
			Name:      "evaluations_total",
			Help:      "Evaluation requests by outcome.",
		}, []string{"outcome"})

		evaluationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gema_evaluator",
			Name:      "evaluation_duration_seconds",
			Help:      "End-to-end evaluation latency.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
		})

		eventPublishErrors = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gema_evaluator",
			Name:      "event_publish_errors_total",
			Help:      "Evaluation events that could not be published.",
		})

		prometheus.MustRegister(
			httpRequestsTotal, httpLatencySeconds, httpErrorsTotal,
			extractionSeconds, extractionFailures,
			evaluationsTotal, evaluationSeconds, eventPublishErrors,
		)
	})
}

// HTTPRequests exposes the counter for served requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// ExtractionDuration exposes the per-format extraction histogram.
func ExtractionDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return extractionSeconds
}

// ExtractionFailures exposes the per-format extraction failure counter.
func ExtractionFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return extractionFailures
}

// Evaluations exposes the evaluation outcome counter.
func Evaluations() *prometheus.CounterVec {
	RegisterMetrics()
	return evaluationsTotal
}

// EvaluationDuration exposes the end-to-end latency histogram.
func EvaluationDuration() prometheus.Histogram {
	RegisterMetrics()
	return evaluationSeconds
}

// EventPublishErrors exposes the failed event publish counter.
func EventPublishErrors() prometheus.Counter {
	RegisterMetrics()
	return eventPublishErrors
}
