// Package metrics provides Prometheus metrics for the workspace engine and its backend.
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
	// Workspace operation metrics
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imgreader_operations_total",
			Help: "Total number of workspace operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "imgreader_operation_duration_seconds",
			Help:    "Workspace operation duration in seconds, backend round-trip included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	staleResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imgreader_stale_results_total",
			Help: "Results discarded because a newer call of the same kind was issued",
		},
		[]string{"collection"},
	)

	// Evaluation metrics
	evaluatedImagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imgreader_evaluated_images_total",
			Help: "Images sent to the evaluator by result",
		},
		[]string{"result"},
	)

	evaluationBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "imgreader_evaluation_batch_size",
			Help:    "Number of images per evaluation call",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	// Preview cache metrics
	previewCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imgreader_preview_cache_total",
			Help: "Preview cache lookups by result",
		},
		[]string{"result"},
	)

	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "imgreader_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "status"},
	)
)

// RecordOperation records the outcome and duration of a workspace operation.
func RecordOperation(operation string, err error, duration time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	operationsTotal.WithLabelValues(operation, outcome).Inc()
	operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordSkipped records an operation that ended before reaching the backend.
func RecordSkipped(operation string) {
	operationsTotal.WithLabelValues(operation, "skipped").Inc()
}

// RecordStaleResult records a discarded out-of-order result.
func RecordStaleResult(collection string) {
	staleResultsTotal.WithLabelValues(collection).Inc()
}

// RecordEvaluationBatch records one batched evaluation.
func RecordEvaluationBatch(succeeded, failed int) {
	evaluationBatchSize.Observe(float64(succeeded + failed))
	evaluatedImagesTotal.WithLabelValues("success").Add(float64(succeeded))
	evaluatedImagesTotal.WithLabelValues("failure").Add(float64(failed))
}

// RecordPreviewCache records a preview cache hit or miss.
func RecordPreviewCache(hit bool) {
	if hit {
		previewCacheTotal.WithLabelValues("hit").Inc()
	} else {
		previewCacheTotal.WithLabelValues("miss").Inc()
	}
}

// RecordHTTPRequest records a served HTTP request.
func RecordHTTPRequest(method string, status int) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
