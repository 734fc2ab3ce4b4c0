package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "dpmanager_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	uploadRequests *prometheus.CounterVec
	uploadErrors   *prometheus.CounterVec
	uploadLatency  *prometheus.HistogramVec

	itemMutations *prometheus.CounterVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		uploadRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "upload_requests_total",
				Help: "Total workbook upload requests by result",
			},
			[]string{"result"},
		)
		uploadErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "upload_errors_total",
				Help: "Total workbook upload errors by reason",
			},
			[]string{"reason"},
		)
		uploadLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "upload_latency_seconds",
				Help:    "Workbook upload latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		itemMutations = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "item_mutations_total",
				Help: "Total item and device mutations by operation and result",
			},
			[]string{"operation", "result"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total export operations by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			uploadRequests,
			uploadErrors,
			uploadLatency,
			itemMutations,
			exportTotal,
			exportLatency,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveUpload records upload request duration and result.
func ObserveUpload(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if uploadRequests != nil {
		uploadRequests.WithLabelValues(result).Inc()
	}
	if uploadLatency != nil {
		uploadLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncUploadError increments upload error counter.
func IncUploadError(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if uploadErrors != nil {
		uploadErrors.WithLabelValues(reason).Inc()
	}
}

// IncItemMutation increments item/device mutation counters.
func IncItemMutation(operation, result string) {
	if operation == "" {
		operation = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if itemMutations != nil {
		itemMutations.WithLabelValues(operation, result).Inc()
	}
}

// ObserveExport records export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
