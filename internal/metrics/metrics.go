// Package metrics provides Prometheus metrics for the workspace.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	storeOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeworkspace_store_operations_total",
			Help: "Total number of project store operations",
		},
		[]string{"operation", "status"},
	)

	storeOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codeworkspace_store_operation_duration_seconds",
			Help:    "Project store operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	blobOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeworkspace_blob_operations_total",
			Help: "Total number of blob backend operations",
		},
		[]string{"backend", "operation", "status"},
	)

	tabSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codeworkspace_tab_saves_total",
			Help: "Total number of tab saves",
		},
		[]string{"status"},
	)

	searchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "codeworkspace_search_duration_seconds",
			Help:    "Full-text search duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)

	searchResultsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "codeworkspace_search_results_total",
			Help: "Total number of search result lines returned",
		},
	)

	openTabs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codeworkspace_open_tabs",
			Help: "Number of tabs currently open across panes",
		},
	)
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordStoreOperation records one project store call.
func RecordStoreOperation(operation string, duration time.Duration, success bool) {
	storeOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	storeOperationsTotal.WithLabelValues(operation, statusLabel(success)).Inc()
}

// RecordBlobOperation records one backend read or write.
func RecordBlobOperation(backend, operation string, success bool) {
	blobOperationsTotal.WithLabelValues(backend, operation, statusLabel(success)).Inc()
}

// RecordTabSave records a save of one tab into the tree and store.
func RecordTabSave(success bool) {
	tabSavesTotal.WithLabelValues(statusLabel(success)).Inc()
}

// RecordSearch records one search pass.
func RecordSearch(duration time.Duration, results int) {
	searchDuration.Observe(duration.Seconds())
	searchResultsTotal.Add(float64(results))
}

// SetOpenTabs publishes the current open tab count.
func SetOpenTabs(n int) {
	openTabs.Set(float64(n))
}
