// Package metrics provides Prometheus metrics for the BrowserFS client.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "browserfs_fetches_total",
			Help: "Total content and size-probe fetches by mode and status",
		},
		[]string{"mode", "status"},
	)

	fetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "browserfs_fetch_duration_seconds",
			Help:    "Fetch duration in seconds by mode",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	bytesFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "browserfs_bytes_fetched_total",
			Help: "Total content bytes downloaded from the backing store",
		},
	)

	cacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "browserfs_cache_hits_total",
			Help: "Opens served from already-materialized content",
		},
	)

	cacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "browserfs_cache_misses_total",
			Help: "Opens that required a content download",
		},
	)

	invalidationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "browserfs_invalidations_total",
			Help: "Bulk cache invalidations",
		},
	)

	indexSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "browserfs_index_size",
			Help: "Number of files and directories in the metadata index",
		},
	)

	listingFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "browserfs_listing_fetch_duration_seconds",
			Help:    "Time to download and decode the listing document",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// RecordFetch records a size-probe ("size") or whole-file ("content") fetch.
func RecordFetch(mode string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	fetchesTotal.WithLabelValues(mode, status).Inc()
	fetchDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordBytesFetched records downloaded content bytes.
func RecordBytesFetched(n int64) {
	bytesFetched.Add(float64(n))
}

// RecordCacheHit records an open served without a network call.
func RecordCacheHit() {
	cacheHitsTotal.Inc()
}

// RecordCacheMiss records an open that triggered a download.
func RecordCacheMiss() {
	cacheMissesTotal.Inc()
}

// RecordInvalidation records a bulk invalidation.
func RecordInvalidation() {
	invalidationsTotal.Inc()
}

// SetIndexSize records the node count of the metadata index.
func SetIndexSize(n int) {
	indexSize.Set(float64(n))
}

// RecordListingFetch records the listing download duration.
func RecordListingFetch(duration time.Duration) {
	listingFetchDuration.Observe(duration.Seconds())
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
