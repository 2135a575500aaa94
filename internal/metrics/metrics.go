package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pinmap"

// Results recorded for BookmarkOps.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultInvalid  = "invalid"
	ResultError    = "error"
)

var (
	BookmarkOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "bookmark_ops_total", Help: "Bookmark store operations by operation and result."},
		[]string{"op", "result"},
	)
	StorageFaults = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "storage_faults_total", Help: "Snapshot load/save failures by backend and phase."},
		[]string{"backend", "phase"},
	)
	BookmarksStored = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: namespace, Name: "bookmarks_stored", Help: "Number of bookmarks in the last snapshot read or written."},
	)
	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_rate_limited_total", Help: "Requests rejected by the per-IP rate limiter."},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request latency by route and status.", Buckets: prometheus.DefBuckets},
		[]string{"method", "route", "status"},
	)
)

// RegisterCollectors registers every pinmap collector on reg.
func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(BookmarkOps)
	reg.MustRegister(StorageFaults)
	reg.MustRegister(BookmarksStored)
	reg.MustRegister(RateLimited)
	reg.MustRegister(HTTPRequestDuration)
}
