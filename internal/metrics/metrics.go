// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Lookups counts barcode lookups by terminal outcome ("ok" or the
	// failure reason).
	Lookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nutriscan_lookups_total",
		Help: "Barcode lookups by outcome.",
	}, []string{"outcome"})

	// CacheHits counts lookups served from the product cache.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nutriscan_lookup_cache_hits_total",
		Help: "Lookups served from cache.",
	})

	// CacheMisses counts lookups that reached the product backend.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nutriscan_lookup_cache_misses_total",
		Help: "Lookups that missed the cache.",
	})

	// Detections counts barcode detections accepted past the throttle.
	Detections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nutriscan_scanner_detections_total",
		Help: "Accepted barcode detections.",
	})

	// ScannerFailures counts classified scanner start failures.
	ScannerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nutriscan_scanner_failures_total",
		Help: "Scanner start failures by error code.",
	}, []string{"code"})
)
