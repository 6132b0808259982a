// Package metrics registers the Prometheus instrumentation for the mirror:
// download outcomes by cache status, mirror probe results, sync worker
// cycles, and rate-limit rejections. Everything is registered on the default
// registry and served at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osumirror_downloads_total",
			Help: "Archive downloads served, by cache status",
		},
		[]string{"cache_status"},
	)

	MirrorProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osumirror_mirror_probes_total",
			Help: "Upstream mirror probe attempts, by mirror host and outcome",
		},
		[]string{"mirror", "outcome"},
	)

	SyncCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osumirror_sync_cycles_total",
			Help: "Background sync worker cycles, by worker and outcome",
		},
		[]string{"worker", "outcome"},
	)

	RateLimitRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "osumirror_rate_limit_rejections_total",
			Help: "Requests rejected by the per-client rate limiter",
		},
	)
)
