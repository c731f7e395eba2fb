package untappd

import "github.com/prometheus/client_golang/prometheus"

var (
	// cacheLookups counts cache reads by namespace and result (hit|miss|error).
	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "untappd_cache_lookups_total",
			Help: "Cache lookups for check-in API responses.",
		},
		[]string{"namespace", "result"},
	)

	// cacheCorrupt counts cached payloads that were no longer valid JSON.
	cacheCorrupt = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "untappd_cache_corrupt_total",
			Help: "Cached check-in API responses discarded as corrupt.",
		},
		[]string{"namespace"},
	)

	// upstreamDuration records live request latency by endpoint and status.
	upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "untappd_request_duration_seconds",
			Help:    "Duration of live check-in API requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "status"},
	)
)

func init() {
	prometheus.MustRegister(cacheLookups, cacheCorrupt, upstreamDuration)
}
