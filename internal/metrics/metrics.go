package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engine collectors live on the default registry so the promhttp handler
// picks them up without extra wiring.
var (
	// BucketFetches counts per-bucket fetches by outcome: success, error or
	// cancelled.
	BucketFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timeline_bucket_fetches_total",
		Help: "Bucket asset fetches by result.",
	}, []string{"result"})

	// CacheHits counts bucket loads served from persisted rows without a
	// blocking source fetch.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timeline_cache_hits_total",
		Help: "Bucket loads served from the persisted store.",
	})

	// JobEvictions counts fetch jobs evicted and cancelled by the bounded
	// job tracker.
	JobEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timeline_fetch_evictions_total",
		Help: "Fetch jobs evicted by the LRU job tracker.",
	})

	// InflightFetches tracks currently running fetch goroutines.
	InflightFetches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "timeline_inflight_fetches",
		Help: "Fetch goroutines currently running.",
	})
)

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}
