package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mkurzov/marketd/internal/cache"
)

var (
	UpstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketd_upstream_requests_total",
		Help: "Upstream exchange requests, partitioned by exchange, operation and outcome",
	}, []string{"exchange", "op", "outcome"})

	UpstreamRequestSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marketd_upstream_request_seconds",
		Help:    "Upstream exchange request latency",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms -> ~20s
	}, []string{"exchange", "op"})

	RateLimitDeniedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketd_ratelimit_denied_total",
		Help: "Requests denied by the local rate limiter",
	})

	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "marketd_sessions_active",
		Help: "Streaming sessions currently running",
	})
	SessionsOpenedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketd_sessions_opened_total",
		Help: "Total streaming sessions opened",
	})

	StreamPayloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketd_stream_payloads_total",
		Help: "Payloads pushed to streaming clients, partitioned by kind (ticker/error)",
	}, []string{"kind"})
)

// ObserveUpstream records one upstream call.
func ObserveUpstream(exchange, op string, dur time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	UpstreamRequestsTotal.WithLabelValues(exchange, op, outcome).Inc()
	UpstreamRequestSeconds.WithLabelValues(exchange, op).Observe(dur.Seconds())
}

// OnSessionOpen records a streaming session starting.
func OnSessionOpen() {
	SessionsActive.Inc()
	SessionsOpenedTotal.Inc()
}

// OnSessionClose records a streaming session ending.
func OnSessionClose() {
	SessionsActive.Dec()
}

// CacheCollector exports a TTL cache's Stats snapshot at scrape time.
type CacheCollector struct {
	stats func() cache.Stats

	entries     *prometheus.Desc
	hits        *prometheus.Desc
	misses      *prometheus.Desc
	evictions   *prometheus.Desc
	expirations *prometheus.Desc
}

// NewCacheCollector builds a collector over a Stats source. The caller
// registers it, typically via prometheus.MustRegister.
func NewCacheCollector(name string, stats func() cache.Stats) *CacheCollector {
	labels := prometheus.Labels{"cache": name}
	return &CacheCollector{
		stats: stats,
		entries: prometheus.NewDesc("marketd_cache_entries",
			"Live entries in the cache", nil, labels),
		hits: prometheus.NewDesc("marketd_cache_hits_total",
			"Cache reads answered from a live entry", nil, labels),
		misses: prometheus.NewDesc("marketd_cache_misses_total",
			"Cache reads that fell through to the upstream", nil, labels),
		evictions: prometheus.NewDesc("marketd_cache_evictions_total",
			"Entries evicted to make room", nil, labels),
		expirations: prometheus.NewDesc("marketd_cache_expirations_total",
			"Entries removed because their TTL elapsed", nil, labels),
	}
}

func (c *CacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entries
	ch <- c.hits
	ch <- c.misses
	ch <- c.evictions
	ch <- c.expirations
}

func (c *CacheCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(s.Entries))
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(s.Evictions))
	ch <- prometheus.MustNewConstMetric(c.expirations, prometheus.CounterValue, float64(s.Expirations))
}
