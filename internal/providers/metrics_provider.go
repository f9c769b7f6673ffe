package providers

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"tosctl/internal/structures"
)

type MetricsProviderInterface interface {
	IncFetchesTotal(outcome string)
	ObserveFetchDuration(duration time.Duration)
	IncCacheHits(layer string)
	IncCacheMisses(layer string)
	IncDecisions(accepted bool)
	Registry() *prometheus.Registry
}

// Cache layers reported to IncCacheHits/IncCacheMisses.
const (
	CacheLayerMemory = "memory"
	CacheLayerFile   = "file"
)

// Fetch outcomes reported to IncFetchesTotal.
const (
	FetchOK      = "ok"
	FetchMissing = "missing"
	FetchInvalid = "invalid"
)

type MetricsProvider struct {
	registry      *prometheus.Registry
	fetchesTotal  *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	cacheHits     *prometheus.CounterVec
	cacheMisses   *prometheus.CounterVec
	decisions     *prometheus.CounterVec
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &MetricsProvider{
		registry: registry,

		fetchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tosctl_remote_fetches_total",
			Help: "Total number of remote metadata fetch attempts",
		}, []string{"outcome"}),

		fetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tosctl_remote_fetch_duration_seconds",
			Help:    "Remote metadata fetch duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		cacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tosctl_cache_hits_total",
			Help: "Total number of metadata cache hits per layer",
		}, []string{"layer"}),

		cacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tosctl_cache_misses_total",
			Help: "Total number of metadata cache misses per layer",
		}, []string{"layer"}),

		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tosctl_decisions_total",
			Help: "Total number of recorded acceptance decisions",
		}, []string{"decision"}),
	}
}

func (m *MetricsProvider) IncFetchesTotal(outcome string) {
	m.fetchesTotal.WithLabelValues(outcome).Inc()
}

func (m *MetricsProvider) ObserveFetchDuration(duration time.Duration) {
	m.fetchDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits(layer string) {
	m.cacheHits.WithLabelValues(layer).Inc()
}

func (m *MetricsProvider) IncCacheMisses(layer string) {
	m.cacheMisses.WithLabelValues(layer).Inc()
}

func (m *MetricsProvider) IncDecisions(accepted bool) {
	decision := "rejected"
	if accepted {
		decision = "accepted"
	}
	m.decisions.WithLabelValues(decision).Inc()
}

func (m *MetricsProvider) Registry() *prometheus.Registry { return m.registry }

type noopMetrics struct{}

func (n *noopMetrics) IncFetchesTotal(_ string)               {}
func (n *noopMetrics) ObserveFetchDuration(_ time.Duration)   {}
func (n *noopMetrics) IncCacheHits(_ string)                  {}
func (n *noopMetrics) IncCacheMisses(_ string)                {}
func (n *noopMetrics) IncDecisions(_ bool)                    {}
func (n *noopMetrics) Registry() *prometheus.Registry         { return nil }
