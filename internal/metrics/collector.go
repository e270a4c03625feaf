package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mediasieve/internal/cache"
)

// CacheSource names a cache and exposes its counters.
type CacheSource struct {
	Name  string
	Stats func() cache.Stats
}

// CacheCollector implements prometheus.Collector over in-memory result
// caches. It reads their counters lazily on each gather rather than keeping
// duplicate state.
type CacheCollector struct {
	sources []CacheSource

	hits     *prometheus.Desc
	misses   *prometheus.Desc
	entries  *prometheus.Desc
	capacity *prometheus.Desc
}

var cacheLabels = []string{"cache"}

// NewCacheCollector creates a collector for the given caches.
func NewCacheCollector(sources ...CacheSource) *CacheCollector {
	return &CacheCollector{
		sources: sources,
		hits: prometheus.NewDesc(
			namespace+"_cache_hits",
			"Lookups served from the cache.",
			cacheLabels, nil,
		),
		misses: prometheus.NewDesc(
			namespace+"_cache_misses",
			"Lookups that missed the cache.",
			cacheLabels, nil,
		),
		entries: prometheus.NewDesc(
			namespace+"_cache_entries",
			"Entries currently held.",
			cacheLabels, nil,
		),
		capacity: prometheus.NewDesc(
			namespace+"_cache_capacity",
			"Maximum number of entries.",
			cacheLabels, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *CacheCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.entries
	ch <- c.capacity
}

// Collect implements prometheus.Collector.
func (c *CacheCollector) Collect(ch chan<- prometheus.Metric) {
	for _, src := range c.sources {
		if src.Stats == nil {
			continue
		}
		s := src.Stats()
		ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits), src.Name)
		ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses), src.Name)
		ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(s.Entries), src.Name)
		ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(s.Capacity), src.Name)
	}
}
