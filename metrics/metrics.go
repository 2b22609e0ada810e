// Package metrics exports kernel and cache counters to Prometheus.
package metrics

import (
	"maps"
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/djdv/go-smo/cache"
	"github.com/djdv/go-smo/kernel"
)

type (
	// KernelSource reports kernel evaluation counters,
	// such as a [kernel.Function].
	KernelSource interface{ Stats() kernel.Stats }
	// CacheSource reports cache lookup counters,
	// such as any [cache.Kernel] or [cache.SquaredNorm].
	CacheSource interface{ Stats() cache.Stats }
	// Collector is a [prometheus.Collector] over named sources.
	// Sources are read without synchronization during collection,
	// so scrape only while they are idle or guard them externally.
	// Constructed by [NewCollector].
	Collector struct {
		kernels      map[string]KernelSource
		caches       map[string]CacheSource
		computations *prometheus.Desc
		kernelHits   *prometheus.Desc
		kernelMisses *prometheus.Desc
		cacheHits    *prometheus.Desc
		cacheMisses  *prometheus.Desc
		mu           sync.Mutex
	}
)

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns an empty collector whose metric
// names are prefixed with namespace.
func NewCollector(namespace string) *Collector {
	var (
		kernelLabels = []string{"kernel"}
		cacheLabels  = []string{"cache"}
		name         = func(subsystem, metric string) string {
			return prometheus.BuildFQName(namespace, subsystem, metric)
		}
	)
	return &Collector{
		kernels: make(map[string]KernelSource),
		caches:  make(map[string]CacheSource),
		computations: prometheus.NewDesc(name("kernel", "computations_total"),
			"Raw kernel evaluations.", kernelLabels, nil),
		kernelHits: prometheus.NewDesc(name("kernel", "cache_hits_total"),
			"Kernel values served from a cache.", kernelLabels, nil),
		kernelMisses: prometheus.NewDesc(name("kernel", "cache_misses_total"),
			"Kernel values missing from an attached cache.", kernelLabels, nil),
		cacheHits: prometheus.NewDesc(name("cache", "hits_total"),
			"Successful cache lookups.", cacheLabels, nil),
		cacheMisses: prometheus.NewDesc(name("cache", "misses_total"),
			"Failed cache lookups.", cacheLabels, nil),
	}
}

// AddKernel registers (or replaces) a kernel source under name.
func (c *Collector) AddKernel(name string, source KernelSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kernels[name] = source
}

// AddCache registers (or replaces) a cache source under name.
func (c *Collector) AddCache(name string, source CacheSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.caches[name] = source
}

func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	for _, desc := range []*prometheus.Desc{
		c.computations, c.kernelHits, c.kernelMisses,
		c.cacheHits, c.cacheMisses,
	} {
		descs <- desc
	}
}

func (c *Collector) Collect(metrics chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()
	counter := func(desc *prometheus.Desc, value uint64, label string) {
		metrics <- prometheus.MustNewConstMetric(desc,
			prometheus.CounterValue, float64(value), label)
	}
	for _, name := range slices.Sorted(maps.Keys(c.kernels)) {
		stats := c.kernels[name].Stats()
		counter(c.computations, stats.Computations, name)
		counter(c.kernelHits, stats.Hits, name)
		counter(c.kernelMisses, stats.Misses, name)
	}
	for _, name := range slices.Sorted(maps.Keys(c.caches)) {
		stats := c.caches[name].Stats()
		counter(c.cacheHits, stats.Hits, name)
		counter(c.cacheMisses, stats.Misses, name)
	}
}
