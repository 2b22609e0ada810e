package metrics_test

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djdv/go-smo/cache"
	"github.com/djdv/go-smo/kernel"
	"github.com/djdv/go-smo/metrics"
)

func TestCollector(t *testing.T) {
	t.Parallel()
	pairs, err := cache.NewFixedIndex(8)
	require.NoError(t, err)
	var (
		linear    = kernel.NewLinear(kernel.WithCache(pairs))
		a, b      = kernel.NewVector(0, 1, 2), kernel.NewVector(1, 3, 4)
		collector = metrics.NewCollector("smo")
	)
	assert.Equal(t, 0, testutil.CollectAndCount(collector))

	linear.InnerProduct(a, b) // Miss, computed.
	linear.InnerProduct(b, a) // Hit.
	collector.AddKernel("linear", linear)
	collector.AddCache("pairs", pairs)
	assert.Equal(t, 5, testutil.CollectAndCount(collector))

	const expected = `
# HELP smo_kernel_computations_total Raw kernel evaluations.
# TYPE smo_kernel_computations_total counter
smo_kernel_computations_total{kernel="linear"} 1
# HELP smo_kernel_cache_hits_total Kernel values served from a cache.
# TYPE smo_kernel_cache_hits_total counter
smo_kernel_cache_hits_total{kernel="linear"} 1
# HELP smo_cache_misses_total Failed cache lookups.
# TYPE smo_cache_misses_total counter
smo_cache_misses_total{cache="pairs"} 1
`
	require.NoError(t, testutil.CollectAndCompare(collector, strings.NewReader(expected),
		"smo_kernel_computations_total",
		"smo_kernel_cache_hits_total",
		"smo_cache_misses_total",
	))

	registry := prometheus.NewPedanticRegistry()
	require.NoError(t, registry.Register(collector))
	families, err := registry.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 5)
}
