// Package kernel evaluates similarity functions between training items,
// optionally through a [cache.Kernel] and a [cache.SquaredNorm].
//
// Only leaf kernels ([Function]) consult caches. Composite kernels
// ([Sum], [Product], [Polynomial], [Gaussian], [Normalized])
// recurse into their children and cache nothing themselves.
package kernel

import (
	"sync/atomic"

	"github.com/djdv/go-smo/cache"
)

type (
	// Item is a training instance with a stable identifier.
	// Identifiers must not be reused while any cache holds them.
	Item interface{ ID() int64 }
	// Kernel is a symmetric similarity between two items.
	Kernel[T Item] interface {
		InnerProduct(a, b T) float64
		// SquaredNorm returns K(x, x).
		SquaredNorm(x T) float64
	}
	// Func computes a raw similarity.
	// [Function] always passes the item with the smaller id first.
	Func[T Item] func(a, b T) float64
	// Function is a leaf [Kernel] with optional caches.
	// Concurrent access must be guarded by the caller.
	// Constructed by [New].
	Function[T Item] struct {
		compute Func[T]
		pairs   cache.Kernel
		norms   cache.SquaredNorm
		stats   Stats
	}
	// Stats counts raw computations and cache lookups.
	Stats struct {
		Computations uint64
		Hits         uint64
		Misses       uint64
	}
	// Option configures a [Function].
	Option   func(*settings)
	settings struct {
		pairs cache.Kernel
		norms cache.SquaredNorm
	}
)

var global struct {
	computations, hits, misses atomic.Uint64
}

// WithCache attaches a pair cache.
func WithCache(pairs cache.Kernel) Option {
	return func(s *settings) { s.pairs = pairs }
}

// WithSquaredNormCache attaches a self-similarity cache.
// Without one, self-similarities share the pair cache (if any).
func WithSquaredNormCache(norms cache.SquaredNorm) Option {
	return func(s *settings) { s.norms = norms }
}

// New wraps compute as a [Function].
func New[T Item](compute Func[T], options ...Option) *Function[T] {
	var set settings
	for _, apply := range options {
		apply(&set)
	}
	return &Function[T]{
		compute: compute,
		pairs:   set.pairs,
		norms:   set.norms,
	}
}

// InnerProduct returns K(a, b).
// Operands are ordered by id before any cache access or computation,
// so K(a, b) and K(b, a) are bit-identical.
func (f *Function[T]) InnerProduct(a, b T) float64 {
	idA, idB := a.ID(), b.ID()
	if idA == idB {
		return f.SquaredNorm(a)
	}
	if idA > idB {
		a, b = b, a
		idA, idB = idB, idA
	}
	if f.pairs == nil {
		return f.evaluate(a, b)
	}
	if value, ok := f.pairs.Get(idA, idB); ok {
		f.hit()
		return value
	}
	f.miss()
	value := f.evaluate(a, b)
	f.pairs.Set(idA, idB, value)
	return value
}

// SquaredNorm returns K(x, x).
func (f *Function[T]) SquaredNorm(x T) float64 {
	id := x.ID()
	switch {
	case f.norms != nil:
		if value, ok := f.norms.Get(id); ok {
			f.hit()
			return value
		}
		f.miss()
		value := f.evaluate(x, x)
		f.norms.Set(id, value)
		return value
	case f.pairs != nil:
		if value, ok := f.pairs.Get(id, id); ok {
			f.hit()
			return value
		}
		f.miss()
		value := f.evaluate(x, x)
		f.pairs.Set(id, id, value)
		return value
	}
	return f.evaluate(x, x)
}

// SquaredNormOfDifference returns K(x,x) + K(y,y) - 2K(x,y).
func (f *Function[T]) SquaredNormOfDifference(x, y T) float64 {
	return SquaredNormOfDifference[T](f, x, y)
}

func (f *Function[T]) evaluate(a, b T) float64 {
	f.stats.Computations++
	global.computations.Add(1)
	return f.compute(a, b)
}

func (f *Function[T]) hit() {
	f.stats.Hits++
	global.hits.Add(1)
}

func (f *Function[T]) miss() {
	f.stats.Misses++
	global.misses.Add(1)
}

// Stats returns this function's counters.
func (f *Function[T]) Stats() Stats { return f.stats }

// ResetStats zeroes this function's counters.
// Attached cache counters are not affected.
func (f *Function[T]) ResetStats() { f.stats = Stats{} }

// Flush empties the attached caches.
func (f *Function[T]) Flush() {
	if f.pairs != nil {
		f.pairs.Flush()
	}
	if f.norms != nil {
		f.norms.Flush()
	}
}

// GlobalStats returns counters summed over every [Function]
// in the process. Safe for concurrent use.
func GlobalStats() Stats {
	return Stats{
		Computations: global.computations.Load(),
		Hits:         global.hits.Load(),
		Misses:       global.misses.Load(),
	}
}

// ResetGlobalStats zeroes the process-wide counters.
func ResetGlobalStats() {
	global.computations.Store(0)
	global.hits.Store(0)
	global.misses.Store(0)
}

// SquaredNormOfDifference returns K(x,x) + K(y,y) - 2K(x,y),
// the squared distance between x and y in the kernel's feature space.
func SquaredNormOfDifference[T Item](k Kernel[T], x, y T) float64 {
	return k.SquaredNorm(x) + k.SquaredNorm(y) - 2*k.InnerProduct(x, y)
}
