package cache

import (
	"encoding"
	"fmt"
)

type (
	// Kernel stores values for unordered pairs of item ids.
	// A value is only returned for a pair that was explicitly
	// stored since the last [Kernel.Flush].
	Kernel interface {
		Get(a, b int64) (float64, bool)
		// Set stores the value for the pair. The last write wins.
		// Other pairs may be evicted, and the store itself
		// may be skipped when the cache cannot hold the pair.
		Set(a, b int64, value float64)
		Flush()
		Stats() Stats
		ResetStats()
	}
	// SquaredNorm is the single-id counterpart of [Kernel].
	SquaredNorm interface {
		Get(id int64) (float64, bool)
		Set(id int64, value float64)
		Flush()
		Stats() Stats
		ResetStats()
	}
	// Stats counts lookups since construction or the last reset.
	Stats struct {
		Hits   uint64
		Misses uint64
	}
	counters struct{ stats Stats }

	// Kind selects a pair cache implementation.
	Kind string
	// Config describes a pair cache.
	// Capacity applies to index and row caches;
	// Rows and Columns apply to [KindStripe].
	Config struct {
		Kind     Kind `yaml:"kind"`
		Capacity int  `yaml:"capacity,omitempty"`
		Rows     int  `yaml:"rows,omitempty"`
		Columns  int  `yaml:"columns,omitempty"`
	}

	// NormKind selects a squared norm cache implementation.
	NormKind string
	// NormConfig describes a squared norm cache.
	NormConfig struct {
		Kind     NormKind `yaml:"kind"`
		Capacity int      `yaml:"capacity,omitempty"`
	}
)

// MinimumCapacity is the lowest capacity accepted by any cache.
const MinimumCapacity = 1

const (
	KindNone         Kind = "none"
	KindFixedIndex   Kind = "fixed-index"
	KindDynamicIndex Kind = "dynamic-index"
	KindFixedSizeRow Kind = "fixed-size-row"
	KindStripe       Kind = "stripe"
)

const (
	NormKindNone       NormKind = "none"
	NormKindFixedIndex NormKind = "fixed-index"
	NormKindLRU        NormKind = "lru"
	NormKindARC        NormKind = "arc"
)

var (
	_ encoding.TextUnmarshaler = (*Kind)(nil)
	_ encoding.TextUnmarshaler = (*NormKind)(nil)
)

// Kinds lists every pair cache kind, [KindNone] first.
func Kinds() []Kind {
	return []Kind{
		KindNone, KindFixedIndex, KindDynamicIndex,
		KindFixedSizeRow, KindStripe,
	}
}

func (c *counters) hit()  { c.stats.Hits++ }
func (c *counters) miss() { c.stats.Misses++ }

// Stats returns the lookup counters.
func (c *counters) Stats() Stats { return c.stats }

// ResetStats zeroes the lookup counters.
func (c *counters) ResetStats() { c.stats = Stats{} }

func (k Kind) valid() bool {
	switch k {
	case KindNone, KindFixedIndex, KindDynamicIndex,
		KindFixedSizeRow, KindStripe:
		return true
	}
	return false
}

func (k *Kind) UnmarshalText(text []byte) error {
	kind := Kind(text)
	if !kind.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, text)
	}
	*k = kind
	return nil
}

func (k NormKind) valid() bool {
	switch k {
	case NormKindNone, NormKindFixedIndex, NormKindLRU, NormKindARC:
		return true
	}
	return false
}

func (k *NormKind) UnmarshalText(text []byte) error {
	kind := NormKind(text)
	if !kind.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, text)
	}
	*k = kind
	return nil
}

// Validate checks the configuration without allocating a cache.
func (c Config) Validate() error {
	switch c.Kind {
	case KindNone, "":
		return nil
	case KindFixedIndex, KindDynamicIndex, KindFixedSizeRow:
		if c.Capacity < MinimumCapacity {
			return minCapacityError("capacity", c.Capacity)
		}
	case KindStripe:
		if c.Rows < MinimumCapacity {
			return minCapacityError("rows", c.Rows)
		}
		if c.Columns < MinimumCapacity {
			return minCapacityError("columns", c.Columns)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, c.Kind)
	}
	return nil
}

// New constructs the pair cache described by config.
// [KindNone] (or an empty kind) yields a nil cache and no error.
func New(config Config) (Kernel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	switch config.Kind {
	case KindFixedIndex:
		return NewFixedIndex(config.Capacity)
	case KindDynamicIndex:
		return NewDynamicIndex(config.Capacity)
	case KindFixedSizeRow:
		return NewFixedSizeRow(config.Capacity)
	case KindStripe:
		return NewStripe(config.Rows, config.Columns)
	}
	return nil, nil
}

// Validate checks the configuration without allocating a cache.
func (c NormConfig) Validate() error {
	switch c.Kind {
	case NormKindNone, "":
		return nil
	case NormKindFixedIndex, NormKindLRU, NormKindARC:
		if c.Capacity < MinimumCapacity {
			return minCapacityError("capacity", c.Capacity)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownKind, c.Kind)
}

// NewSquaredNorm constructs the squared norm cache described by config.
// [NormKindNone] (or an empty kind) yields a nil cache and no error.
func NewSquaredNorm(config NormConfig) (SquaredNorm, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	switch config.Kind {
	case NormKindFixedIndex:
		return NewFixedIndexNorms(config.Capacity)
	case NormKindLRU:
		return NewLRUNorms(config.Capacity)
	case NormKindARC:
		return NewARCNorms(config.Capacity)
	}
	return nil, nil
}
