package cache

import (
	"github.com/hashicorp/golang-lru/arc/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

type (
	// FixedIndexNorms is a direct-mapped squared norm cache.
	// Constructed by [NewFixedIndexNorms].
	FixedIndexNorms struct {
		counters
		values []float64
		slots  slotOwners
	}
	// LRUNorms is a least recently used squared norm cache.
	// Constructed by [NewLRUNorms].
	LRUNorms struct {
		counters
		cache *lru.Cache[int64, float64]
	}
	// ARCNorms is an adaptive replacement squared norm cache.
	// Constructed by [NewARCNorms].
	ARCNorms struct {
		counters
		cache *arc.ARCCache[int64, float64]
	}
)

// NewFixedIndexNorms creates a [FixedIndexNorms]
// where id is stored at slot id mod capacity.
func NewFixedIndexNorms(capacity int) (*FixedIndexNorms, error) {
	if capacity < MinimumCapacity {
		return nil, minCapacityError("capacity", capacity)
	}
	return &FixedIndexNorms{
		values: make([]float64, capacity),
		slots:  newSlotOwners(capacity),
	}, nil
}

func (c *FixedIndexNorms) Get(id int64) (float64, bool) {
	if slot := c.slots.slot(id); c.slots.holds(slot, id) {
		c.hit()
		return c.values[slot], true
	}
	c.miss()
	return 0, false
}

func (c *FixedIndexNorms) Set(id int64, value float64) {
	slot := c.slots.slot(id)
	c.slots.bind(slot, id)
	c.values[slot] = value
}

func (c *FixedIndexNorms) Flush() { c.slots.reset() }

// NewLRUNorms creates a [LRUNorms] holding at most capacity ids.
func NewLRUNorms(capacity int) (*LRUNorms, error) {
	if capacity < MinimumCapacity {
		return nil, minCapacityError("capacity", capacity)
	}
	cache, err := lru.New[int64, float64](capacity)
	if err != nil {
		return nil, err
	}
	return &LRUNorms{cache: cache}, nil
}

func (c *LRUNorms) Get(id int64) (float64, bool) {
	value, ok := c.cache.Get(id)
	c.count(ok)
	return value, ok
}

func (c *LRUNorms) Set(id int64, value float64) { c.cache.Add(id, value) }

func (c *LRUNorms) Flush() { c.cache.Purge() }

// NewARCNorms creates an [ARCNorms] holding at most capacity ids.
func NewARCNorms(capacity int) (*ARCNorms, error) {
	if capacity < MinimumCapacity {
		return nil, minCapacityError("capacity", capacity)
	}
	cache, err := arc.NewARC[int64, float64](capacity)
	if err != nil {
		return nil, err
	}
	return &ARCNorms{cache: cache}, nil
}

func (c *ARCNorms) Get(id int64) (float64, bool) {
	value, ok := c.cache.Get(id)
	c.count(ok)
	return value, ok
}

func (c *ARCNorms) Set(id int64, value float64) { c.cache.Add(id, value) }

func (c *ARCNorms) Flush() { c.cache.Purge() }

func (c *counters) count(hit bool) {
	if hit {
		c.hit()
	} else {
		c.miss()
	}
}
