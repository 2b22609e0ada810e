package cache

import (
	"cmp"
	"iter"
	"maps"
	"slices"

	"github.com/djdv/go-smo/internal/triangle"
)

type (
	// lruIndex binds up to capacity ids to slots of a triangular store
	// and releases the least recently touched slots in batches.
	lruIndex struct {
		counters
		values  triangle.Store
		slots   map[int64]int // id -> slot
		ids     map[int]int64 // slot -> id
		free    []int
		clock   []uint64 // Last touch per slot.
		ticks   uint64
		batch   int
		scratch []int
	}
	// DynamicIndex is a least recently used pair cache
	// backed by one flat triangular array.
	// Constructed by [NewDynamicIndex].
	DynamicIndex struct{ lruIndex }
	// FixedSizeRow is a least recently used pair cache
	// backed by one slice per slot row.
	// Constructed by [NewFixedSizeRow].
	FixedSizeRow struct{ lruIndex }
)

const noSlot = -1

// NewDynamicIndex creates a [DynamicIndex] holding at most capacity ids.
func NewDynamicIndex(capacity int) (*DynamicIndex, error) {
	if capacity < MinimumCapacity {
		return nil, minCapacityError("capacity", capacity)
	}
	return &DynamicIndex{
		lruIndex: newLRUIndex(triangle.NewMatrix(capacity)),
	}, nil
}

// NewFixedSizeRow creates a [FixedSizeRow] holding at most capacity ids.
func NewFixedSizeRow(capacity int) (*FixedSizeRow, error) {
	if capacity < MinimumCapacity {
		return nil, minCapacityError("capacity", capacity)
	}
	return &FixedSizeRow{
		lruIndex: newLRUIndex(triangle.NewRows(capacity)),
	}, nil
}

func newLRUIndex(values triangle.Store) lruIndex {
	capacity := values.Size()
	index := lruIndex{
		values: values,
		slots:  make(map[int64]int, capacity),
		ids:    make(map[int]int64, capacity),
		clock:  make([]uint64, capacity),
		batch:  evictionBatch(capacity),
	}
	index.resetFree()
	return index
}

// evictionBatch is the number of slots released when the index is full.
func evictionBatch(capacity int) int {
	return int(0.1*float64(capacity)) + 1
}

func (c *lruIndex) resetFree() {
	capacity := c.values.Size()
	c.free = c.free[:0]
	// Reversed so slots are handed out in ascending order.
	for slot := capacity - 1; slot >= 0; slot-- {
		c.free = append(c.free, slot)
	}
}

func (c *lruIndex) Get(a, b int64) (float64, bool) {
	slotA, okA := c.slots[a]
	slotB, okB := c.slots[b]
	if okA && okB {
		c.touch(slotA)
		c.touch(slotB)
		if value, ok := c.values.Get(slotA, slotB); ok {
			c.hit()
			return value, true
		}
	}
	c.miss()
	return 0, false
}

func (c *lruIndex) Set(a, b int64, value float64) {
	slotA := c.acquire(a, noSlot)
	if slotA == noSlot {
		return
	}
	slotB := c.acquire(b, slotA)
	if slotB == noSlot {
		return
	}
	c.values.Set(slotA, slotB, value)
}

// acquire returns the slot bound to id, binding a free one if needed.
// The pinned slot is never released. Returns noSlot if nothing can be freed.
func (c *lruIndex) acquire(id int64, pinned int) int {
	if slot, ok := c.slots[id]; ok {
		c.touch(slot)
		return slot
	}
	if len(c.free) == 0 {
		c.evict(pinned)
		if len(c.free) == 0 {
			return noSlot
		}
	}
	last := len(c.free) - 1
	slot := c.free[last]
	c.free = c.free[:last]
	c.values.InvalidateRow(slot)
	c.slots[id] = slot
	c.ids[slot] = id
	c.touch(slot)
	return slot
}

func (c *lruIndex) touch(slot int) {
	c.ticks++
	c.clock[slot] = c.ticks
}

// evict releases the least recently touched batch of slots
// and rebases the remaining clocks on the oldest released one.
func (c *lruIndex) evict(pinned int) {
	candidates := c.scratch[:0]
	for slot := range c.ids {
		if slot != pinned {
			candidates = append(candidates, slot)
		}
	}
	c.scratch = candidates
	if len(candidates) == 0 {
		return
	}
	slices.SortFunc(candidates, func(x, y int) int {
		if order := cmp.Compare(c.clock[x], c.clock[y]); order != 0 {
			return order
		}
		return cmp.Compare(x, y)
	})
	var (
		count  = min(c.batch, len(candidates))
		oldest = c.clock[candidates[0]]
	)
	for _, slot := range candidates[:count] {
		delete(c.slots, c.ids[slot])
		delete(c.ids, slot)
		c.clock[slot] = 0
		c.free = append(c.free, slot)
	}
	for slot := range c.ids {
		c.clock[slot] -= oldest
	}
	c.ticks -= oldest
}

func (c *lruIndex) Flush() {
	c.values.Clear()
	clear(c.slots)
	clear(c.ids)
	clear(c.clock)
	c.ticks = 0
	c.resetFree()
}

// Len returns the number of resident ids.
func (c *lruIndex) Len() int { return len(c.slots) }

// Contains reports whether id currently owns a slot.
// It does not count as an access.
func (c *lruIndex) Contains(id int64) bool {
	_, ok := c.slots[id]
	return ok
}

// IDs returns an iterator over the (unordered) resident ids.
func (c *lruIndex) IDs() iter.Seq[int64] {
	return maps.Keys(c.slots)
}
