package cache

import "github.com/djdv/go-smo/internal/triangle"

type (
	// FixedIndex is a direct-mapped pair cache.
	// Constructed by [NewFixedIndex].
	FixedIndex struct {
		counters
		values *triangle.Matrix
		slots  slotOwners
	}
	// slotOwners binds each of a fixed number of slots to at most one id.
	slotOwners struct {
		owners  []int64
		present []bool
	}
)

// NewFixedIndex creates a [FixedIndex] with the given number of slots.
func NewFixedIndex(capacity int) (*FixedIndex, error) {
	if capacity < MinimumCapacity {
		return nil, minCapacityError("capacity", capacity)
	}
	return &FixedIndex{
		values: triangle.NewMatrix(capacity),
		slots:  newSlotOwners(capacity),
	}, nil
}

func (c *FixedIndex) Get(a, b int64) (float64, bool) {
	var (
		slotA = c.slots.slot(a)
		slotB = c.slots.slot(b)
	)
	if c.slots.holds(slotA, a) && c.slots.holds(slotB, b) {
		if value, ok := c.values.Get(slotA, slotB); ok {
			c.hit()
			return value, true
		}
	}
	c.miss()
	return 0, false
}

func (c *FixedIndex) Set(a, b int64, value float64) {
	var (
		slotA = c.slots.slot(a)
		slotB = c.slots.slot(b)
	)
	if a != b && slotA == slotB {
		return // Both ids can never be resident together.
	}
	c.claim(slotA, a)
	c.claim(slotB, b)
	c.values.Set(slotA, slotB, value)
}

func (c *FixedIndex) claim(slot int, id int64) {
	if c.slots.holds(slot, id) {
		return
	}
	c.values.InvalidateRow(slot)
	c.slots.bind(slot, id)
}

func (c *FixedIndex) Flush() {
	c.values.Clear()
	c.slots.reset()
}

func newSlotOwners(capacity int) slotOwners {
	return slotOwners{
		owners:  make([]int64, capacity),
		present: make([]bool, capacity),
	}
}

func (s *slotOwners) slot(id int64) int {
	slot := id % int64(len(s.owners))
	if slot < 0 {
		slot += int64(len(s.owners))
	}
	return int(slot)
}

func (s *slotOwners) holds(slot int, id int64) bool {
	return s.present[slot] && s.owners[slot] == id
}

func (s *slotOwners) bind(slot int, id int64) {
	s.owners[slot] = id
	s.present[slot] = true
}

func (s *slotOwners) reset() { clear(s.present) }
