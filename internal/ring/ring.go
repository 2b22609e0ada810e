// Package ring is a specialized adaption of `container/ring`
// used as the insertion-order queue of stripe rows.
package ring

import "iter"

type (
	// A Ring is an element of a circular list, or ring.
	// Rings do not have a beginning or end; a pointer to any ring element
	// serves as reference to the entire ring. Empty rings are represented
	// as nil Ring pointers.
	Ring[Key comparable, Value any] struct {
		next, prev *Ring[Key, Value]
		Key        Key
		Value      Value
	}
	// FIFO is a queue threaded through a ring.
	// The zero value is an empty queue.
	FIFO[Key comparable, Value any] struct {
		newest *Ring[Key, Value]
		length int
	}
)

// New creates a one-element ring.
func New[Key comparable, Value any](key Key, value Value) *Ring[Key, Value] {
	r := &Ring[Key, Value]{Key: key, Value: value}
	r.next = r
	r.prev = r
	return r
}

// Link connects ring r with ring s such that the element
// after r becomes s and returns the element previously after r.
// r and s must belong to different rings.
func (r *Ring[Key, Value]) Link(s *Ring[Key, Value]) *Ring[Key, Value] {
	n := r.next
	p := s.prev
	// Note: Cannot use multiple assignment because
	// evaluation order of LHS is not specified.
	r.next = s
	s.prev = r
	n.prev = p
	p.next = n
	return n
}

// unlinkNext removes the element after r from the ring and returns it
// as a one-element ring. r must have at least two elements.
func (r *Ring[Key, Value]) unlinkNext() *Ring[Key, Value] {
	removed := r.next
	r.next = removed.next
	removed.next.prev = r
	removed.next = removed
	removed.prev = removed
	return removed
}

// Push appends an element behind the newest one.
func (q *FIFO[Key, Value]) Push(key Key, value Value) *Ring[Key, Value] {
	element := New(key, value)
	if q.newest != nil {
		q.newest.Link(element)
	}
	q.newest = element
	q.length++
	return element
}

// Pop removes and returns the oldest element, or nil when empty.
func (q *FIFO[Key, Value]) Pop() *Ring[Key, Value] {
	switch q.length {
	case 0:
		return nil
	case 1:
		oldest := q.newest
		q.newest = nil
		q.length = 0
		return oldest
	}
	q.length--
	return q.newest.unlinkNext()
}

// Len returns the number of queued elements.
func (q *FIFO[Key, Value]) Len() int { return q.length }

// Reset empties the queue.
func (q *FIFO[Key, Value]) Reset() {
	q.newest = nil
	q.length = 0
}

// All yields elements from oldest to newest.
// The behavior is undefined if the queue changes during iteration.
func (q *FIFO[Key, Value]) All() iter.Seq[*Ring[Key, Value]] {
	return func(yield func(*Ring[Key, Value]) bool) {
		if q.newest == nil {
			return
		}
		for p, n := q.newest.next, q.length; n > 0; p, n = p.next, n-1 {
			if !yield(p) {
				return
			}
		}
	}
}
