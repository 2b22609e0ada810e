package cache

import (
	"iter"
	"math"

	"github.com/djdv/go-smo/internal/ring"
)

type (
	stripeRow = ring.Ring[int64, []float64]
	// Stripe caches whole rows of a Gram matrix for a few anchor items.
	// Constructed by [NewStripe].
	Stripe struct {
		counters
		rows    map[int64]*stripeRow
		order   ring.FIFO[int64, []float64]
		columns map[int64]int // id -> column
		maxRows,
		numberOfColumns int
		lastRow    int64
		hasLastRow bool
	}
)

// NewStripe creates a [Stripe] with at most maxRows resident rows
// of numberOfColumns cells each.
func NewStripe(maxRows, numberOfColumns int) (*Stripe, error) {
	if maxRows < MinimumCapacity {
		return nil, minCapacityError("rows", maxRows)
	}
	if numberOfColumns < MinimumCapacity {
		return nil, minCapacityError("columns", numberOfColumns)
	}
	return &Stripe{
		rows:            make(map[int64]*stripeRow, maxRows),
		columns:         make(map[int64]int, numberOfColumns),
		maxRows:         maxRows,
		numberOfColumns: numberOfColumns,
	}, nil
}

// Get tries (a as row, b as column) and then the reverse.
func (c *Stripe) Get(a, b int64) (float64, bool) {
	if value, ok := c.lookup(a, b); ok {
		c.hit()
		return value, true
	}
	if value, ok := c.lookup(b, a); ok {
		c.hit()
		return value, true
	}
	c.miss()
	return 0, false
}

func (c *Stripe) lookup(row, column int64) (float64, bool) {
	values, ok := c.rows[row]
	if !ok {
		return 0, false
	}
	index, ok := c.columns[column]
	if !ok {
		return 0, false
	}
	value := values.Value[index]
	return value, !math.IsNaN(value)
}

// Set stores the value in the row of a, unless b is the row
// stored by the previous successful Set; then b is the row.
// If the column id is unseen and every column is taken,
// nothing is stored.
func (c *Stripe) Set(a, b int64, value float64) {
	row, column := a, b
	if c.hasLastRow && b == c.lastRow {
		row, column = b, a
	}
	index, ok := c.columnIndex(column)
	if !ok {
		return
	}
	c.row(row)[index] = value
	c.lastRow = row
	c.hasLastRow = true
}

func (c *Stripe) columnIndex(id int64) (int, bool) {
	if index, ok := c.columns[id]; ok {
		return index, true
	}
	if len(c.columns) == c.numberOfColumns {
		return 0, false
	}
	index := len(c.columns)
	c.columns[id] = index
	return index, true
}

func (c *Stripe) row(id int64) []float64 {
	if values, ok := c.rows[id]; ok {
		return values.Value
	}
	if c.order.Len() == c.maxRows {
		oldest := c.order.Pop()
		delete(c.rows, oldest.Key)
	}
	values := make([]float64, c.numberOfColumns)
	for i := range values {
		values[i] = math.NaN()
	}
	c.rows[id] = c.order.Push(id, values)
	return values
}

func (c *Stripe) Flush() {
	clear(c.rows)
	clear(c.columns)
	c.order.Reset()
	c.lastRow = 0
	c.hasLastRow = false
}

// Len returns the number of resident rows.
func (c *Stripe) Len() int { return c.order.Len() }

// IDs yields the resident row ids from oldest to newest.
func (c *Stripe) IDs() iter.Seq[int64] {
	return func(yield func(int64) bool) {
		for row := range c.order.All() {
			if !yield(row.Key) {
				return
			}
		}
	}
}
