// Package triangle stores the upper triangle (diagonal included)
// of a symmetric n×n matrix of float64 values.
//
// Unset cells hold NaN; Get reports them as absent.
package triangle

import "math"

type (
	// Store is the common surface of [Matrix] and [Rows].
	// Slot arguments must be in [0, n).
	Store interface {
		Get(a, b int) (float64, bool)
		Set(a, b int, value float64)
		InvalidateRow(slot int)
		Clear()
		Size() int
	}
	// Matrix packs every row into one flat slice.
	Matrix struct {
		values []float64
		n      int
	}
	// Rows keeps one slice per row; row r has n-r cells.
	// Rows are allocated on first write.
	Rows struct {
		rows [][]float64
		n    int
	}
)

var unset = math.NaN()

// Cells returns the number of cells in a packed triangle of size n.
func Cells(n int) int { return n * (n + 1) / 2 }

// Index returns the position of (a, b) within a packed triangle of size n.
// The pair is unordered.
func Index(n, a, b int) int {
	lo, hi := order(a, b)
	if lo == 0 {
		return hi
	}
	return lo*(n-1) - lo*(lo-1)/2 + hi
}

func order(a, b int) (lo, hi int) {
	if a > b {
		return b, a
	}
	return a, b
}

// NewMatrix allocates an empty flat triangle of size n.
func NewMatrix(n int) *Matrix {
	m := &Matrix{
		values: make([]float64, Cells(n)),
		n:      n,
	}
	m.Clear()
	return m
}

func (m *Matrix) Size() int { return m.n }

func (m *Matrix) Get(a, b int) (float64, bool) {
	value := m.values[Index(m.n, a, b)]
	return value, !math.IsNaN(value)
}

func (m *Matrix) Set(a, b int, value float64) {
	m.values[Index(m.n, a, b)] = value
}

// InvalidateRow unsets every cell that has slot as either coordinate.
func (m *Matrix) InvalidateRow(slot int) {
	for other := range m.n {
		m.values[Index(m.n, slot, other)] = unset
	}
}

func (m *Matrix) Clear() {
	for i := range m.values {
		m.values[i] = unset
	}
}

// NewRows allocates an empty row-per-slice triangle of size n.
func NewRows(n int) *Rows {
	return &Rows{
		rows: make([][]float64, n),
		n:    n,
	}
}

func (r *Rows) Size() int { return r.n }

func (r *Rows) Get(a, b int) (float64, bool) {
	lo, hi := order(a, b)
	row := r.rows[lo]
	if row == nil {
		return unset, false
	}
	value := row[hi-lo]
	return value, !math.IsNaN(value)
}

func (r *Rows) Set(a, b int, value float64) {
	lo, hi := order(a, b)
	row := r.rows[lo]
	if row == nil {
		row = make([]float64, r.n-lo)
		for i := range row {
			row[i] = unset
		}
		r.rows[lo] = row
	}
	row[hi-lo] = value
}

// InvalidateRow drops the slot's own row and
// unsets its column in every lower row.
func (r *Rows) InvalidateRow(slot int) {
	r.rows[slot] = nil
	for lo := range slot {
		if row := r.rows[lo]; row != nil {
			row[slot-lo] = unset
		}
	}
}

func (r *Rows) Clear() {
	clear(r.rows)
}
