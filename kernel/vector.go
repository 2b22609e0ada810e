package kernel

import "gonum.org/v1/gonum/floats"

// Vector is a dense feature vector item.
type Vector struct {
	Values []float64
	ItemID int64
}

// NewVector returns a [Vector] with the given id and values.
func NewVector(id int64, values ...float64) Vector {
	return Vector{ItemID: id, Values: values}
}

func (v Vector) ID() int64 { return v.ItemID }

// Linear is the dot product of two vectors of equal length.
func Linear(a, b Vector) float64 { return floats.Dot(a.Values, b.Values) }

// NewLinear returns a leaf linear kernel over vectors.
func NewLinear(options ...Option) *Function[Vector] {
	return New[Vector](Linear, options...)
}

// NewGaussian returns exp(-γ·‖a-b‖²) over a cached linear leaf.
func NewGaussian(gamma float64, options ...Option) Gaussian[Vector] {
	return Gaussian[Vector]{Base: NewLinear(options...), Gamma: gamma}
}
