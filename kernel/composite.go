package kernel

import "math"

type (
	// Weighted scales a kernel inside a [Sum].
	Weighted[T Item] struct {
		Kernel Kernel[T]
		Weight float64
	}
	// Sum is Σ w_i·K_i(a, b).
	Sum[T Item] struct{ Terms []Weighted[T] }
	// Product is Π K_i(a, b).
	Product[T Item] struct{ Factors []Kernel[T] }
	// Polynomial is (γ·K(a, b) + c)^d.
	Polynomial[T Item] struct {
		Base   Kernel[T]
		Gamma  float64
		Coef0  float64
		Degree int
	}
	// Gaussian is exp(-γ·‖a-b‖²), with the distance
	// taken in the feature space of Base.
	Gaussian[T Item] struct {
		Base  Kernel[T]
		Gamma float64
	}
	// Normalized is K(a, b) / √(K(a, a)·K(b, b)).
	Normalized[T Item] struct{ Base Kernel[T] }
)

func (s Sum[T]) InnerProduct(a, b T) float64 {
	var total float64
	for _, term := range s.Terms {
		total += term.Weight * term.Kernel.InnerProduct(a, b)
	}
	return total
}

func (s Sum[T]) SquaredNorm(x T) float64 {
	var total float64
	for _, term := range s.Terms {
		total += term.Weight * term.Kernel.SquaredNorm(x)
	}
	return total
}

func (p Product[T]) InnerProduct(a, b T) float64 {
	total := 1.0
	for _, factor := range p.Factors {
		total *= factor.InnerProduct(a, b)
	}
	return total
}

func (p Product[T]) SquaredNorm(x T) float64 {
	total := 1.0
	for _, factor := range p.Factors {
		total *= factor.SquaredNorm(x)
	}
	return total
}

func (p Polynomial[T]) InnerProduct(a, b T) float64 {
	return powi(p.Gamma*p.Base.InnerProduct(a, b)+p.Coef0, p.Degree)
}

func (p Polynomial[T]) SquaredNorm(x T) float64 {
	return powi(p.Gamma*p.Base.SquaredNorm(x)+p.Coef0, p.Degree)
}

func (g Gaussian[T]) InnerProduct(a, b T) float64 {
	return math.Exp(-g.Gamma * SquaredNormOfDifference(g.Base, a, b))
}

// SquaredNorm is always 1.
func (g Gaussian[T]) SquaredNorm(T) float64 { return 1 }

func (n Normalized[T]) InnerProduct(a, b T) float64 {
	return n.Base.InnerProduct(a, b) /
		math.Sqrt(n.Base.SquaredNorm(a)*n.Base.SquaredNorm(b))
}

func (n Normalized[T]) SquaredNorm(x T) float64 {
	norm := n.Base.SquaredNorm(x)
	return norm / math.Sqrt(norm*norm)
}

// powi raises base to a non-negative integer power by squaring.
func powi(base float64, times int) float64 {
	tmp, ret := base, 1.0
	for t := times; t > 0; t /= 2 {
		if t%2 == 1 {
			ret *= tmp
		}
		tmp *= tmp
	}
	return ret
}
