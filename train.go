package smo

import (
	"fmt"
	"slices"

	"github.com/djdv/go-smo/kernel"
)

// Model is a trained binary classifier.
type Model[T kernel.Item] struct {
	kernel         kernel.Kernel[T]
	SupportVectors []T
	// Coefficients are y_i·α_i, one per support vector.
	Coefficients []float64
	Rho          float64
	Solution     Solution
}

// TrainCSvc trains a C-SVM classifier.
// Use [WithBounds] to set the penalties of each label.
func TrainCSvc[T kernel.Item](k kernel.Kernel[T], items []T, labels []int8, options ...Option) (*Model[T], error) {
	solver, err := New(CSvm, k, options...)
	if err != nil {
		return nil, err
	}
	l := len(items)
	problem := Problem[T]{
		Items:  items,
		Linear: filled(l, -1),
		Labels: labels,
		Alpha:  make([]float64, l),
	}
	solution, err := solver.Solve(problem)
	if err != nil {
		return nil, err
	}
	if solution.Cp == solution.Cn {
		var sum float64
		for _, alpha := range solution.Alpha {
			sum += alpha
		}
		solver.logger.V(1).Info("Trained C-SVM", "nu", sum/(solution.Cp*float64(l)))
	}
	return newModel(k, items, labels, solution), nil
}

// TrainNuSvc trains a ν-SVM classifier.
// ν must lie in (0, 1] and be attainable by the label counts.
// Any bounds given through options are replaced with 1.
func TrainNuSvc[T kernel.Item](k kernel.Kernel[T], items []T, labels []int8, nu float64, options ...Option) (*Model[T], error) {
	if err := checkNu(nu); err != nil {
		return nil, err
	}
	positive, negative, err := countLabels(labels)
	if err != nil {
		return nil, err
	}
	l := len(items)
	if half := nu * float64(l) / 2; half > float64(min(positive, negative)) {
		return nil, fmt.Errorf("%w: ν = %v needs %v items of each label but there are %d and %d",
			ErrInfeasibleNu, nu, half, positive, negative)
	}
	solver, err := New(NuSvm, k, append(slices.Clip(options), WithBounds(1, 1))...)
	if err != nil {
		return nil, err
	}
	var (
		alpha   = make([]float64, min(l, len(labels)))
		sumPos  = nu * float64(l) / 2
		sumNeg  = sumPos
		problem = Problem[T]{
			Items:  items,
			Linear: make([]float64, l),
			Labels: labels,
		}
	)
	for i := range alpha {
		if labels[i] == +1 {
			alpha[i] = min(1, sumPos)
			sumPos -= alpha[i]
		} else {
			alpha[i] = min(1, sumNeg)
			sumNeg -= alpha[i]
		}
	}
	problem.Alpha = alpha
	solution, err := solver.Solve(problem)
	if err != nil {
		return nil, err
	}
	solver.logger.V(1).Info("Trained ν-SVM", "C", 1/solution.R)
	return newModel(k, items, labels, solution), nil
}

// TrainOneClass estimates the support of items.
// ν in (0, 1] bounds the fraction of outliers from above
// and the fraction of support vectors from below.
func TrainOneClass[T kernel.Item](k kernel.Kernel[T], items []T, nu float64, options ...Option) (*Model[T], error) {
	if err := checkNu(nu); err != nil {
		return nil, err
	}
	solver, err := New(CSvm, k, append(slices.Clip(options), WithBounds(1, 1))...)
	if err != nil {
		return nil, err
	}
	var (
		l      = len(items)
		labels = make([]int8, l)
		alpha  = make([]float64, l)
		total  = nu * float64(l)
		n      = int(total) // Items starting at their upper bound.
	)
	for i := range labels {
		labels[i] = +1
		switch {
		case i < n:
			alpha[i] = 1
		case i == n:
			alpha[i] = total - float64(n)
		}
	}
	solution, err := solver.Solve(Problem[T]{
		Items:  items,
		Linear: make([]float64, l),
		Labels: labels,
		Alpha:  alpha,
	})
	if err != nil {
		return nil, err
	}
	return newModel(k, items, labels, solution), nil
}

func newModel[T kernel.Item](k kernel.Kernel[T], items []T, labels []int8, solution Solution) *Model[T] {
	model := &Model[T]{
		kernel:   k,
		Rho:      solution.Rho,
		Solution: solution,
	}
	for i, alpha := range solution.Alpha {
		if alpha == 0 {
			continue
		}
		model.SupportVectors = append(model.SupportVectors, items[i])
		model.Coefficients = append(model.Coefficients, float64(labels[i])*alpha)
	}
	return model
}

// Decision returns Σ coef_i·K(sv_i, x) - ρ.
func (m *Model[T]) Decision(x T) float64 {
	var sum float64
	for i, sv := range m.SupportVectors {
		sum += m.Coefficients[i] * m.kernel.InnerProduct(sv, x)
	}
	return sum - m.Rho
}

// Predict returns +1 when the decision value is positive, -1 otherwise.
func (m *Model[T]) Predict(x T) int8 {
	if m.Decision(x) > 0 {
		return +1
	}
	return -1
}

func checkNu(nu float64) error {
	if !(nu > 0 && nu <= 1) {
		return fmt.Errorf("%w: ν must be in (0, 1] but is %v", ErrInfeasibleNu, nu)
	}
	return nil
}

func countLabels(labels []int8) (positive, negative int, err error) {
	for i, label := range labels {
		switch label {
		case +1:
			positive++
		case -1:
			negative++
		default:
			return 0, 0, fmt.Errorf("%w: item %d has label %d", ErrInvalidLabel, i, label)
		}
	}
	return positive, negative, nil
}

func filled(length int, value float64) []float64 {
	values := make([]float64, length)
	for i := range values {
		values[i] = value
	}
	return values
}
