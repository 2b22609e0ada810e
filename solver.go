package smo

import (
	"encoding"
	"fmt"
	"math"

	"github.com/go-logr/logr"

	"github.com/djdv/go-smo/kernel"
)

type (
	// Kind selects the working-set and bias strategy of a [Solver].
	Kind string
	// Solver optimizes SVM dual problems over items of type T.
	// Working state lives only for the duration of [Solver.Solve],
	// but the kernel (and its caches) is shared between calls,
	// so concurrent calls must be guarded by the caller
	// unless the kernel is safe for concurrent use.
	// Constructed by [New].
	Solver[T kernel.Item] struct {
		kernel   kernel.Kernel[T]
		strategy strategy
		settings
	}
	// Option configures a [Solver].
	Option   func(*settings)
	settings struct {
		logger        logr.Logger
		cp, cn        float64
		eps, tau      float64
		maxIterations int
		shrinking     bool
	}
	// Problem is one dual problem instance.
	// Every slice must have one entry per item.
	Problem[T kernel.Item] struct {
		Items []T
		// Linear is the linear term p.
		Linear []float64
		// Labels are +1 or -1.
		Labels []int8
		// Alpha is a feasible starting point.
		Alpha []float64
	}
	// Solution is the result of [Solver.Solve].
	Solution struct {
		// Alpha holds the coefficients in the original item order.
		Alpha     []float64
		Rho       float64
		Objective float64
		// Cp and Cn are the effective upper bounds.
		Cp, Cn float64
		// R is the ν normalization factor (1 for [CSvm]).
		R          float64
		Iterations int
		Converged  bool
	}
	strategy interface {
		selectWorkingSet(w *workspace) (i, j int, found bool)
		shrink(w *workspace)
		rho(w *workspace) (rho, r float64)
		normalize(solution *Solution)
	}
)

const (
	// CSvm enforces Σ y_i·α_i = Δ.
	CSvm Kind = "c-svm"
	// NuSvm additionally keeps Σ α_i fixed per label.
	NuSvm Kind = "nu-svm"
)

const (
	// DefaultTolerance is the stopping tolerance ε.
	DefaultTolerance = 1e-3
	// DefaultTau replaces non-positive curvature in the two-variable step.
	DefaultTau = 1e-10

	minimumIterations   = 10_000_000
	iterationsPerItem   = 100
	maximumShrinkPeriod = 1000
	unshrinkFactor      = 10
)

var _ encoding.TextUnmarshaler = (*Kind)(nil)

func (k *Kind) UnmarshalText(text []byte) error {
	kind := Kind(text)
	if _, err := kind.strategy(); err != nil {
		return err
	}
	*k = kind
	return nil
}

func (k Kind) strategy() (strategy, error) {
	switch k {
	case CSvm:
		return cSvm{}, nil
	case NuSvm:
		return nuSvm{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, string(k))
}

// WithBounds sets the upper bounds for positive and negative items.
// The default is 1 for both.
func WithBounds(cp, cn float64) Option {
	return func(s *settings) { s.cp, s.cn = cp, cn }
}

// WithTolerance sets the stopping tolerance ε.
func WithTolerance(eps float64) Option {
	return func(s *settings) { s.eps = eps }
}

// WithTau sets the curvature floor τ.
func WithTau(tau float64) Option {
	return func(s *settings) { s.tau = tau }
}

// WithShrinking enables or disables shrinking (enabled by default).
func WithShrinking(enabled bool) Option {
	return func(s *settings) { s.shrinking = enabled }
}

// WithMaxIterations caps the number of updates.
// Zero restores the default of max(10,000,000, 100·l).
func WithMaxIterations(limit int) Option {
	return func(s *settings) { s.maxIterations = limit }
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(logger logr.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// New creates a [Solver] of the given kind over k.
func New[T kernel.Item](kind Kind, k kernel.Kernel[T], options ...Option) (*Solver[T], error) {
	strategy, err := kind.strategy()
	if err != nil {
		return nil, err
	}
	set := settings{
		logger:    logr.Discard(),
		cp:        1,
		cn:        1,
		eps:       DefaultTolerance,
		tau:       DefaultTau,
		shrinking: true,
	}
	for _, apply := range options {
		apply(&set)
	}
	if err := set.validate(); err != nil {
		return nil, err
	}
	return &Solver[T]{
		kernel:   k,
		strategy: strategy,
		settings: set,
	}, nil
}

func (s *settings) validate() error {
	for _, bound := range []struct {
		name  string
		value float64
	}{
		{"Cp", s.cp}, {"Cn", s.cn},
		{"tolerance", s.eps}, {"tau", s.tau},
	} {
		if !(bound.value > 0) || math.IsInf(bound.value, 0) {
			return fmt.Errorf("%w: %s must be positive and finite but is %v",
				ErrInvalidBound, bound.name, bound.value)
		}
	}
	if s.maxIterations < 0 {
		return fmt.Errorf("%w: iteration limit must not be negative but is %d",
			ErrInvalidBound, s.maxIterations)
	}
	return nil
}

// Solve optimizes the problem. Failing to converge within the
// iteration limit is not an error; see [Solution.Converged].
func (s *Solver[T]) Solve(problem Problem[T]) (Solution, error) {
	if err := s.check(problem); err != nil {
		return Solution{}, err
	}
	var (
		l = len(problem.Items)
		q = newGram(s.kernel, problem.Items, problem.Labels)
		w = newWorkspace(q, problem.Linear, problem.Labels, problem.Alpha,
			s.cp, s.cn, s.eps, s.tau)
	)
	w.logger = s.logger
	iterations, converged := s.optimize(w)
	rho, r := s.strategy.rho(w)
	solution := Solution{
		Alpha:      make([]float64, l),
		Rho:        rho,
		Objective:  w.objective(),
		Cp:         s.cp,
		Cn:         s.cn,
		R:          r,
		Iterations: iterations,
		Converged:  converged,
	}
	for i, original := range w.activeSet {
		solution.Alpha[original] = w.alpha[i]
	}
	s.strategy.normalize(&solution)
	s.logger.V(1).Info("Optimization finished",
		"iterations", iterations,
		"objective", solution.Objective,
		"rho", solution.Rho,
	)
	return solution, nil
}

func (s *Solver[T]) check(problem Problem[T]) error {
	l := len(problem.Items)
	if l == 0 {
		return ErrEmptyProblem
	}
	for _, field := range []struct {
		name   string
		length int
	}{
		{"linear term", len(problem.Linear)},
		{"labels", len(problem.Labels)},
		{"alpha", len(problem.Alpha)},
	} {
		if field.length != l {
			return lengthError(field.name, field.length, l)
		}
	}
	for i, label := range problem.Labels {
		bound := s.cp
		switch label {
		case +1:
		case -1:
			bound = s.cn
		default:
			return fmt.Errorf("%w: item %d has label %d", ErrInvalidLabel, i, label)
		}
		if alpha := problem.Alpha[i]; !(alpha >= 0 && alpha <= bound) {
			return fmt.Errorf("%w: alpha[%d] = %v is outside [0, %v]",
				ErrInfeasibleAlpha, i, alpha, bound)
		}
	}
	return nil
}

func (s *Solver[T]) iterationLimit(l int) int {
	if s.maxIterations > 0 {
		return s.maxIterations
	}
	if l > math.MaxInt32/iterationsPerItem {
		return math.MaxInt32
	}
	return max(minimumIterations, iterationsPerItem*l)
}

// optimize runs the main loop and reports the number
// of updates and whether the tolerance was reached.
func (s *Solver[T]) optimize(w *workspace) (int, bool) {
	var (
		limit      = s.iterationLimit(w.l)
		period     = min(w.l, maximumShrinkPeriod)
		counter    = period + 1
		firstCheck = true
		iterations int
		converged  bool
	)
	for iterations < limit {
		if counter--; counter == 0 {
			counter = period
			if s.shrinking && !firstCheck {
				s.strategy.shrink(w)
			}
			firstCheck = false
		}
		i, j, found := s.strategy.selectWorkingSet(w)
		if !found {
			if w.activeSize == w.l {
				converged = true
				break
			}
			w.reconstructGradient()
			w.activeSize = w.l
			s.logger.V(1).Info("Reconstructed gradient before final check",
				"iterations", iterations)
			if i, j, found = s.strategy.selectWorkingSet(w); !found {
				converged = true
				break
			}
			counter = 1 // Shrink on the next iteration.
		}
		iterations++
		w.update(i, j)
	}
	if w.activeSize < w.l {
		w.reconstructGradient()
		w.activeSize = w.l
	}
	if !converged {
		s.logger.Info("WARNING: reached the iteration limit without converging",
			"iterations", iterations,
			"limit", limit,
		)
	}
	return iterations, converged
}
