package smo_test

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/go-logr/logr/funcr"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	smo "github.com/djdv/go-smo"
	"github.com/djdv/go-smo/cache"
	"github.com/djdv/go-smo/kernel"
)

// Fixed RNG seed for reproducibility.
// Change to test variance between runs.
const rngSeed = 1

func TestSolver(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		fn   func(*testing.T)
	}{
		{"textbook", textbook},
		{"feasible", feasible},
		{"optimal", optimal},
		{"shrinking", shrinking},
		{"iteration limit", iterationLimit},
		{"validation", validation},
		{"kind text", kindText},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			test.fn(t)
		})
	}
}

func textbook(t *testing.T) {
	var (
		items = []kernel.Vector{
			kernel.NewVector(0, -1),
			kernel.NewVector(1, +1),
		}
		labels = []int8{-1, +1}
		model  = mustTrainCSvc(t, kernel.NewLinear(), items, labels)
		got    = model.Solution
	)
	require.True(t, got.Converged)
	assert.Equal(t, []float64{0.5, 0.5}, got.Alpha)
	assert.InDelta(t, 0, got.Rho, 1e-12)
	assert.InDelta(t, -0.5, got.Objective, 1e-12)
	assert.Equal(t, 1.0, got.R)
	assert.Equal(t, []float64{-0.5, 0.5}, model.Coefficients)
	for _, query := range []struct {
		x    float64
		want float64
	}{
		{-1, -1}, {1, 1}, {0, 0}, {3, 3},
	} {
		x := kernel.NewVector(100, query.x)
		assert.InDelta(t, query.want, model.Decision(x), 1e-12, "decision at %v", query.x)
	}
	assert.Equal(t, int8(+1), model.Predict(kernel.NewVector(101, 2)))
	assert.Equal(t, int8(-1), model.Predict(kernel.NewVector(102, -2)))
}

func feasible(t *testing.T) {
	const cp, cn = 1, 2
	var (
		items, labels = overlappingBlobs(60, 3)
		model         = mustTrainCSvc(t, kernel.NewLinear(), items, labels,
			smo.WithBounds(cp, cn))
		solution = model.Solution
	)
	require.True(t, solution.Converged)
	checkBox(t, solution, labels)
	var balance float64
	for i, alpha := range solution.Alpha {
		balance += float64(labels[i]) * alpha
	}
	assert.InDelta(t, 0, balance, 1e-9, "Σ y_i·α_i moved off its starting value")
	assert.Equal(t, float64(cp), solution.Cp)
	assert.Equal(t, float64(cn), solution.Cn)
}

func optimal(t *testing.T) {
	const eps = 1e-3
	var (
		items, labels = overlappingBlobs(50, 2)
		k             = kernel.NewGaussian(0.5)
		model         = mustTrainCSvc(t, k, items, labels, smo.WithTolerance(eps))
		solution      = model.Solution
		upMax         = math.Inf(-1)
		lowMin        = math.Inf(1)
	)
	require.True(t, solution.Converged)
	for i := range items {
		gradient := -1.0
		for j := range items {
			q := float64(labels[i]) * float64(labels[j]) * k.InnerProduct(items[i], items[j])
			gradient += q * solution.Alpha[j]
		}
		violation := -float64(labels[i]) * gradient
		var (
			alpha  = solution.Alpha[i]
			bound  = solution.Cp
			canUp  bool
			canLow bool
		)
		if labels[i] < 0 {
			bound = solution.Cn
		}
		if labels[i] > 0 {
			canUp, canLow = alpha < bound, alpha > 0
		} else {
			canUp, canLow = alpha > 0, alpha < bound
		}
		if canUp {
			upMax = max(upMax, violation)
		}
		if canLow {
			lowMin = min(lowMin, violation)
		}
	}
	assert.Less(t, upMax-lowMin, eps+1e-9, "maximal violation exceeds the tolerance")
}

func shrinking(t *testing.T) {
	items, labels := overlappingBlobs(80, 2)
	objectives := make(map[bool]float64, 2)
	for _, enabled := range []bool{true, false} {
		model := mustTrainCSvc(t, kernel.NewGaussian(0.5), items, labels,
			smo.WithShrinking(enabled))
		require.True(t, model.Solution.Converged)
		objectives[enabled] = model.Solution.Objective
	}
	assert.InEpsilon(t, objectives[false], objectives[true], 1e-3)
}

func iterationLimit(t *testing.T) {
	var (
		messages      []string
		logger        = funcr.New(func(_, args string) { messages = append(messages, args) }, funcr.Options{})
		items, labels = overlappingBlobs(40, 2)
		model         = mustTrainCSvc(t, kernel.NewLinear(), items, labels,
			smo.WithMaxIterations(1), smo.WithLogger(logger))
		solution = model.Solution
	)
	assert.False(t, solution.Converged)
	assert.Equal(t, 1, solution.Iterations)
	checkBox(t, solution, labels)
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "iteration limit")
	assert.Contains(t, messages[0], `"limit"=1`)
}

func validation(t *testing.T) {
	linear := kernel.NewLinear()
	_, err := smo.New[kernel.Vector](smo.Kind("epsilon-svr"), linear)
	require.ErrorIs(t, err, smo.ErrUnknownKind)
	for _, option := range []smo.Option{
		smo.WithBounds(0, 1),
		smo.WithBounds(1, math.Inf(1)),
		smo.WithBounds(math.NaN(), 1),
		smo.WithTolerance(-1),
		smo.WithTau(0),
		smo.WithMaxIterations(-1),
	} {
		_, err := smo.New[kernel.Vector](smo.CSvm, linear, option)
		require.ErrorIs(t, err, smo.ErrInvalidBound)
	}

	solver, err := smo.New[kernel.Vector](smo.CSvm, linear)
	require.NoError(t, err)
	items := []kernel.Vector{kernel.NewVector(0, 1), kernel.NewVector(1, 2)}
	for _, test := range []struct {
		name    string
		problem smo.Problem[kernel.Vector]
		want    error
	}{
		{"empty", smo.Problem[kernel.Vector]{}, smo.ErrEmptyProblem},
		{"short linear term", smo.Problem[kernel.Vector]{
			Items: items, Linear: []float64{-1},
			Labels: []int8{1, -1}, Alpha: []float64{0, 0},
		}, smo.ErrLengthMismatch},
		{"short alpha", smo.Problem[kernel.Vector]{
			Items: items, Linear: []float64{-1, -1},
			Labels: []int8{1, -1}, Alpha: []float64{0},
		}, smo.ErrLengthMismatch},
		{"zero label", smo.Problem[kernel.Vector]{
			Items: items, Linear: []float64{-1, -1},
			Labels: []int8{1, 0}, Alpha: []float64{0, 0},
		}, smo.ErrInvalidLabel},
		{"alpha above bound", smo.Problem[kernel.Vector]{
			Items: items, Linear: []float64{-1, -1},
			Labels: []int8{1, -1}, Alpha: []float64{0, 1.5},
		}, smo.ErrInfeasibleAlpha},
		{"negative alpha", smo.Problem[kernel.Vector]{
			Items: items, Linear: []float64{-1, -1},
			Labels: []int8{1, -1}, Alpha: []float64{-0.1, 0},
		}, smo.ErrInfeasibleAlpha},
	} {
		_, err := solver.Solve(test.problem)
		require.ErrorIs(t, err, test.want, test.name)
	}
}

func kindText(t *testing.T) {
	var kind smo.Kind
	require.NoError(t, kind.UnmarshalText([]byte("nu-svm")))
	assert.Equal(t, smo.NuSvm, kind)
	require.ErrorIs(t, kind.UnmarshalText([]byte("one-class")), smo.ErrUnknownKind)
	assert.Equal(t, smo.NuSvm, kind, "failed unmarshal must not modify the kind")
}

// TestCacheIndependence trains the same problem without a cache
// and through every cache kind at several capacities.
// Every solution must be bit-identical to the uncached one.
func TestCacheIndependence(t *testing.T) {
	t.Parallel()
	items, labels := overlappingBlobs(48, 3)
	for _, kernelName := range []string{"linear", "gaussian"} {
		t.Run(kernelName, func(t *testing.T) {
			t.Parallel()
			newKernel := func(options ...kernel.Option) kernel.Kernel[kernel.Vector] {
				if kernelName == "linear" {
					return kernel.NewLinear(options...)
				}
				return kernel.NewGaussian(0.25, options...)
			}
			want := mustTrainCSvc(t, newKernel(), items, labels).Solution
			again := mustTrainCSvc(t, newKernel(), items, labels).Solution
			if diff := cmp.Diff(want, again); diff != "" {
				t.Fatalf("repeated run differs (-want +got):\n%s", diff)
			}
			for _, config := range independenceConfigs() {
				name := fmt.Sprintf("%s/%d/%dx%d",
					config.Kind, config.Capacity, config.Rows, config.Columns)
				pairs, err := cache.New(config)
				require.NoError(t, err, name)
				norms, err := cache.NewSquaredNorm(cache.NormConfig{
					Kind: cache.NormKindLRU, Capacity: 7,
				})
				require.NoError(t, err, name)
				for _, options := range [][]kernel.Option{
					{kernel.WithCache(pairs)},
					{kernel.WithCache(pairs), kernel.WithSquaredNormCache(norms)},
				} {
					pairs.Flush()
					norms.Flush()
					got := mustTrainCSvc(t, newKernel(options...), items, labels).Solution
					if diff := cmp.Diff(want, got); diff != "" {
						t.Fatalf("%s: solution differs from uncached run (-want +got):\n%s",
							name, diff)
					}
				}
			}
		})
	}
}

func independenceConfigs() []cache.Config {
	var configs []cache.Config
	for _, capacity := range []int{1, 5, 64} {
		configs = append(configs,
			cache.Config{Kind: cache.KindFixedIndex, Capacity: capacity},
			cache.Config{Kind: cache.KindDynamicIndex, Capacity: capacity},
			cache.Config{Kind: cache.KindFixedSizeRow, Capacity: capacity},
			cache.Config{Kind: cache.KindStripe, Rows: capacity, Columns: 2 * capacity},
		)
	}
	return configs
}

func TestNuSvc(t *testing.T) {
	t.Parallel()
	const nu = 0.5
	var (
		items, labels = separatedBlobs(40, 2)
		model, err    = smo.TrainNuSvc(kernel.NewLinear(), items, labels, nu)
	)
	require.NoError(t, err)
	solution := model.Solution
	require.True(t, solution.Converged)
	assert.Equal(t, 1/solution.R, solution.Cp)
	assert.Equal(t, solution.Cp, solution.Cn)
	var positive, negative float64
	for i, alpha := range solution.Alpha {
		assert.GreaterOrEqual(t, alpha, 0.0)
		assert.LessOrEqual(t, alpha, solution.Cp*(1+1e-12))
		if labels[i] > 0 {
			positive += alpha
		} else {
			negative += alpha
		}
	}
	half := nu * float64(len(items)) / 2
	assert.InDelta(t, half, positive*solution.R, 1e-9)
	assert.InDelta(t, half, negative*solution.R, 1e-9)
	assert.GreaterOrEqual(t, accuracy(model, items, labels), 0.95)

	t.Run("infeasible", func(t *testing.T) {
		t.Parallel()
		var (
			items  = items[:6]
			labels = []int8{+1, -1, -1, -1, -1, -1}
		)
		for _, nu := range []float64{0, -0.5, 1.5, 0.9} {
			_, err := smo.TrainNuSvc(kernel.NewLinear(), items, labels, nu)
			require.ErrorIs(t, err, smo.ErrInfeasibleNu, "ν = %v", nu)
		}
		_, err := smo.TrainNuSvc(kernel.NewLinear(), items, []int8{1, 2, 1, 1, 1, 1}, 0.1)
		require.ErrorIs(t, err, smo.ErrInvalidLabel)
	})
}

// TestShrinkingLargeProblems uses problems that outlast several
// shrinking periods, so the active set is shrunk, restored and the
// gradient reconstructed before the solver stops.
func TestShrinkingLargeProblems(t *testing.T) {
	t.Parallel()
	t.Run("nu-svc", func(t *testing.T) {
		t.Parallel()
		const nu = 0.4
		var (
			items, labels = overlappingBlobs(300, 3)
			train         = func(k kernel.Kernel[kernel.Vector], options ...smo.Option) smo.Solution {
				t.Helper()
				model, err := smo.TrainNuSvc(k, items, labels, nu, options...)
				require.NoError(t, err)
				require.True(t, model.Solution.Converged)
				return model.Solution
			}
			want     = train(kernel.NewLinear())
			unshrunk = train(kernel.NewLinear(), smo.WithShrinking(false))
		)
		assert.InEpsilon(t, unshrunk.Objective, want.Objective, 1e-6)
		for _, config := range []cache.Config{
			{Kind: cache.KindFixedIndex, Capacity: 7},
			{Kind: cache.KindDynamicIndex, Capacity: 13},
			{Kind: cache.KindFixedSizeRow, Capacity: 50},
			{Kind: cache.KindStripe, Rows: 3, Columns: 40},
		} {
			pairs, err := cache.New(config)
			require.NoError(t, err)
			got := train(kernel.NewLinear(kernel.WithCache(pairs)))
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("%s: solution differs from uncached run (-want +got):\n%s",
					config.Kind, diff)
			}
		}
	})
	t.Run("c-svc", func(t *testing.T) {
		t.Parallel()
		const eps = 1e-5
		var (
			items, labels = overlappingBlobs(400, 3)
			train         = func(k kernel.Kernel[kernel.Vector], options ...smo.Option) smo.Solution {
				t.Helper()
				options = append(options, smo.WithBounds(10, 10), smo.WithTolerance(eps))
				solution := mustTrainCSvc(t, k, items, labels, options...).Solution
				require.True(t, solution.Converged)
				checkBox(t, solution, labels)
				return solution
			}
			want     = train(kernel.NewGaussian(0.5))
			unshrunk = train(kernel.NewGaussian(0.5), smo.WithShrinking(false))
		)
		assert.InEpsilon(t, unshrunk.Objective, want.Objective, 1e-4)
		pairs, err := cache.NewDynamicIndex(13)
		require.NoError(t, err)
		got := train(kernel.NewGaussian(0.5, kernel.WithCache(pairs)))
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("solution differs from uncached run (-want +got):\n%s", diff)
		}
	})
}

func TestOneClass(t *testing.T) {
	t.Parallel()
	const nu = 0.2
	var (
		rng   = newReproducibleRNG()
		items = make([]kernel.Vector, 30)
	)
	for i := range items {
		items[i] = kernel.NewVector(int64(i), rng.NormFloat64(), rng.NormFloat64())
	}
	model, err := smo.TrainOneClass(kernel.NewGaussian(0.5), items, nu)
	require.NoError(t, err)
	solution := model.Solution
	require.True(t, solution.Converged)
	var sum float64
	for _, alpha := range solution.Alpha {
		assert.GreaterOrEqual(t, alpha, 0.0)
		assert.LessOrEqual(t, alpha, 1.0)
		sum += alpha
	}
	assert.InDelta(t, nu*float64(len(items)), sum, 1e-9)
	assert.GreaterOrEqual(t, len(model.SupportVectors), int(nu*float64(len(items))))

	// At the optimum, items with α = 0 lie inside the boundary,
	// items at the bound lie outside, free items lie on it.
	const tolerance = smo.DefaultTolerance + 1e-9
	var (
		inside     kernel.Vector
		insideBest = math.Inf(-1)
	)
	for i, item := range items {
		var (
			query    = kernel.NewVector(int64(len(items)+i), item.Values...)
			decision = model.Decision(query)
		)
		switch alpha := solution.Alpha[i]; alpha {
		case 0:
			assert.Greater(t, decision, -tolerance, "item %d with α = 0", i)
			if decision > insideBest {
				inside, insideBest = query, decision
			}
		case 1:
			assert.Less(t, decision, tolerance, "item %d at the bound", i)
		default:
			assert.InDelta(t, 0, decision, tolerance, "free item %d with α = %v", i, alpha)
		}
	}
	require.False(t, math.IsInf(insideBest, -1), "expected an item with α = 0")
	assert.Equal(t, int8(+1), model.Predict(inside))
	assert.Equal(t, int8(-1), model.Predict(kernel.NewVector(1000, 10, 10)))

	_, err = smo.TrainOneClass(kernel.NewGaussian(0.5), items, 0)
	require.ErrorIs(t, err, smo.ErrInfeasibleNu)
	_, err = smo.TrainOneClass(kernel.NewGaussian(0.5), nil, nu)
	require.ErrorIs(t, err, smo.ErrEmptyProblem)
}

func mustTrainCSvc(tb testing.TB, k kernel.Kernel[kernel.Vector],
	items []kernel.Vector, labels []int8, options ...smo.Option,
) *smo.Model[kernel.Vector] {
	tb.Helper()
	model, err := smo.TrainCSvc(k, items, labels, options...)
	if err != nil {
		tb.Fatal(err)
	}
	return model
}

func checkBox(tb testing.TB, solution smo.Solution, labels []int8) {
	tb.Helper()
	for i, alpha := range solution.Alpha {
		bound := solution.Cp
		if labels[i] < 0 {
			bound = solution.Cn
		}
		if alpha < 0 || alpha > bound {
			tb.Fatalf(
				"alpha out of its box"+
					"\n\tindex: %d"+
					"\n\tgot: %v"+
					"\n\twant: [0, %v]",
				i, alpha, bound,
			)
		}
	}
}

func accuracy(model *smo.Model[kernel.Vector], items []kernel.Vector, labels []int8) float64 {
	var correct int
	for i, item := range items {
		// Query with a fresh id so caches are not consulted for training pairs.
		query := kernel.NewVector(int64(len(items)+i), item.Values...)
		if model.Predict(query) == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(items))
}

// separatedBlobs returns n items in two Gaussian clusters
// far enough apart to be linearly separable.
func separatedBlobs(n, dims int) ([]kernel.Vector, []int8) {
	return blobs(n, dims, 4, 0.5)
}

// overlappingBlobs returns n items in two clusters that
// overlap, so some coefficients end at their upper bound.
func overlappingBlobs(n, dims int) ([]kernel.Vector, []int8) {
	return blobs(n, dims, 1, 1)
}

func blobs(n, dims int, distance, deviation float64) ([]kernel.Vector, []int8) {
	var (
		rng    = newReproducibleRNG()
		items  = make([]kernel.Vector, n)
		labels = make([]int8, n)
	)
	for i := range items {
		label := int8(+1)
		if i%2 == 1 {
			label = -1
		}
		values := make([]float64, dims)
		for d := range values {
			values[d] = float64(label)*distance/2 + deviation*rng.NormFloat64()
		}
		items[i] = kernel.NewVector(int64(i), values...)
		labels[i] = label
	}
	return items, labels
}

func newReproducibleRNG() *rand.Rand {
	return rand.New(rand.NewSource(rngSeed))
}
