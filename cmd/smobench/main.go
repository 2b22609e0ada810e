// Command smobench trains a classifier on synthetic data
// and reports kernel and cache counters.
//
// With --compare it trains once per pair cache kind and fails
// unless every solution is identical to the uncached one.
//
// Flags may also be set through SMOBENCH_* environment variables,
// e.g. SMOBENCH_POINTS=500.
package main

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	smo "github.com/djdv/go-smo"
	"github.com/djdv/go-smo/cache"
	"github.com/djdv/go-smo/config"
	"github.com/djdv/go-smo/kernel"
	"github.com/djdv/go-smo/metrics"
)

type (
	settings struct {
		configPath string
		kernel     string
		points     int
		dims       int
		seed       int64
		gamma      float64
		compare    bool
		verbose    bool
	}
	run struct {
		kind     cache.Kind
		solution smo.Solution
	}
)

const (
	kernelLinear   = "linear"
	kernelGaussian = "gaussian"
)

var errMismatch = errors.New("solutions differ between cache kinds")

func main() {
	if err := execute(os.Args[1:]); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "smobench:", err)
		}
		os.Exit(1)
	}
}

func execute(arguments []string) error {
	set, err := parseSettings(arguments)
	if err != nil {
		return err
	}
	zapLogger, err := newZap(set.verbose)
	if err != nil {
		return err
	}
	defer zapLogger.Sync() //nolint:errcheck
	logger := zapr.NewLogger(zapLogger)

	file := config.Default()
	if set.configPath != "" {
		if file, err = config.Load(set.configPath); err != nil {
			return err
		}
	}
	var (
		items, labels = blobs(set.points, set.dims, set.seed)
		kinds         = []cache.Kind{file.Cache.Kind}
		collector     = metrics.NewCollector("smobench")
		runs          []run
	)
	if set.compare {
		kinds = cache.Kinds()
	}
	for _, kind := range kinds {
		solution, err := trainOnce(logger, set, file, kind, items, labels, collector)
		if err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}
		runs = append(runs, run{kind: kind, solution: solution})
	}
	if err := report(logger, collector); err != nil {
		return err
	}
	if !set.compare {
		return nil
	}
	return compare(logger, runs)
}

func parseSettings(arguments []string) (settings, error) {
	flags := pflag.NewFlagSet("smobench", pflag.ContinueOnError)
	flags.Int("points", 200, "number of training points")
	flags.Int("dims", 4, "dimensions per point")
	flags.Int64("seed", 1, "random seed for the synthetic data")
	flags.String("kernel", kernelGaussian, "kernel: linear or gaussian")
	flags.Float64("gamma", 0.25, "width of the gaussian kernel")
	flags.String("config", "", "YAML configuration file")
	flags.Bool("compare", false, "train once per cache kind and compare solutions")
	flags.Bool("verbose", false, "log solver progress")
	if err := flags.Parse(arguments); err != nil {
		return settings{}, err
	}
	v := viper.New()
	v.SetEnvPrefix("SMOBENCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return settings{}, err
	}
	set := settings{
		configPath: v.GetString("config"),
		kernel:     v.GetString("kernel"),
		points:     v.GetInt("points"),
		dims:       v.GetInt("dims"),
		seed:       v.GetInt64("seed"),
		gamma:      v.GetFloat64("gamma"),
		compare:    v.GetBool("compare"),
		verbose:    v.GetBool("verbose"),
	}
	switch {
	case set.points < 2:
		return settings{}, fmt.Errorf("points must be at least 2 but is %d", set.points)
	case set.dims < 1:
		return settings{}, fmt.Errorf("dims must be at least 1 but is %d", set.dims)
	case set.kernel != kernelLinear && set.kernel != kernelGaussian:
		return settings{}, fmt.Errorf("unknown kernel %q", set.kernel)
	case set.kernel == kernelGaussian && !(set.gamma > 0):
		return settings{}, fmt.Errorf("gamma must be positive but is %v", set.gamma)
	}
	return set, nil
}

func newZap(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func trainOnce(logger logr.Logger, set settings, file config.File, kind cache.Kind,
	items []kernel.Vector, labels []int8, collector *metrics.Collector,
) (smo.Solution, error) {
	logger = logger.WithValues("cache", kind)
	pairConfig := file.Cache
	pairConfig.Kind = kind
	if kind == cache.KindStripe && (pairConfig.Rows == 0 || pairConfig.Columns == 0) {
		pairConfig.Rows = max(pairConfig.Capacity/len(items), 1)
		pairConfig.Columns = len(items)
	}
	pairs, err := cache.New(pairConfig)
	if err != nil {
		return smo.Solution{}, err
	}
	norms, err := cache.NewSquaredNorm(file.Norms)
	if err != nil {
		return smo.Solution{}, err
	}
	var options []kernel.Option
	if pairs != nil {
		options = append(options, kernel.WithCache(pairs))
		collector.AddCache(string(kind), pairs)
	}
	if norms != nil {
		options = append(options, kernel.WithSquaredNormCache(norms))
		collector.AddCache(string(kind)+"/norms", norms)
	}
	leaf := kernel.NewLinear(options...)
	collector.AddKernel(string(kind), leaf)
	var k kernel.Kernel[kernel.Vector] = leaf
	if set.kernel == kernelGaussian {
		k = kernel.Gaussian[kernel.Vector]{Base: leaf, Gamma: set.gamma}
	}
	model, err := train(k, items, labels, file.Solver,
		append(file.Solver.Options(), smo.WithLogger(logger))...)
	if err != nil {
		return smo.Solution{}, err
	}
	solution := model.Solution
	logger.Info("Trained",
		"model", file.Solver.Model,
		"iterations", solution.Iterations,
		"converged", solution.Converged,
		"supportVectors", len(model.SupportVectors),
		"objective", solution.Objective,
		"rho", solution.Rho,
		"computations", leaf.Stats().Computations,
	)
	if file.Solver.Model != config.ModelOneClass {
		logger.V(1).Info("Evaluated", "trainingAccuracy", accuracy(model, items, labels))
	}
	return solution, nil
}

func train(k kernel.Kernel[kernel.Vector], items []kernel.Vector, labels []int8,
	solver config.Solver, options ...smo.Option,
) (*smo.Model[kernel.Vector], error) {
	switch solver.Model {
	case config.ModelNuSvc:
		return smo.TrainNuSvc(k, items, labels, solver.Nu, options...)
	case config.ModelOneClass:
		return smo.TrainOneClass(k, items, solver.Nu, options...)
	}
	return smo.TrainCSvc(k, items, labels, options...)
}

func report(logger logr.Logger, collector *metrics.Collector) error {
	registry := prometheus.NewRegistry()
	if err := registry.Register(collector); err != nil {
		return err
	}
	families, err := registry.Gather()
	if err != nil {
		return err
	}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			values := []any{"metric", family.GetName()}
			for _, label := range metric.GetLabel() {
				values = append(values, label.GetName(), label.GetValue())
			}
			values = append(values, "value", metric.GetCounter().GetValue())
			logger.Info("Counter", values...)
		}
	}
	return nil
}

func compare(logger logr.Logger, runs []run) error {
	var (
		baseline  = runs[0]
		identical = true
	)
	for _, other := range runs[1:] {
		same := cmp.Equal(baseline.solution, other.solution)
		logger.Info("Compared solutions",
			"baseline", baseline.kind,
			"cache", other.kind,
			"identical", same,
		)
		identical = identical && same
	}
	if !identical {
		return errMismatch
	}
	return nil
}

// blobs draws two Gaussian clusters centered at ±1 on every axis.
func blobs(points, dims int, seed int64) ([]kernel.Vector, []int8) {
	var (
		rng    = rand.New(rand.NewSource(seed))
		items  = make([]kernel.Vector, points)
		labels = make([]int8, points)
	)
	for i := range items {
		label := int8(+1)
		if rng.Intn(2) == 0 {
			label = -1
		}
		values := make([]float64, dims)
		for d := range values {
			values[d] = float64(label) + rng.NormFloat64()
		}
		items[i] = kernel.NewVector(int64(i), values...)
		labels[i] = label
	}
	return items, labels
}

func accuracy(model *smo.Model[kernel.Vector], items []kernel.Vector, labels []int8) float64 {
	var correct int
	for i, item := range items {
		query := kernel.NewVector(int64(len(items)+i), item.Values...)
		if model.Predict(query) == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(items))
}
