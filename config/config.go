// Package config reads training configuration from YAML.
//
// A file has three sections, each optional:
//
//	solver:
//	  model: c-svc        # c-svc, nu-svc or one-class
//	  cp: 1
//	  cn: 1
//	  nu: 0.5             # nu-svc and one-class only
//	  tolerance: 0.001
//	  shrinking: true
//	  maxIterations: 0    # 0 selects the solver default
//	cache:
//	  kind: dynamic-index # see cache.Kinds
//	  capacity: 1024
//	norms:
//	  kind: lru
//	  capacity: 256
//
// Omitted values keep the ones from [Default].
// Unknown keys are rejected.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	smo "github.com/djdv/go-smo"
	"github.com/djdv/go-smo/cache"
)

type (
	// Model selects a trainer.
	Model string
	// File is the decoded form of a configuration file.
	File struct {
		Solver Solver           `yaml:"solver"`
		Cache  cache.Config     `yaml:"cache"`
		Norms  cache.NormConfig `yaml:"norms"`
	}
	// Solver holds the trainer and solver settings.
	Solver struct {
		Model     Model   `yaml:"model"`
		Cp        float64 `yaml:"cp,omitempty"`
		Cn        float64 `yaml:"cn,omitempty"`
		Nu        float64 `yaml:"nu,omitempty"`
		Tolerance float64 `yaml:"tolerance,omitempty"`
		Tau       float64 `yaml:"tau,omitempty"`
		// Shrinking is a pointer so an omitted key keeps the default.
		Shrinking     *bool `yaml:"shrinking,omitempty"`
		MaxIterations int   `yaml:"maxIterations,omitempty"`
	}
	constError string
)

const (
	ModelCSvc     Model = "c-svc"
	ModelNuSvc    Model = "nu-svc"
	ModelOneClass Model = "one-class"
)

// ErrInvalidConfig wraps every validation failure.
const ErrInvalidConfig = constError("invalid configuration")

func (errStr constError) Error() string { return string(errStr) }

// Default returns the configuration used for omitted values.
func Default() File {
	shrinking := true
	return File{
		Solver: Solver{
			Model:     ModelCSvc,
			Cp:        1,
			Cn:        1,
			Nu:        0.5,
			Tolerance: smo.DefaultTolerance,
			Tau:       smo.DefaultTau,
			Shrinking: &shrinking,
		},
		Cache: cache.Config{Kind: cache.KindDynamicIndex, Capacity: 1024},
		Norms: cache.NormConfig{Kind: cache.NormKindLRU, Capacity: 256},
	}
}

// Load reads and validates the file at path.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	file, err := Decode(bytes.NewReader(data))
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}
	return file, nil
}

// Decode reads a configuration from r over [Default] and validates it.
// An empty document yields the defaults.
func Decode(r io.Reader) (File, error) {
	var (
		file    = Default()
		decoder = yaml.NewDecoder(r)
	)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := file.Validate(); err != nil {
		return File{}, err
	}
	return file, nil
}

func (m *Model) UnmarshalText(text []byte) error {
	model := Model(text)
	switch model {
	case ModelCSvc, ModelNuSvc, ModelOneClass:
		*m = model
		return nil
	}
	return fmt.Errorf("unknown model %q", text)
}

// Validate checks every section.
func (f File) Validate() error {
	if err := f.Solver.Validate(); err != nil {
		return err
	}
	if err := f.Cache.Validate(); err != nil {
		return fmt.Errorf("%w: cache: %w", ErrInvalidConfig, err)
	}
	if err := f.Norms.Validate(); err != nil {
		return fmt.Errorf("%w: norms: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (s Solver) Validate() error {
	switch s.Model {
	case ModelCSvc:
		if !(s.Cp > 0 && s.Cn > 0) {
			return fmt.Errorf("%w: cp and cn must be positive but are %v and %v",
				ErrInvalidConfig, s.Cp, s.Cn)
		}
	case ModelNuSvc, ModelOneClass:
		if !(s.Nu > 0 && s.Nu <= 1) {
			return fmt.Errorf("%w: nu must be in (0, 1] but is %v", ErrInvalidConfig, s.Nu)
		}
	default:
		return fmt.Errorf("%w: unknown model %q", ErrInvalidConfig, s.Model)
	}
	if !(s.Tolerance > 0) {
		return fmt.Errorf("%w: tolerance must be positive but is %v", ErrInvalidConfig, s.Tolerance)
	}
	if s.Tau < 0 {
		return fmt.Errorf("%w: tau must not be negative but is %v", ErrInvalidConfig, s.Tau)
	}
	if s.MaxIterations < 0 {
		return fmt.Errorf("%w: maxIterations must not be negative but is %d",
			ErrInvalidConfig, s.MaxIterations)
	}
	return nil
}

// Options translates the settings into solver options.
// Bounds are only included for [ModelCSvc];
// the other trainers fix them.
func (s Solver) Options() []smo.Option {
	options := []smo.Option{
		smo.WithTolerance(s.Tolerance),
		smo.WithMaxIterations(s.MaxIterations),
	}
	if s.Model == ModelCSvc {
		options = append(options, smo.WithBounds(s.Cp, s.Cn))
	}
	if s.Tau > 0 {
		options = append(options, smo.WithTau(s.Tau))
	}
	if s.Shrinking != nil {
		options = append(options, smo.WithShrinking(*s.Shrinking))
	}
	return options
}
