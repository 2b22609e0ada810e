package smo

import "fmt"

type constError string

const (
	// ErrEmptyProblem is returned when a problem has no items.
	ErrEmptyProblem = constError("empty problem")
	// ErrLengthMismatch is returned when per-item slices differ in length.
	ErrLengthMismatch = constError("length mismatch")
	// ErrInvalidLabel is returned for labels other than +1 and -1.
	ErrInvalidLabel = constError("invalid label")
	// ErrInvalidBound is returned for non-positive box constraints
	// or tolerances.
	ErrInvalidBound = constError("invalid bound")
	// ErrInfeasibleAlpha is returned when an initial coefficient
	// lies outside [0, C_i].
	ErrInfeasibleAlpha = constError("infeasible initial alpha")
	// ErrInfeasibleNu is returned when ν cannot be met by the class sizes.
	ErrInfeasibleNu = constError("infeasible nu")
	// ErrUnknownKind is returned when a [Kind] is not recognized.
	ErrUnknownKind = constError("unknown solver kind")
)

func (errStr constError) Error() string { return string(errStr) }

func lengthError(name string, got, want int) error {
	return fmt.Errorf(
		"%w: %s has %d entries but there are %d items",
		ErrLengthMismatch, name, got, want)
}
