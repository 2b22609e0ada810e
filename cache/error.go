package cache

import "fmt"

type constError string

const (
	// ErrInvalidCapacity may be returned from constructors and [New].
	ErrInvalidCapacity = constError("invalid capacity")
	// ErrUnknownKind is returned when a [Kind] or [NormKind] is not recognized.
	ErrUnknownKind = constError("unknown cache kind")
)

func (errStr constError) Error() string { return string(errStr) }

func minCapacityError(what string, capacity int) error {
	return fmt.Errorf(
		"%w: %s must be >=%d but %d was requested",
		ErrInvalidCapacity, what, MinimumCapacity, capacity)
}
