package octree

import (
	"fmt"

	"github.com/pkg/errors"
)

// InvalidResolutionError is returned when a resolution is not a power of two or is larger
// than what the grid, sequence or configuration allows.
type InvalidResolutionError struct {
	Resolution int
	Limit      int
	Reason     string
}

func (e *InvalidResolutionError) Error() string {
	if e.Limit > 0 {
		return fmt.Sprintf("invalid resolution %d: %s (limit %d)", e.Resolution, e.Reason, e.Limit)
	}
	return fmt.Sprintf("invalid resolution %d: %s", e.Resolution, e.Reason)
}

func newNotPowerOfTwoError(resolution int) error {
	return &InvalidResolutionError{Resolution: resolution, Reason: "not a power of two"}
}

// CheckResolution returns an InvalidResolutionError when resolution is not a power of two or
// exceeds limit. A limit of 0 disables the upper bound.
func CheckResolution(resolution, limit int) error {
	if !IsPowerOfTwo(resolution) {
		return newNotPowerOfTwoError(resolution)
	}
	if limit > 0 && resolution > limit {
		return &InvalidResolutionError{Resolution: resolution, Limit: limit, Reason: "exceeds maximum"}
	}
	return nil
}

// SequenceAlignmentError is returned when the number of mixed tokens in a layer does not match
// the number of tokens that should hang off them. It always means a corrupted or hand-built
// sequence.
type SequenceAlignmentError struct {
	Stage    string
	Sample   int
	Expected int
	Actual   int
}

func (e *SequenceAlignmentError) Error() string {
	return fmt.Sprintf("sequence alignment mismatch in %s (sample %d): expected %d, got %d",
		e.Stage, e.Sample, e.Expected, e.Actual)
}

// IsInvalidResolution reports whether err is or wraps an InvalidResolutionError.
func IsInvalidResolution(err error) bool {
	var target *InvalidResolutionError
	return errors.As(err, &target)
}

// IsSequenceAlignment reports whether err is or wraps a SequenceAlignmentError.
func IsSequenceAlignment(err error) bool {
	var target *SequenceAlignmentError
	return errors.As(err, &target)
}
