package scego

import (
	"errors"
	"fmt"

	"github.com/hupe1980/scego/internal/alias"
)

var (
	// ErrNoEdges is returned when the edge list is empty.
	ErrNoEdges = errors.New("edge list is empty")

	// ErrNotEnoughNodes is returned when the graph has fewer than two nodes.
	ErrNotEnoughNodes = errors.New("graph must have at least two nodes")
)

// ErrLengthMismatch indicates that one of the parallel input arrays does not
// match the length of the edge endpoint arrays.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrLengthMismatch struct {
	Name     string
	Expected int
	Actual   int
	cause    error
}

func (e *ErrLengthMismatch) Error() string {
	return fmt.Sprintf("length mismatch: %s has %d entries, expected %d", e.Name, e.Actual, e.Expected)
}

func (e *ErrLengthMismatch) Unwrap() error { return e.cause }

// ErrInvalidParameter indicates a parameter outside its valid range.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidParameter struct {
	Name   string
	Reason string
	cause  error
}

func (e *ErrInvalidParameter) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Name, e.Reason)
}

func (e *ErrInvalidParameter) Unwrap() error { return e.cause }

// ErrFrameOutOfRange indicates a frame index outside [0, Frames).
type ErrFrameOutOfRange struct {
	Frame  int
	Frames int
}

func (e *ErrFrameOutOfRange) Error() string {
	return fmt.Sprintf("frame %d out of range: result has %d frames", e.Frame, e.Frames)
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Sampler construction failures are caused by caller-supplied weights.
	if errors.Is(err, alias.ErrZeroMass) {
		return &ErrInvalidParameter{Name: "weights", Reason: "total weight mass must be positive", cause: err}
	}
	if errors.Is(err, alias.ErrBadWeight) {
		return &ErrInvalidParameter{Name: "weights", Reason: "weights must be finite and non-negative", cause: err}
	}

	return err
}
