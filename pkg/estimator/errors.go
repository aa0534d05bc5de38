package estimator

import (
	"errors"
	"fmt"

	"github.com/teslashibe/go-creatures/pkg/pose"
)

// Sentinel errors for the lifecycle error taxonomy.
var (
	// ErrEstimation is wrapped by every failed estimate call.
	ErrEstimation = errors.New("estimator: estimation failed")

	// ErrConstruction is wrapped when a resource could not be built.
	ErrConstruction = errors.New("estimator: construction failed")

	// ErrStaleResult is returned for calls on a handle that has been superseded.
	ErrStaleResult = errors.New("estimator: stale result")

	// ErrClosed is returned after the lifecycle has been closed.
	ErrClosed = errors.New("estimator: lifecycle closed")
)

// ConstructionError reports a failed Create for a mode.
type ConstructionError struct {
	Mode pose.Mode
	Err  error
}

// Error implements the error interface.
func (e *ConstructionError) Error() string {
	return fmt.Sprintf("estimator: construct %s-pose estimator: %v", e.Mode, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// Is matches ErrConstruction.
func (e *ConstructionError) Is(target error) bool {
	return target == ErrConstruction
}

// EstimationError reports a failed estimate call on one generation.
type EstimationError struct {
	Generation uint64
	Err        error
}

// Error implements the error interface.
func (e *EstimationError) Error() string {
	return fmt.Sprintf("estimator [gen %d]: estimate: %v", e.Generation, e.Err)
}

// Unwrap returns the underlying error.
func (e *EstimationError) Unwrap() error {
	return e.Err
}

// Is matches ErrEstimation.
func (e *EstimationError) Is(target error) bool {
	return target == ErrEstimation
}
