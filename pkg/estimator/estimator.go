// Package estimator owns the pose estimation resource and its lifecycle.
//
// A Backend builds a Resource for a subject-count mode. The Lifecycle
// keeps at most one current Handle around that Resource, swaps it when
// the mode changes, and tags every handle with a generation so results
// from a replaced resource can be recognised and dropped.
package estimator

import (
	"context"

	"github.com/teslashibe/go-creatures/pkg/pose"
	"github.com/teslashibe/go-creatures/pkg/video"
)

// Config selects the estimator variant to build.
type Config struct {
	Mode pose.Mode
}

// Backend constructs estimation resources.
type Backend interface {
	// Create builds a resource for cfg. It may be slow and may fail.
	Create(ctx context.Context, cfg Config) (Resource, error)
}

// Resource is a constructed estimator.
type Resource interface {
	// Estimate returns the poses detected in frame, with keypoints in
	// the frame's native pixel space.
	Estimate(ctx context.Context, frame video.Frame) ([]pose.Pose, error)

	// Dispose releases the resource. Estimate is never called afterwards.
	Dispose(ctx context.Context) error
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, cfg Config) (Resource, error)

// Create implements Backend.
func (f BackendFunc) Create(ctx context.Context, cfg Config) (Resource, error) {
	return f(ctx, cfg)
}
