package estimator

import (
	"context"
	"fmt"
	"sync"

	"github.com/teslashibe/go-creatures/pkg/pose"
	"github.com/teslashibe/go-creatures/pkg/video"
)

// Handle wraps one constructed Resource with its generation.
// Only the Lifecycle creates and retires handles; the scheduler reads
// them.
type Handle struct {
	resource   Resource
	generation uint64
	mode       pose.Mode

	mu       sync.Mutex
	retired  bool
	inflight sync.WaitGroup
}

func newHandle(res Resource, generation uint64, mode pose.Mode) *Handle {
	return &Handle{
		resource:   res,
		generation: generation,
		mode:       mode,
	}
}

// Generation returns the construction epoch of this handle.
func (h *Handle) Generation() uint64 {
	return h.generation
}

// Mode returns the mode the resource was built for.
func (h *Handle) Mode() pose.Mode {
	return h.mode
}

// Ready reports whether the handle still accepts estimate calls.
func (h *Handle) Ready() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.retired
}

// Estimate runs the resource on frame. Once the handle is retired it
// returns ErrStaleResult without touching the resource.
func (h *Handle) Estimate(ctx context.Context, frame video.Frame) ([]pose.Pose, error) {
	h.mu.Lock()
	if h.retired {
		h.mu.Unlock()
		return nil, fmt.Errorf("%w: generation %d retired", ErrStaleResult, h.generation)
	}
	h.inflight.Add(1)
	h.mu.Unlock()
	defer h.inflight.Done()

	poses, err := h.resource.Estimate(ctx, frame)
	if err != nil {
		return nil, &EstimationError{Generation: h.generation, Err: err}
	}
	return poses, nil
}

// retire stops new estimate calls, lets the in-flight ones finish and
// then disposes the resource.
func (h *Handle) retire(ctx context.Context) error {
	h.mu.Lock()
	if h.retired {
		h.mu.Unlock()
		return nil
	}
	h.retired = true
	h.mu.Unlock()

	h.inflight.Wait()
	return h.resource.Dispose(ctx)
}
