package estimator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/teslashibe/go-creatures/pkg/pose"
	"github.com/teslashibe/go-creatures/pkg/video"
)

func TestHandleEstimateWrapsFailure(t *testing.T) {
	boom := errors.New("boom")
	m := &Mock{
		EstimateFunc: func(ctx context.Context, cfg Config, frame video.Frame) ([]pose.Pose, error) {
			return nil, boom
		},
	}
	res, _ := m.Create(context.Background(), Config{Mode: pose.SinglePose})
	h := newHandle(res, 3, pose.SinglePose)

	_, err := h.Estimate(context.Background(), video.Frame{})
	if !errors.Is(err, ErrEstimation) {
		t.Errorf("errors.Is(err, ErrEstimation) = false for %v", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("errors.Is(err, boom) = false for %v", err)
	}
	var ee *EstimationError
	if !errors.As(err, &ee) || ee.Generation != 3 {
		t.Errorf("EstimationError generation = %+v, want 3", ee)
	}
}

func TestHandleRetireWaitsForInflight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	m := &Mock{
		EstimateFunc: func(ctx context.Context, cfg Config, frame video.Frame) ([]pose.Pose, error) {
			close(started)
			<-release
			return nil, nil
		},
	}
	res, _ := m.Create(context.Background(), Config{})
	h := newHandle(res, 1, pose.SinglePose)

	go h.Estimate(context.Background(), video.Frame{})
	<-started

	retired := make(chan error, 1)
	go func() { retired <- h.retire(context.Background()) }()

	select {
	case <-retired:
		t.Fatal("retire returned while an estimate was in flight")
	case <-time.After(20 * time.Millisecond):
	}
	if n := m.CallCount("Dispose"); n != 0 {
		t.Fatalf("Dispose calls = %d before estimate returned", n)
	}

	close(release)
	select {
	case err := <-retired:
		if err != nil {
			t.Fatalf("retire: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("retire did not return")
	}
	if n := m.CallCount("Dispose"); n != 1 {
		t.Errorf("Dispose calls = %d, want 1", n)
	}
	if h.Ready() {
		t.Error("retired handle reports ready")
	}

	_, err := h.Estimate(context.Background(), video.Frame{})
	if !errors.Is(err, ErrStaleResult) {
		t.Errorf("Estimate after retire = %v, want ErrStaleResult", err)
	}
	if n := m.CallCount("Estimate"); n != 1 {
		t.Errorf("Estimate reached resource %d times, want 1", n)
	}

	// A second retire is a no-op.
	if err := h.retire(context.Background()); err != nil {
		t.Errorf("second retire: %v", err)
	}
	if n := m.CallCount("Dispose"); n != 1 {
		t.Errorf("Dispose calls after second retire = %d, want 1", n)
	}
}
