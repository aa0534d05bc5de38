package estimator

import (
	"context"
	"sync"
	"time"

	"github.com/teslashibe/go-creatures/pkg/pose"
	"github.com/teslashibe/go-creatures/pkg/video"
)

// Mock implements Backend for testing. Resources it creates delegate
// to EstimateFunc and DisposeFunc.
type Mock struct {
	// CreateFunc is called when Create is invoked. Nil succeeds.
	CreateFunc func(ctx context.Context, cfg Config) error

	// EstimateFunc is called when a created resource estimates. Nil
	// returns no poses.
	EstimateFunc func(ctx context.Context, cfg Config, frame video.Frame) ([]pose.Pose, error)

	// DisposeFunc is called when a created resource is disposed.
	DisposeFunc func(ctx context.Context, cfg Config) error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation.
type MockCall struct {
	Method string
	Mode   pose.Mode
	Time   time.Time
}

// NewMock creates a mock backend whose resources return poses.
func NewMock(poses ...pose.Pose) *Mock {
	return &Mock{
		EstimateFunc: func(ctx context.Context, cfg Config, frame video.Frame) ([]pose.Pose, error) {
			return poses, nil
		},
	}
}

// Create implements Backend.
func (m *Mock) Create(ctx context.Context, cfg Config) (Resource, error) {
	m.record("Create", cfg.Mode)
	if m.CreateFunc != nil {
		if err := m.CreateFunc(ctx, cfg); err != nil {
			return nil, err
		}
	}
	return &mockResource{mock: m, cfg: cfg}, nil
}

// Calls returns all recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of calls to method.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Reset clears recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func (m *Mock) record(method string, mode pose.Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: method, Mode: mode, Time: time.Now()})
}

type mockResource struct {
	mock *Mock
	cfg  Config
}

func (r *mockResource) Estimate(ctx context.Context, frame video.Frame) ([]pose.Pose, error) {
	r.mock.record("Estimate", r.cfg.Mode)
	if r.mock.EstimateFunc != nil {
		return r.mock.EstimateFunc(ctx, r.cfg, frame)
	}
	return nil, nil
}

func (r *mockResource) Dispose(ctx context.Context) error {
	r.mock.record("Dispose", r.cfg.Mode)
	if r.mock.DisposeFunc != nil {
		return r.mock.DisposeFunc(ctx, r.cfg)
	}
	return nil
}
