package estimator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-creatures/internal/log"
	"github.com/teslashibe/go-creatures/pkg/pose"
)

// State is the lifecycle state.
type State int

const (
	StateIdle State = iota
	StateCreating
	StateReady
	StateDisposing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCreating:
		return "creating"
	case StateReady:
		return "ready"
	case StateDisposing:
		return "disposing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is a snapshot of the lifecycle for display.
type Status struct {
	State         State     `json:"state"`
	Mode          pose.Mode `json:"mode"`           // Mode of the current handle
	RequestedMode pose.Mode `json:"requested_mode"` // Latest requested mode
	Generation    uint64    `json:"generation"`
	Transitioning bool      `json:"transitioning"`
	Message       string    `json:"message"`
	Error         string    `json:"error,omitempty"`
	Seq           uint64    `json:"seq"` // Increases with every change notification
}

// LifecycleStats counts lifecycle work.
type LifecycleStats struct {
	Created    uint64 `json:"created"`
	Superseded uint64 `json:"superseded"`
	Disposed   uint64 `json:"disposed"`
	Failed     uint64 `json:"failed"`
}

// Lifecycle owns the current estimation handle.
//
// Mode requests made while a transition is running coalesce: only the
// latest requested mode is built. The previous handle is disposed only
// after every estimate already dispatched on it has returned.
type Lifecycle struct {
	backend Backend
	ctx     context.Context
	logger  *slog.Logger

	mu            sync.Mutex
	state         State
	current       *Handle
	generation    uint64
	requested     pose.Mode
	hasRequest    bool
	transitioning bool
	idle          chan struct{}
	lastErr       error
	closed        bool
	stats         LifecycleStats
	seq           uint64

	notifyMu sync.Mutex // serializes onChange calls
	onChange func(Status)
}

// NewLifecycle creates an idle lifecycle around backend. ctx bounds
// construction and disposal calls.
func NewLifecycle(ctx context.Context, backend Backend) *Lifecycle {
	idle := make(chan struct{})
	close(idle)
	return &Lifecycle{
		backend: backend,
		ctx:     ctx,
		logger:  log.Component("estimator"),
		idle:    idle,
	}
}

// OnChange registers a callback invoked after every state change.
// Calls are made outside the lifecycle lock, one at a time, in the order
// the changes happened. The callback may read the lifecycle (Status,
// Current) but must not call RequestMode, Retry or Close.
func (l *Lifecycle) OnChange(fn func(Status)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = fn
}

// RequestMode asks for an estimator configured for mode. It returns
// immediately; construction happens in the background.
func (l *Lifecycle) RequestMode(mode pose.Mode) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}

	// Already serving this mode and nothing else pending.
	if !l.transitioning && l.state == StateReady && l.current != nil && l.current.Mode() == mode {
		l.requested = mode
		l.mu.Unlock()
		return nil
	}

	l.requested = mode
	l.hasRequest = true

	if l.transitioning {
		l.logger.Debug("mode request coalesced", "mode", mode, "state", l.state)
		l.mu.Unlock()
		l.notify()
		return nil
	}

	l.transitioning = true
	l.idle = make(chan struct{})
	l.mu.Unlock()

	go l.transition(uuid.NewString())
	return nil
}

// Retry rebuilds the last requested mode after a construction failure.
// It is a no-op while a transition is running or a handle is ready.
func (l *Lifecycle) Retry() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	if l.transitioning || l.state != StateIdle {
		l.mu.Unlock()
		return nil
	}
	mode := l.requested
	l.mu.Unlock()
	return l.RequestMode(mode)
}

// Current returns the ready handle. ok is false while idle or while a
// transition is running, including the window before the old handle
// starts disposing.
func (l *Lifecycle) Current() (*Handle, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.transitioning || l.state != StateReady || l.current == nil {
		return nil, false
	}
	return l.current, true
}

// Generation returns the latest generation issued.
func (l *Lifecycle) Generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.generation
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Err returns the last construction error, if the lifecycle is idle
// because of one.
func (l *Lifecycle) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

// Stats returns lifecycle counters.
func (l *Lifecycle) Stats() LifecycleStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// Status returns a display snapshot.
func (l *Lifecycle) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.statusLocked()
}

func (l *Lifecycle) statusLocked() Status {
	st := Status{
		State:         l.state,
		RequestedMode: l.requested,
		Generation:    l.generation,
		Transitioning: l.transitioning,
		Seq:           l.seq,
	}
	if l.current != nil {
		st.Mode = l.current.Mode()
	} else {
		st.Mode = l.requested
	}
	if l.lastErr != nil {
		st.Error = l.lastErr.Error()
	}

	switch {
	case l.transitioning:
		st.Message = fmt.Sprintf("Changing to %s mode...", describeMode(l.requested))
	case l.state == StateReady:
		st.Message = fmt.Sprintf("Tracking %s", describeMode(st.Mode))
	case l.lastErr != nil:
		st.Message = "Estimator unavailable, retry to try again"
	default:
		st.Message = "Estimator idle"
	}
	return st
}

func describeMode(m pose.Mode) string {
	if m == pose.MultiPose {
		return "multiple people"
	}
	return "one person"
}

// Wait blocks until no transition is running.
func (l *Lifecycle) Wait(ctx context.Context) error {
	l.mu.Lock()
	idle := l.idle
	l.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close refuses further requests, waits for a running transition and
// disposes the current handle.
func (l *Lifecycle) Close(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	if err := l.Wait(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	h := l.current
	l.current = nil
	l.state = StateIdle
	l.mu.Unlock()

	if h == nil {
		return nil
	}
	err := h.retire(ctx)
	l.mu.Lock()
	l.stats.Disposed++
	l.mu.Unlock()
	l.notify()
	return err
}

// notify delivers a fresh snapshot. Holding notifyMu across the snapshot
// and the call keeps deliveries ordered: a later call always carries a
// later snapshot.
func (l *Lifecycle) notify() {
	l.notifyMu.Lock()
	defer l.notifyMu.Unlock()

	l.mu.Lock()
	fn := l.onChange
	l.seq++
	st := l.statusLocked()
	l.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}

// finishLocked ends the running transition. Caller holds l.mu.
func (l *Lifecycle) finishLocked() {
	l.transitioning = false
	l.hasRequest = false
	close(l.idle)
}

// transition runs until the latest requested mode is ready, a
// construction fails with nothing newer pending, or the lifecycle closes.
func (l *Lifecycle) transition(id string) {
	logger := l.logger.With("transition", id)
	start := time.Now()

	for {
		l.mu.Lock()
		if l.closed {
			l.state = StateIdle
			l.finishLocked()
			l.mu.Unlock()
			l.notify()
			return
		}
		mode := l.requested
		l.hasRequest = false
		old := l.current
		l.current = nil
		if old != nil {
			l.state = StateDisposing
		}
		l.mu.Unlock()

		if old != nil {
			l.notify()
			logger.Info("disposing estimator", "generation", old.Generation(), "mode", old.Mode())
			if err := old.retire(l.ctx); err != nil {
				logger.Warn("dispose failed", "generation", old.Generation(), "error", err)
			}
			l.mu.Lock()
			l.stats.Disposed++
			l.mu.Unlock()
		}

		l.mu.Lock()
		l.generation++
		gen := l.generation
		l.state = StateCreating
		l.mu.Unlock()
		l.notify()

		logger.Info("creating estimator", "generation", gen, "mode", mode)
		res, err := l.backend.Create(l.ctx, Config{Mode: mode})

		l.mu.Lock()
		if err != nil {
			l.lastErr = &ConstructionError{Mode: mode, Err: err}
			l.stats.Failed++
			l.state = StateIdle
			if l.hasRequest && !l.closed {
				l.mu.Unlock()
				logger.Warn("construction failed, newer request pending", "generation", gen, "error", err)
				continue
			}
			l.finishLocked()
			l.mu.Unlock()
			logger.Error("construction failed", "generation", gen, "mode", mode, "error", err)
			l.notify()
			return
		}

		if l.closed || l.requested != mode {
			l.stats.Superseded++
			l.mu.Unlock()
			logger.Info("construction superseded, disposing", "generation", gen, "mode", mode)
			if derr := res.Dispose(l.ctx); derr != nil {
				logger.Warn("dispose of superseded estimator failed", "generation", gen, "error", derr)
			}
			l.mu.Lock()
			l.stats.Disposed++
			l.mu.Unlock()
			continue
		}

		l.current = newHandle(res, gen, mode)
		l.state = StateReady
		l.lastErr = nil
		l.stats.Created++
		l.finishLocked()
		l.mu.Unlock()

		logger.Info("estimator ready", "generation", gen, "mode", mode, "took", time.Since(start))
		l.notify()
		return
	}
}
