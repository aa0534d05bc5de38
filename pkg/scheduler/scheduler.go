// Package scheduler drives the render loop: take the newest frame,
// estimate poses on it, map them into canvas space and draw creatures.
//
// At most one estimate is outstanding at any time. Ticks that arrive
// while one is running do nothing, so a slow estimator lowers the
// effective frame rate instead of building a queue.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-creatures/internal/log"
	"github.com/teslashibe/go-creatures/pkg/creature"
	"github.com/teslashibe/go-creatures/pkg/debug"
	"github.com/teslashibe/go-creatures/pkg/estimator"
	"github.com/teslashibe/go-creatures/pkg/pose"
	"github.com/teslashibe/go-creatures/pkg/video"
)

// Hue used for every subject outside multi-pose mode.
const SingleHue = 120

// Config holds scheduler tunables.
type Config struct {
	// RefreshInterval is the tick period, one display refresh.
	RefreshInterval time.Duration
}

// DefaultConfig returns a 60 Hz refresh.
func DefaultConfig() Config {
	return Config{
		RefreshInterval: 16 * time.Millisecond,
	}
}

// Estimators reports the ready estimator handle. It is satisfied by
// *estimator.Lifecycle.
type Estimators interface {
	Current() (*estimator.Handle, bool)
}

// Canvas is the render surface.
type Canvas interface {
	creature.Surface

	// Size returns the current surface size.
	Size() pose.Dims

	// Clear erases the surface and applies any pending resize.
	Clear()

	// DrawImage paints frame mirrored across the whole surface.
	DrawImage(frame video.Frame) error
}

// Presenter is implemented by canvases that publish a finished frame.
type Presenter interface {
	Present() error
}

// Selection is the UI state the scheduler reads each tick.
type Selection interface {
	Debug() bool
	Creature() string
}

// Stats are the scheduler counters.
type Stats struct {
	Ticks         uint64 `json:"ticks"`
	NotReady      uint64 `json:"not_ready"`
	Busy          uint64 `json:"busy"`
	NoFrame       uint64 `json:"no_frame"`
	InvalidSource uint64 `json:"invalid_source"`
	Submitted     uint64 `json:"submitted"`
	Rendered      uint64 `json:"rendered"`
	Stale         uint64 `json:"stale"`
	Failures      uint64 `json:"failures"`
}

// completion is the outcome of one dispatched estimate together with
// the snapshot taken when it was submitted.
type completion struct {
	handle   *estimator.Handle
	seq      uint64
	poses    []pose.Pose
	err      error
	source   pose.Dims
	target   pose.Dims
	creature *creature.Creature
	debug    bool
}

// Scheduler runs the render loop. Tick and Run must be called from a
// single goroutine.
type Scheduler struct {
	cfg        Config
	estimators Estimators
	frames     video.Source
	canvas     Canvas
	creatures  *creature.Registry
	selection  Selection
	logger     *slog.Logger

	done        chan completion
	outstanding bool
	lastSeq     uint64

	ticks         atomic.Uint64
	notReady      atomic.Uint64
	busy          atomic.Uint64
	noFrame       atomic.Uint64
	invalidSource atomic.Uint64
	submitted     atomic.Uint64
	rendered      atomic.Uint64
	stale         atomic.Uint64
	failures      atomic.Uint64
}

// New creates a scheduler.
func New(cfg Config, estimators Estimators, frames video.Source, canvas Canvas, creatures *creature.Registry, selection Selection) *Scheduler {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultConfig().RefreshInterval
	}
	return &Scheduler{
		cfg:        cfg,
		estimators: estimators,
		frames:     frames,
		canvas:     canvas,
		creatures:  creatures,
		selection:  selection,
		logger:     log.Component("scheduler"),
		done:       make(chan completion, 1),
	}
}

// Run ticks every RefreshInterval and applies completions as they
// arrive, until ctx is cancelled. An estimate still running at that
// point finishes in the background and its result is dropped.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()

	s.logger.Info("render loop started", "interval", s.cfg.RefreshInterval)
	defer s.logger.Info("render loop stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-s.done:
			s.apply(c)
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one step of the loop. It never blocks on estimation.
func (s *Scheduler) Tick(ctx context.Context) {
	s.ticks.Add(1)

	select {
	case c := <-s.done:
		s.apply(c)
	default:
	}

	handle, ok := s.estimators.Current()
	if !ok {
		s.notReady.Add(1)
		return
	}
	if s.outstanding {
		s.busy.Add(1)
		return
	}

	frame, ok := s.frames.Latest()
	if !ok || frame.Seq <= s.lastSeq {
		s.noFrame.Add(1)
		return
	}
	s.lastSeq = frame.Seq

	source := frame.Dims()
	if !source.Valid() {
		s.invalidSource.Add(1)
		debug.FrameLog("⏭️  frame %d skipped: source %s\n", frame.Seq, source)
		return
	}

	c := s.selectCreature()
	dbg := s.selection.Debug()

	s.canvas.Clear()
	if dbg {
		if err := s.canvas.DrawImage(frame); err != nil {
			s.logger.Warn("draw background failed", "seq", frame.Seq, "error", err)
		}
	}

	pending := completion{
		handle:   handle,
		seq:      frame.Seq,
		source:   source,
		target:   s.canvas.Size(),
		creature: c,
		debug:    dbg,
	}

	s.outstanding = true
	s.submitted.Add(1)
	debug.FrameLog("📤 frame %d -> gen %d (%s -> %s)\n", frame.Seq, handle.Generation(), pending.source, pending.target)

	estimateCtx := context.WithoutCancel(ctx)
	go func() {
		pending.poses, pending.err = handle.Estimate(estimateCtx, frame)
		s.done <- pending
	}()
}

func (s *Scheduler) selectCreature() *creature.Creature {
	c, err := s.creatures.Get(s.selection.Creature())
	if err == nil {
		return c
	}
	c, err = s.creatures.Get(s.creatures.Default())
	if err != nil {
		return nil
	}
	return c
}

// apply handles a finished estimate on the loop goroutine.
func (s *Scheduler) apply(c completion) {
	s.outstanding = false

	if c.err != nil {
		if errors.Is(c.err, estimator.ErrStaleResult) {
			s.stale.Add(1)
			return
		}
		s.failures.Add(1)
		s.logger.Warn("estimate failed", "seq", c.seq, "generation", c.handle.Generation(), "error", c.err)
		s.present()
		return
	}

	current, ok := s.estimators.Current()
	if !ok || current.Generation() != c.handle.Generation() {
		s.stale.Add(1)
		debug.FrameLog("🗑️  frame %d dropped: gen %d superseded\n", c.seq, c.handle.Generation())
		return
	}

	multi := c.handle.Mode() == pose.MultiPose
	for i, p := range c.poses {
		mapped, err := pose.MapPose(p, c.source, c.target)
		if err != nil {
			s.invalidSource.Add(1)
			continue
		}
		if c.creature != nil {
			c.creature.Draw(s.canvas, mapped, creature.Style{Hue: subjectHue(i, multi), Debug: c.debug})
		}
	}

	s.rendered.Add(1)
	debug.FrameLog("🎨 frame %d rendered: %d poses\n", c.seq, len(c.poses))
	s.present()
}

func (s *Scheduler) present() {
	p, ok := s.canvas.(Presenter)
	if !ok {
		return
	}
	if err := p.Present(); err != nil {
		s.logger.Warn("present failed", "error", err)
	}
}

// subjectHue spreads subjects around the colour wheel in multi-pose mode.
func subjectHue(i int, multi bool) float64 {
	if !multi {
		return SingleHue
	}
	return float64((i * 137) % 360)
}

// Stats returns a snapshot of the counters. Safe to call from any goroutine.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Ticks:         s.ticks.Load(),
		NotReady:      s.notReady.Load(),
		Busy:          s.busy.Load(),
		NoFrame:       s.noFrame.Load(),
		InvalidSource: s.invalidSource.Load(),
		Submitted:     s.submitted.Load(),
		Rendered:      s.rendered.Load(),
		Stale:         s.stale.Load(),
		Failures:      s.failures.Load(),
	}
}
