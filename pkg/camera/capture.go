package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-creatures/internal/log"
	"github.com/teslashibe/go-creatures/pkg/video"
	"gocv.io/x/gocv"
)

// ErrNotOpen is returned by Run before Open succeeds.
var ErrNotOpen = errors.New("camera: device not open")

// maxReadFailures is how many consecutive empty reads Run tolerates
// before giving up on the device.
const maxReadFailures = 50

// Capture reads a local webcam with OpenCV and publishes JPEG frames
// into a Slot. It implements video.Source.
type Capture struct {
	device string
	slot   *video.Slot
	logger *slog.Logger

	mu      sync.Mutex
	cfg     Config
	pending bool
	vc      *gocv.VideoCapture

	frames   atomic.Uint64
	failures atomic.Uint64
}

// CaptureStats are the capture counters.
type CaptureStats struct {
	Device   string          `json:"device"`
	Frames   uint64          `json:"frames"`
	Failures uint64          `json:"failures"`
	Slot     video.SlotStats `json:"slot"`
}

// NewCapture creates a capture for device, a V4L2 index ("0") or a
// path or URL OpenCV can open.
func NewCapture(device string, cfg Config) *Capture {
	return &Capture{
		device: device,
		slot:   video.NewSlot(),
		logger: log.Component("camera"),
		cfg:    cfg,
	}
}

// Open opens the device and applies the current config.
func (c *Capture) Open() error {
	var src interface{} = c.device
	if n, err := strconv.Atoi(c.device); err == nil {
		src = n
	}

	vc, err := gocv.OpenVideoCapture(src)
	if err != nil {
		return fmt.Errorf("open camera %q: %w", c.device, err)
	}

	c.mu.Lock()
	c.vc = vc
	c.pending = true
	c.mu.Unlock()

	c.logger.Info("camera opened", "device", c.device)
	return nil
}

// Apply stores a new config; the capture loop picks it up before the
// next read. It matches Manager.OnConfigChange.
func (c *Capture) Apply(cfg Config) error {
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	c.mu.Lock()
	c.cfg = cfg
	c.pending = true
	c.mu.Unlock()
	return nil
}

// Config returns the config the capture runs with.
func (c *Capture) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Run reads frames until ctx is cancelled or the device stops
// delivering.
func (c *Capture) Run(ctx context.Context) error {
	c.mu.Lock()
	vc := c.vc
	c.mu.Unlock()
	if vc == nil {
		return ErrNotOpen
	}

	img := gocv.NewMat()
	defer img.Close()

	misses := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		quality := c.applyPending(vc)

		if ok := vc.Read(&img); !ok || img.Empty() {
			c.failures.Add(1)
			misses++
			if misses >= maxReadFailures {
				return fmt.Errorf("camera %q: %d consecutive empty reads", c.device, misses)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		misses = 0

		buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, quality})
		if err != nil {
			c.failures.Add(1)
			c.logger.Warn("jpeg encode failed", "error", err)
			continue
		}
		data := append([]byte(nil), buf.GetBytes()...)
		buf.Close()

		f := c.slot.Publish(data, img.Cols(), img.Rows())
		c.frames.Add(1)
		if f.Seq == 1 {
			c.logger.Info("first frame", "width", f.Width, "height", f.Height)
		}
	}
}

// applyPending pushes a changed config to the device and returns the
// JPEG quality to encode with.
func (c *Capture) applyPending(vc *gocv.VideoCapture) int {
	c.mu.Lock()
	cfg := c.cfg
	pending := c.pending
	c.pending = false
	c.mu.Unlock()

	if !pending {
		return cfg.Quality
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	vc.Set(gocv.VideoCaptureBrightness, cfg.Brightness)
	vc.Set(gocv.VideoCaptureZoom, cfg.ZoomLevel)

	// V4L2 backend: 0.75 is aperture priority (auto), 0.25 is manual.
	if cfg.AutoExposure {
		vc.Set(gocv.VideoCaptureAutoExposure, 0.75)
	} else {
		vc.Set(gocv.VideoCaptureAutoExposure, 0.25)
		vc.Set(gocv.VideoCaptureExposure, cfg.Exposure)
	}

	af := 0.0
	if cfg.Autofocus {
		af = 1
	}
	vc.Set(gocv.VideoCaptureAutoFocus, af)

	c.logger.Info("camera config applied",
		"width", cfg.Width, "height", cfg.Height, "fps", cfg.Framerate,
		"actual_width", vc.Get(gocv.VideoCaptureFrameWidth),
		"actual_height", vc.Get(gocv.VideoCaptureFrameHeight))
	return cfg.Quality
}

// Latest implements video.Source.
func (c *Capture) Latest() (video.Frame, bool) {
	return c.slot.Latest()
}

// Stats returns the capture counters.
func (c *Capture) Stats() CaptureStats {
	return CaptureStats{
		Device:   c.device,
		Frames:   c.frames.Load(),
		Failures: c.failures.Load(),
		Slot:     c.slot.Stats(),
	}
}

// Close releases the device. Run must have returned.
func (c *Capture) Close() error {
	c.mu.Lock()
	vc := c.vc
	c.vc = nil
	c.mu.Unlock()
	if vc == nil {
		return nil
	}
	return vc.Close()
}
