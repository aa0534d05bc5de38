// Package canvas is a raster render surface backed by an OpenCV Mat.
// It implements creature.Surface with canvas-2D path semantics and
// publishes finished frames as JPEG.
package canvas

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/teslashibe/go-creatures/pkg/creature"
	"github.com/teslashibe/go-creatures/pkg/pose"
	"github.com/teslashibe/go-creatures/pkg/video"
	"gocv.io/x/gocv"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("canvas: closed")

// Config holds canvas settings.
type Config struct {
	Width       int
	Height      int
	JPEGQuality int     // 1-100
	FontScale   float64 // Debug label size
}

// DefaultConfig returns a 640x480 canvas.
func DefaultConfig() Config {
	return Config{
		Width:       640,
		Height:      480,
		JPEGQuality: 80,
		FontScale:   0.4,
	}
}

// Canvas is a gocv-backed creature.Surface. Drawing happens on the
// render loop goroutine; Resize, Snapshot and Size may be called from
// any goroutine.
type Canvas struct {
	mu sync.Mutex

	cfg     Config
	img     gocv.Mat
	size    pose.Dims
	pending *pose.Dims
	closed  bool

	path      path
	fill      color.NRGBA
	stroke    color.NRGBA
	lineWidth float64

	last      []byte
	onPresent func(jpeg []byte)
}

// New allocates a cleared canvas.
func New(cfg Config) (*Canvas, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("canvas: invalid size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = DefaultConfig().JPEGQuality
	}
	if cfg.FontScale <= 0 {
		cfg.FontScale = DefaultConfig().FontScale
	}

	c := &Canvas{
		cfg:       cfg,
		img:       gocv.NewMatWithSize(cfg.Height, cfg.Width, gocv.MatTypeCV8UC3),
		size:      pose.Dims{Width: cfg.Width, Height: cfg.Height},
		fill:      creature.Black,
		stroke:    creature.Black,
		lineWidth: 1,
	}
	c.img.SetTo(gocv.NewScalar(0, 0, 0, 0))
	return c, nil
}

// OnPresent registers the receiver of every presented JPEG.
func (c *Canvas) OnPresent(fn func(jpeg []byte)) {
	c.mu.Lock()
	c.onPresent = fn
	c.mu.Unlock()
}

// Size returns the current surface size.
func (c *Canvas) Size() pose.Dims {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Resize schedules a new size. It takes effect at the next Clear, so
// a frame being drawn keeps the size it started with.
func (c *Canvas) Resize(width, height int) error {
	d := pose.Dims{Width: width, Height: height}
	if !d.Valid() {
		return fmt.Errorf("canvas: invalid size %s", d)
	}
	c.mu.Lock()
	c.pending = &d
	c.mu.Unlock()
	return nil
}

// Clear paints the surface black and applies a pending resize.
func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	if c.pending != nil && *c.pending != c.size {
		c.img.Close()
		c.size = *c.pending
		c.img = gocv.NewMatWithSize(c.size.Height, c.size.Width, gocv.MatTypeCV8UC3)
	}
	c.pending = nil
	c.img.SetTo(gocv.NewScalar(0, 0, 0, 0))
	c.path.reset()
}

// DrawImage decodes frame, scales it to the surface and mirrors it
// horizontally.
func (c *Canvas) DrawImage(frame video.Frame) error {
	src, err := gocv.IMDecode(frame.JPEG, gocv.IMReadColor)
	if err != nil {
		return fmt.Errorf("canvas: decode frame %d: %w", frame.Seq, err)
	}
	defer src.Close()
	if src.Empty() {
		return fmt.Errorf("canvas: decode frame %d: empty image", frame.Seq)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	scaled := gocv.NewMat()
	defer scaled.Close()
	gocv.Resize(src, &scaled, image.Pt(c.size.Width, c.size.Height), 0, 0, gocv.InterpolationLinear)
	gocv.Flip(scaled, &c.img, 1)
	return nil
}

// BeginPath implements creature.Surface.
func (c *Canvas) BeginPath() {
	c.mu.Lock()
	c.path.reset()
	c.mu.Unlock()
}

// MoveTo implements creature.Surface.
func (c *Canvas) MoveTo(x, y float64) {
	c.mu.Lock()
	c.path.moveTo(x, y)
	c.mu.Unlock()
}

// LineTo implements creature.Surface.
func (c *Canvas) LineTo(x, y float64) {
	c.mu.Lock()
	c.path.lineTo(x, y)
	c.mu.Unlock()
}

// QuadraticCurveTo implements creature.Surface.
func (c *Canvas) QuadraticCurveTo(cx, cy, x, y float64) {
	c.mu.Lock()
	c.path.quadTo(cx, cy, x, y)
	c.mu.Unlock()
}

// Arc implements creature.Surface.
func (c *Canvas) Arc(x, y, radius, startAngle, endAngle float64) {
	c.mu.Lock()
	c.path.arc(x, y, radius, startAngle, endAngle)
	c.mu.Unlock()
}

// ClosePath implements creature.Surface.
func (c *Canvas) ClosePath() {
	c.mu.Lock()
	c.path.closePath()
	c.mu.Unlock()
}

// SetFillColor implements creature.Surface.
func (c *Canvas) SetFillColor(col color.Color) {
	c.mu.Lock()
	c.fill = color.NRGBAModel.Convert(col).(color.NRGBA)
	c.mu.Unlock()
}

// SetStrokeColor implements creature.Surface.
func (c *Canvas) SetStrokeColor(col color.Color) {
	c.mu.Lock()
	c.stroke = color.NRGBAModel.Convert(col).(color.NRGBA)
	c.mu.Unlock()
}

// SetLineWidth implements creature.Surface.
func (c *Canvas) SetLineWidth(w float64) {
	c.mu.Lock()
	c.lineWidth = w
	c.mu.Unlock()
}

// Fill implements creature.Surface.
func (c *Canvas) Fill() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	polys, _ := c.path.polygons(3)
	if len(polys) == 0 {
		return
	}
	pv := gocv.NewPointsVectorFromPoints(polys)
	defer pv.Close()

	c.blend(c.fill, func(dst *gocv.Mat, col color.RGBA) {
		gocv.FillPoly(dst, pv, col)
	})
}

// Stroke implements creature.Surface.
func (c *Canvas) Stroke() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	polys, closed := c.path.polygons(2)
	thickness := int(math.Max(1, math.Round(c.lineWidth)))
	for i, poly := range polys {
		pv := gocv.NewPointsVectorFromPoints([][]image.Point{poly})
		isClosed := closed[i]
		c.blend(c.stroke, func(dst *gocv.Mat, col color.RGBA) {
			gocv.Polylines(dst, pv, isClosed, col, thickness)
		})
		pv.Close()
	}
}

// FillText implements creature.Surface.
func (c *Canvas) FillText(text string, x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	org := image.Pt(int(math.Round(x)), int(math.Round(y)))
	c.blend(c.fill, func(dst *gocv.Mat, col color.RGBA) {
		gocv.PutText(dst, text, org, gocv.FontHersheySimplex, c.cfg.FontScale, col, 1)
	})
}

// blend runs draw with the opaque colour and mixes the result in by
// the colour's alpha. Caller holds c.mu.
func (c *Canvas) blend(col color.NRGBA, draw func(dst *gocv.Mat, col color.RGBA)) {
	opaque := color.RGBA{R: col.R, G: col.G, B: col.B, A: 255}
	if col.A == 255 {
		draw(&c.img, opaque)
		return
	}
	if col.A == 0 {
		return
	}

	overlay := c.img.Clone()
	defer overlay.Close()
	draw(&overlay, opaque)

	alpha := float64(col.A) / 255
	gocv.AddWeighted(overlay, alpha, c.img, 1-alpha, 0, &c.img)
}

// Present encodes the surface as JPEG and hands it to the OnPresent
// receiver.
func (c *Canvas) Present() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, c.img, []int{gocv.IMWriteJpegQuality, c.cfg.JPEGQuality})
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("canvas: encode: %w", err)
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()
	c.last = data
	fn := c.onPresent
	c.mu.Unlock()

	if fn != nil {
		fn(data)
	}
	return nil
}

// Snapshot returns the last presented JPEG, or nil.
func (c *Canvas) Snapshot() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Close releases the Mat.
func (c *Canvas) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.img.Close()
}
