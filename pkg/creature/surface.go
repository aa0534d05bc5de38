// Package creature draws stylized creatures from canvas-space poses.
//
// A creature is a set of parts keyed by layer. Parts look up the
// keypoints they need by name and silently skip themselves when any of
// them is missing, so a partially detected subject still draws every
// part that can be drawn. Parts keep no state between calls.
package creature

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Surface is the set of vector drawing primitives a part may use.
// Its semantics follow an HTML canvas 2D context: BeginPath starts a new
// path, Fill and Stroke paint the current path with the current style.
type Surface interface {
	BeginPath()
	MoveTo(x, y float64)
	LineTo(x, y float64)
	QuadraticCurveTo(cx, cy, x, y float64)
	Arc(x, y, radius, startAngle, endAngle float64)
	ClosePath()

	SetFillColor(c color.Color)
	SetStrokeColor(c color.Color)
	SetLineWidth(w float64)

	Fill()
	Stroke()
	FillText(text string, x, y float64)
}

// Common colours.
var (
	White = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	Black = color.NRGBA{R: 0, G: 0, B: 0, A: 255}
	Red   = color.NRGBA{R: 230, G: 30, B: 40, A: 255}
)

// FullCircle is the end angle of a complete arc.
const FullCircle = 2 * math.Pi

// Hue returns hsla(h, 100%, 50%, alpha).
func Hue(h, alpha float64) color.NRGBA {
	r, g, b := colorful.Hsl(math.Mod(h, 360), 1.0, 0.5).RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: uint8(math.Round(clamp01(alpha) * 255))}
}

// StrokeColor is the limb colour for a subject hue.
func StrokeColor(hue float64) color.NRGBA {
	return Hue(hue, 0.7)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// Circle adds a full circle to the current path.
func Circle(s Surface, x, y, radius float64) {
	s.Arc(x, y, radius, 0, FullCircle)
}
