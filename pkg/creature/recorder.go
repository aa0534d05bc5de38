package creature

import (
	"image/color"
	"sync"
)

// Op names a recorded drawing operation.
type Op string

const (
	OpBeginPath Op = "beginPath"
	OpMoveTo    Op = "moveTo"
	OpLineTo    Op = "lineTo"
	OpQuadTo    Op = "quadraticCurveTo"
	OpArc       Op = "arc"
	OpClosePath Op = "closePath"
	OpFill      Op = "fill"
	OpStroke    Op = "stroke"
	OpFillText  Op = "fillText"
)

// Call is one recorded operation. Fill and Stroke calls carry the
// paint colour, the line width and the path segments they painted.
type Call struct {
	Op        Op
	Args      []float64
	Color     color.Color
	LineWidth float64
	Text      string
	Path      []Call
}

// Recorder is a Surface that records every paint operation.
// It is used in tests and by callers that want a draw-call log.
type Recorder struct {
	mu sync.Mutex

	calls     []Call
	path      []Call
	fill      color.Color
	stroke    color.Color
	lineWidth float64
}

// NewRecorder creates an empty recorder with canvas defaults.
func NewRecorder() *Recorder {
	return &Recorder{
		fill:      Black,
		stroke:    Black,
		lineWidth: 1,
	}
}

func (r *Recorder) segment(op Op, args ...float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := Call{Op: op, Args: args}
	r.path = append(r.path, c)
	r.calls = append(r.calls, c)
}

// BeginPath implements Surface.
func (r *Recorder) BeginPath() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.path = nil
	r.calls = append(r.calls, Call{Op: OpBeginPath})
}

// MoveTo implements Surface.
func (r *Recorder) MoveTo(x, y float64) { r.segment(OpMoveTo, x, y) }

// LineTo implements Surface.
func (r *Recorder) LineTo(x, y float64) { r.segment(OpLineTo, x, y) }

// QuadraticCurveTo implements Surface.
func (r *Recorder) QuadraticCurveTo(cx, cy, x, y float64) { r.segment(OpQuadTo, cx, cy, x, y) }

// Arc implements Surface.
func (r *Recorder) Arc(x, y, radius, start, end float64) { r.segment(OpArc, x, y, radius, start, end) }

// ClosePath implements Surface.
func (r *Recorder) ClosePath() { r.segment(OpClosePath) }

// SetFillColor implements Surface.
func (r *Recorder) SetFillColor(c color.Color) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fill = c
}

// SetStrokeColor implements Surface.
func (r *Recorder) SetStrokeColor(c color.Color) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stroke = c
}

// SetLineWidth implements Surface.
func (r *Recorder) SetLineWidth(w float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lineWidth = w
}

// Fill implements Surface.
func (r *Recorder) Fill() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Op: OpFill, Color: r.fill, Path: r.pathCopy()})
}

// Stroke implements Surface.
func (r *Recorder) Stroke() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Op: OpStroke, Color: r.stroke, LineWidth: r.lineWidth, Path: r.pathCopy()})
}

// FillText implements Surface.
func (r *Recorder) FillText(text string, x, y float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Op: OpFillText, Args: []float64{x, y}, Color: r.fill, Text: text})
}

func (r *Recorder) pathCopy() []Call {
	p := make([]Call, len(r.path))
	copy(p, r.path)
	return p
}

// Calls returns every recorded call.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Paints returns only the Fill, Stroke and FillText calls.
func (r *Recorder) Paints() []Call {
	var out []Call
	for _, c := range r.Calls() {
		switch c.Op {
		case OpFill, OpStroke, OpFillText:
			out = append(out, c)
		}
	}
	return out
}

// Reset discards everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
	r.path = nil
}
