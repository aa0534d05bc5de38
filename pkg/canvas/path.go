package canvas

import (
	"image"
	"math"
)

// Flattening resolution for curves.
const (
	arcSegments  = 32
	quadSegments = 16
)

type point struct {
	x, y float64
}

// subpath is one polyline of the current path.
type subpath struct {
	points []point
	closed bool
}

// path accumulates canvas-style path commands as flattened polylines.
type path struct {
	subpaths []subpath
}

func (p *path) reset() {
	p.subpaths = p.subpaths[:0]
}

func (p *path) current() *subpath {
	if len(p.subpaths) == 0 {
		return nil
	}
	return &p.subpaths[len(p.subpaths)-1]
}

func (p *path) last() (point, bool) {
	sp := p.current()
	if sp == nil || len(sp.points) == 0 {
		return point{}, false
	}
	return sp.points[len(sp.points)-1], true
}

func (p *path) moveTo(x, y float64) {
	p.subpaths = append(p.subpaths, subpath{points: []point{{x, y}}})
}

func (p *path) lineTo(x, y float64) {
	sp := p.current()
	if sp == nil || sp.closed {
		p.moveTo(x, y)
		return
	}
	sp.points = append(sp.points, point{x, y})
}

func (p *path) quadTo(cx, cy, x, y float64) {
	start, ok := p.last()
	if !ok {
		p.moveTo(cx, cy)
		start = point{cx, cy}
	}
	for i := 1; i <= quadSegments; i++ {
		t := float64(i) / quadSegments
		mt := 1 - t
		p.lineTo(
			mt*mt*start.x+2*mt*t*cx+t*t*x,
			mt*mt*start.y+2*mt*t*cy+t*t*y,
		)
	}
}

// arc always starts its own subpath, so several circles in one path
// fill as separate discs.
func (p *path) arc(x, y, r, start, end float64) {
	sweep := end - start
	full := math.Abs(sweep) >= 2*math.Pi
	n := int(math.Ceil(arcSegments * math.Abs(sweep) / (2 * math.Pi)))
	if n < 1 {
		n = 1
	}
	pts := make([]point, 0, n+1)
	for i := 0; i <= n; i++ {
		if full && i == n {
			break
		}
		a := start + sweep*float64(i)/float64(n)
		pts = append(pts, point{x + r*math.Cos(a), y + r*math.Sin(a)})
	}
	p.subpaths = append(p.subpaths, subpath{points: pts, closed: full})
}

func (p *path) closePath() {
	if sp := p.current(); sp != nil {
		sp.closed = true
	}
}

// polygons converts subpaths with at least min points to integer pixels.
func (p *path) polygons(min int) ([][]image.Point, []bool) {
	var polys [][]image.Point
	var closed []bool
	for _, sp := range p.subpaths {
		if len(sp.points) < min {
			continue
		}
		poly := make([]image.Point, len(sp.points))
		for i, pt := range sp.points {
			poly[i] = image.Pt(int(math.Round(pt.x)), int(math.Round(pt.y)))
		}
		polys = append(polys, poly)
		closed = append(closed, sp.closed)
	}
	return polys, closed
}
