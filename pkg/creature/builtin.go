package creature

import (
	"image/color"

	"github.com/teslashibe/go-creatures/pkg/pose"
)

// limbChains are shoulder-elbow-wrist and hip-knee-ankle triples.
var limbChains = [][3]string{
	{pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist},
	{pose.RightShoulder, pose.RightElbow, pose.RightWrist},
	{pose.LeftHip, pose.LeftKnee, pose.LeftAnkle},
	{pose.RightHip, pose.RightKnee, pose.RightAnkle},
}

// Blob has curved rubbery limbs and round cartoon eyes.
func Blob() *Creature {
	return &Creature{
		Name:        "blob",
		Description: "Curved rubbery limbs and round cartoon eyes",
		Parts: map[Layer]Part{
			LayerLimbs: curvedLimbs(limbChains, 10),
			LayerEyes:  roundEyes(10, 5, White, Black),
		},
	}
}

// Ghost has a translucent torso, floaty arms and hollow eyes.
func Ghost() *Creature {
	return &Creature{
		Name:        "ghost",
		Description: "Translucent torso, floaty arms and hollow eyes",
		Parts: map[Layer]Part{
			LayerBody:  ghostBody,
			LayerLimbs: curvedLimbs(limbChains[:2], 6),
			LayerEyes:  roundEyes(12, 4, Black, White),
		},
	}
}

// Bug has antennae, stick legs and red eyes.
func Bug() *Creature {
	return &Creature{
		Name:        "bug",
		Description: "Antennae, stick legs and red eyes",
		Parts: map[Layer]Part{
			LayerLimbs: stickLimbs(limbChains, 4),
			LayerHead:  antennae,
			LayerEyes:  roundEyes(8, 3, Red, Black),
		},
	}
}

func roundEyes(outer, inner float64, sclera, pupil color.Color) Part {
	return func(s Surface, p pose.Pose, _ Style) {
		eyes, ok := p.Lookup(pose.LeftEye, pose.RightEye)
		if !ok {
			return
		}
		left, right := eyes[0], eyes[1]

		s.BeginPath()
		Circle(s, left.X, left.Y, outer)
		Circle(s, right.X, right.Y, outer)
		s.SetFillColor(sclera)
		s.Fill()

		s.BeginPath()
		Circle(s, left.X, left.Y, inner)
		Circle(s, right.X, right.Y, inner)
		s.SetFillColor(pupil)
		s.Fill()
	}
}

func curvedLimbs(chains [][3]string, width float64) Part {
	return func(s Surface, p pose.Pose, st Style) {
		for _, chain := range chains {
			pts, ok := p.Lookup(chain[0], chain[1], chain[2])
			if !ok {
				continue
			}
			s.BeginPath()
			s.MoveTo(pts[0].X, pts[0].Y)
			s.QuadraticCurveTo(pts[1].X, pts[1].Y, pts[2].X, pts[2].Y)
			s.SetLineWidth(width)
			s.SetStrokeColor(StrokeColor(st.Hue))
			s.Stroke()
		}
	}
}

func stickLimbs(chains [][3]string, width float64) Part {
	return func(s Surface, p pose.Pose, st Style) {
		for _, chain := range chains {
			pts, ok := p.Lookup(chain[0], chain[1], chain[2])
			if !ok {
				continue
			}
			s.BeginPath()
			s.MoveTo(pts[0].X, pts[0].Y)
			s.LineTo(pts[1].X, pts[1].Y)
			s.LineTo(pts[2].X, pts[2].Y)
			s.SetLineWidth(width)
			s.SetStrokeColor(StrokeColor(st.Hue))
			s.Stroke()
		}
	}
}

func ghostBody(s Surface, p pose.Pose, st Style) {
	torso, ok := p.Lookup(pose.LeftShoulder, pose.RightShoulder, pose.RightHip, pose.LeftHip)
	if !ok {
		return
	}
	ls, rs, rh, lh := torso[0], torso[1], torso[2], torso[3]

	// Wavy hem between the hips, dipping below them.
	midX := (rh.X + lh.X) / 2
	midY := (rh.Y + lh.Y) / 2
	dip := (rh.Y - rs.Y) * 0.25

	s.BeginPath()
	s.MoveTo(ls.X, ls.Y)
	s.LineTo(rs.X, rs.Y)
	s.LineTo(rh.X, rh.Y)
	s.QuadraticCurveTo((rh.X+midX)/2, midY+dip, midX, midY)
	s.QuadraticCurveTo((lh.X+midX)/2, midY+dip, lh.X, lh.Y)
	s.ClosePath()
	s.SetFillColor(Hue(st.Hue, 0.35))
	s.Fill()
}

func antennae(s Surface, p pose.Pose, st Style) {
	eyes, ok := p.Lookup(pose.LeftEye, pose.RightEye)
	if !ok {
		return
	}

	spread := (eyes[0].X - eyes[1].X) / 2
	s.SetLineWidth(3)
	s.SetStrokeColor(StrokeColor(st.Hue))
	for i, eye := range eyes {
		dir := 1.0
		if i == 1 {
			dir = -1.0
		}
		s.BeginPath()
		s.MoveTo(eye.X, eye.Y)
		s.QuadraticCurveTo(eye.X, eye.Y-60, eye.X+dir*spread, eye.Y-80)
		s.Stroke()
	}
}
