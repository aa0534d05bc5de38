package creature

import (
	"image/color"
	"testing"

	"github.com/teslashibe/go-creatures/pkg/pose"
)

// fullPose returns a canvas-space pose with every landmark present.
func fullPose() pose.Pose {
	coords := map[string][2]float64{
		pose.Nose:          {320, 80},
		pose.LeftEye:       {340, 70},
		pose.RightEye:      {300, 70},
		pose.LeftEar:       {360, 75},
		pose.RightEar:      {280, 75},
		pose.LeftShoulder:  {380, 160},
		pose.RightShoulder: {260, 160},
		pose.LeftElbow:     {420, 230},
		pose.RightElbow:    {220, 230},
		pose.LeftWrist:     {440, 300},
		pose.RightWrist:    {200, 300},
		pose.LeftHip:       {360, 320},
		pose.RightHip:      {280, 320},
		pose.LeftKnee:      {365, 400},
		pose.RightKnee:     {275, 400},
		pose.LeftAnkle:     {370, 470},
		pose.RightAnkle:    {270, 470},
	}
	var p pose.Pose
	for _, name := range pose.Landmarks {
		c := coords[name]
		p.Keypoints = append(p.Keypoints, pose.Keypoint{Name: name, X: c[0], Y: c[1], Confidence: 0.9})
	}
	return p
}

func without(p pose.Pose, names ...string) pose.Pose {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	var out pose.Pose
	for _, kp := range p.Keypoints {
		if !drop[kp.Name] {
			out.Keypoints = append(out.Keypoints, kp)
		}
	}
	return out
}

func sameColor(a, b color.Color) bool {
	ar, ag, ab, aa := a.RGBA()
	br, bg, bb, ba := b.RGBA()
	return ar == br && ag == bg && ab == bb && aa == ba
}

func arcsOf(c Call) [][]float64 {
	var out [][]float64
	for _, seg := range c.Path {
		if seg.Op == OpArc {
			out = append(out, seg.Args)
		}
	}
	return out
}

func TestBlob_EyesMirroredScenario(t *testing.T) {
	raw := pose.Pose{Keypoints: []pose.Keypoint{
		{Name: pose.LeftEye, X: 100, Y: 100, Confidence: 0.9},
		{Name: pose.RightEye, X: 140, Y: 100, Confidence: 0.9},
	}}
	mapped, err := pose.MapPose(raw, pose.Dims{Width: 640, Height: 480}, pose.Dims{Width: 640, Height: 480})
	if err != nil {
		t.Fatalf("MapPose: %v", err)
	}

	rec := NewRecorder()
	Blob().Draw(rec, mapped, Style{Hue: 120})

	fills := rec.Paints()
	if len(fills) != 2 {
		t.Fatalf("expected 2 fills (outer and inner eyes), got %d: %+v", len(fills), fills)
	}

	tests := []struct {
		name   string
		call   Call
		color  color.Color
		radius float64
	}{
		{"outer white", fills[0], White, 10},
		{"inner black", fills[1], Black, 5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.call.Op != OpFill {
				t.Fatalf("op = %s, want fill", tc.call.Op)
			}
			if !sameColor(tc.call.Color, tc.color) {
				t.Errorf("color = %v, want %v", tc.call.Color, tc.color)
			}
			arcs := arcsOf(tc.call)
			if len(arcs) != 2 {
				t.Fatalf("expected 2 arcs, got %d", len(arcs))
			}
			want := [][2]float64{{540, 100}, {500, 100}}
			for i, a := range arcs {
				if a[0] != want[i][0] || a[1] != want[i][1] {
					t.Errorf("arc %d at (%v,%v), want (%v,%v)", i, a[0], a[1], want[i][0], want[i][1])
				}
				if a[2] != tc.radius {
					t.Errorf("arc %d radius %v, want %v", i, a[2], tc.radius)
				}
			}
		})
	}
}

func TestCreatures_MissingKeypointSkipsOnlyThatPart(t *testing.T) {
	tests := []struct {
		name        string
		creature    *Creature
		missing     string
		wantFills   int
		wantStrokes int
	}{
		{"blob without left eye", Blob(), pose.LeftEye, 0, 4},
		{"blob without right knee", Blob(), pose.RightKnee, 2, 3},
		{"ghost without left hip", Ghost(), pose.LeftHip, 2, 2},
		{"ghost without left wrist", Ghost(), pose.LeftWrist, 3, 1},
		{"bug without right eye", Bug(), pose.RightEye, 0, 4},
		{"bug without left ankle", Bug(), pose.LeftAnkle, 2, 5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := NewRecorder()
			tc.creature.Draw(rec, without(fullPose(), tc.missing), Style{Hue: 120})

			var fills, strokes int
			for _, c := range rec.Paints() {
				switch c.Op {
				case OpFill:
					fills++
				case OpStroke:
					strokes++
				}
			}
			if fills != tc.wantFills {
				t.Errorf("fills = %d, want %d", fills, tc.wantFills)
			}
			if strokes != tc.wantStrokes {
				t.Errorf("strokes = %d, want %d", strokes, tc.wantStrokes)
			}
		})
	}
}

func TestCreatures_EmptyPoseDrawsNothing(t *testing.T) {
	for _, c := range []*Creature{Blob(), Ghost(), Bug()} {
		rec := NewRecorder()
		c.Draw(rec, pose.Pose{}, Style{Hue: 120})
		if n := len(rec.Paints()); n != 0 {
			t.Errorf("%s: expected no paint calls for empty pose, got %d", c.Name, n)
		}
	}
}

func TestGhost_ZOrder(t *testing.T) {
	rec := NewRecorder()
	Ghost().Draw(rec, fullPose(), Style{Hue: 200, Debug: true})

	// body fill < limb strokes < eye fills < debug markers
	rank := func(c Call) int {
		switch {
		case c.Op == OpFill && sameColor(c.Color, Hue(200, 0.35)):
			return 0
		case c.Op == OpStroke:
			return 1
		case c.Op == OpFill && (sameColor(c.Color, Black) || sameColor(c.Color, White)):
			return 2
		default:
			return 3
		}
	}

	paints := rec.Paints()
	if len(paints) == 0 {
		t.Fatal("no paint calls recorded")
	}
	if rank(paints[0]) != 0 {
		t.Errorf("first paint should be the body fill, got %+v", paints[0])
	}

	last := -1
	seen := map[int]bool{}
	for i, c := range paints {
		r := rank(c)
		if r < last {
			t.Fatalf("paint %d (%s, rank %d) drawn after rank %d", i, c.Op, r, last)
		}
		last = r
		seen[r] = true
	}
	for r := 0; r <= 3; r++ {
		if !seen[r] {
			t.Errorf("rank %d never drawn", r)
		}
	}
}

func TestDrawMarkers(t *testing.T) {
	p := pose.Pose{Keypoints: []pose.Keypoint{{Name: pose.Nose, X: 50, Y: 60}}}
	rec := NewRecorder()
	DrawMarkers(rec, p, Style{Hue: 0})

	paints := rec.Paints()
	if len(paints) != 2 {
		t.Fatalf("expected marker fill and label, got %d calls", len(paints))
	}
	if paints[1].Op != OpFillText || paints[1].Text != pose.Nose {
		t.Errorf("label call = %+v", paints[1])
	}
	if paints[1].Args[0] != 55 || paints[1].Args[1] != 55 {
		t.Errorf("label at (%v,%v), want (55,55)", paints[1].Args[0], paints[1].Args[1])
	}
	if !sameColor(paints[1].Color, White) {
		t.Errorf("label color = %v, want white", paints[1].Color)
	}
}

func TestLimbStrokeStyle(t *testing.T) {
	rec := NewRecorder()
	Blob().Draw(rec, without(fullPose(), pose.LeftEye), Style{Hue: 120})

	for _, c := range rec.Paints() {
		if c.Op != OpStroke {
			continue
		}
		if c.LineWidth != 10 {
			t.Errorf("line width = %v, want 10", c.LineWidth)
		}
		if !sameColor(c.Color, StrokeColor(120)) {
			t.Errorf("stroke color = %v, want %v", c.Color, StrokeColor(120))
		}
	}
}

func TestHue(t *testing.T) {
	green := Hue(120, 1)
	if green.R != 0 || green.G != 255 || green.B != 0 || green.A != 255 {
		t.Errorf("Hue(120) = %+v, want pure green", green)
	}
	if a := StrokeColor(0).A; a != 179 {
		t.Errorf("stroke alpha = %d, want 179", a)
	}
}
