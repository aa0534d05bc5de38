package creature

import (
	"fmt"

	"github.com/teslashibe/go-creatures/pkg/pose"
)

// Layer orders parts within one subject's draw pass.
// Lower layers are drawn first.
type Layer int

const (
	LayerBody Layer = iota
	LayerLimbs
	LayerHead
	LayerEyes
)

// Layers returns every layer in draw order.
func Layers() []Layer {
	return []Layer{LayerBody, LayerLimbs, LayerHead, LayerEyes}
}

func (l Layer) String() string {
	switch l {
	case LayerBody:
		return "body"
	case LayerLimbs:
		return "limbs"
	case LayerHead:
		return "head"
	case LayerEyes:
		return "eyes"
	default:
		return fmt.Sprintf("layer(%d)", int(l))
	}
}

// Style carries the per-subject drawing parameters.
type Style struct {
	Hue   float64 // Subject hue in degrees
	Debug bool    // Overlay raw keypoint markers and labels
}

// Part draws one body part. It must skip itself when a keypoint it
// needs is absent from p.
type Part func(s Surface, p pose.Pose, st Style)

// Creature is a named set of parts. Layers without a part are no-ops.
type Creature struct {
	Name        string
	Description string
	Parts       map[Layer]Part
}

// Has reports whether the creature draws the given layer.
func (c *Creature) Has(l Layer) bool {
	return c.Parts[l] != nil
}

// Draw renders one subject: body, limbs, head, eyes, then debug markers.
func (c *Creature) Draw(s Surface, p pose.Pose, st Style) {
	for _, layer := range Layers() {
		if part := c.Parts[layer]; part != nil {
			part(s, p, st)
		}
	}
	if st.Debug {
		DrawMarkers(s, p, st)
	}
}

// DrawMarkers draws a dot and a label at every keypoint.
func DrawMarkers(s Surface, p pose.Pose, st Style) {
	for _, kp := range p.Keypoints {
		s.BeginPath()
		Circle(s, kp.X, kp.Y, 5)
		s.SetFillColor(Hue(st.Hue, 1))
		s.Fill()
		s.SetFillColor(White)
		s.FillText(kp.Name, kp.X+5, kp.Y-5)
	}
}
