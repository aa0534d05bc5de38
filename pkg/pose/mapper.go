package pose

import (
	"errors"
	"fmt"
)

// ErrInvalidSource is returned when the source frame has no area yet.
// Callers skip the frame.
var ErrInvalidSource = errors.New("pose: invalid source dimensions")

// Dims is a width/height pair in pixels.
type Dims struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether both sides are positive.
func (d Dims) Valid() bool {
	return d.Width > 0 && d.Height > 0
}

func (d Dims) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// Map converts a model-space keypoint into canvas-space.
//
// X is mirrored so the overlay matches a selfie view of the camera,
// Y is scaled only. Name and confidence pass through.
func Map(kp Keypoint, source, target Dims) (Keypoint, error) {
	if !source.Valid() {
		return Keypoint{}, fmt.Errorf("%w: %s", ErrInvalidSource, source)
	}

	tw := float64(target.Width)
	th := float64(target.Height)

	return Keypoint{
		Name:       kp.Name,
		X:          tw - (kp.X/float64(source.Width))*tw,
		Y:          (kp.Y / float64(source.Height)) * th,
		Confidence: kp.Confidence,
	}, nil
}

// MapPose maps every keypoint of p into a new Pose.
func MapPose(p Pose, source, target Dims) (Pose, error) {
	if !source.Valid() {
		return Pose{}, fmt.Errorf("%w: %s", ErrInvalidSource, source)
	}

	out := Pose{
		Keypoints: make([]Keypoint, len(p.Keypoints)),
		Score:     p.Score,
	}
	for i, kp := range p.Keypoints {
		mapped, err := Map(kp, source, target)
		if err != nil {
			return Pose{}, err
		}
		out.Keypoints[i] = mapped
	}
	return out, nil
}
