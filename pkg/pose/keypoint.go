// Package pose defines detected body keypoints and the transform from
// model-space coordinates into canvas-space.
package pose

// Landmark names from the COCO 17-keypoint vocabulary.
const (
	Nose          = "nose"
	LeftEye       = "left_eye"
	RightEye      = "right_eye"
	LeftEar       = "left_ear"
	RightEar      = "right_ear"
	LeftShoulder  = "left_shoulder"
	RightShoulder = "right_shoulder"
	LeftElbow     = "left_elbow"
	RightElbow    = "right_elbow"
	LeftWrist     = "left_wrist"
	RightWrist    = "right_wrist"
	LeftHip       = "left_hip"
	RightHip      = "right_hip"
	LeftKnee      = "left_knee"
	RightKnee     = "right_knee"
	LeftAnkle     = "left_ankle"
	RightAnkle    = "right_ankle"
)

// Landmarks lists the vocabulary in model output order.
var Landmarks = []string{
	Nose,
	LeftEye, RightEye,
	LeftEar, RightEar,
	LeftShoulder, RightShoulder,
	LeftElbow, RightElbow,
	LeftWrist, RightWrist,
	LeftHip, RightHip,
	LeftKnee, RightKnee,
	LeftAnkle, RightAnkle,
}

// Keypoint is a single named landmark. X and Y are in the units of the
// space that produced it until passed through Map.
type Keypoint struct {
	Name       string  `json:"name"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
}

// IsLandmark reports whether name is part of the vocabulary.
func IsLandmark(name string) bool {
	for _, l := range Landmarks {
		if l == name {
			return true
		}
	}
	return false
}
