package pose

// Pose is the keypoint set for one detected subject in one frame.
// A Pose is produced fresh by every estimate call and must not be
// mutated or kept across frames.
type Pose struct {
	Keypoints []Keypoint `json:"keypoints"`
	Score     float64    `json:"score"`
}

// Find returns the keypoint with the given name.
func (p Pose) Find(name string) (Keypoint, bool) {
	for _, kp := range p.Keypoints {
		if kp.Name == name {
			return kp, true
		}
	}
	return Keypoint{}, false
}

// Lookup returns the named keypoints in the order requested.
// ok is false if any of them is missing.
func (p Pose) Lookup(names ...string) (kps []Keypoint, ok bool) {
	kps = make([]Keypoint, 0, len(names))
	for _, name := range names {
		kp, found := p.Find(name)
		if !found {
			return nil, false
		}
		kps = append(kps, kp)
	}
	return kps, true
}

// Len returns the number of keypoints.
func (p Pose) Len() int {
	return len(p.Keypoints)
}
