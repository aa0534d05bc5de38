package movenet

import (
	"github.com/teslashibe/go-creatures/pkg/pose"
)

const (
	numKeypoints = 17
	tripleLen    = 3
	singleLen    = numKeypoints * tripleLen
	multiRowLen  = singleLen + 5
)

// DecodeSingle reads a single-pose output of 17 (y, x, score) triples.
// Keypoints below minScore are left out. The pose score is the mean of
// all keypoint scores.
func DecodeSingle(data []float32, width, height, minScore float64) []pose.Pose {
	if len(data) < singleLen {
		return nil
	}
	p := decodeKeypoints(data[:singleLen], width, height, minScore)
	if len(p.Keypoints) == 0 {
		return nil
	}
	return []pose.Pose{p}
}

// DecodeMulti reads up to maxPoses multi-pose rows. Rows scoring below
// minPoseScore are dropped; keypoints below minScore are left out.
func DecodeMulti(data []float32, width, height, minScore, minPoseScore float64, maxPoses int) []pose.Pose {
	rows := len(data) / multiRowLen
	if maxPoses > 0 && rows > maxPoses {
		rows = maxPoses
	}

	var poses []pose.Pose
	for i := 0; i < rows; i++ {
		row := data[i*multiRowLen : (i+1)*multiRowLen]
		score := float64(row[multiRowLen-1])
		if score < minPoseScore {
			continue
		}
		p := decodeKeypoints(row[:singleLen], width, height, minScore)
		if len(p.Keypoints) == 0 {
			continue
		}
		p.Score = score
		poses = append(poses, p)
	}
	return poses
}

func decodeKeypoints(triples []float32, width, height, minScore float64) pose.Pose {
	var p pose.Pose
	var total float64
	for i, name := range pose.Landmarks {
		y := float64(triples[i*tripleLen])
		x := float64(triples[i*tripleLen+1])
		s := float64(triples[i*tripleLen+2])
		total += s
		if s < minScore {
			continue
		}
		p.Keypoints = append(p.Keypoints, pose.Keypoint{
			Name:       name,
			X:          x * width,
			Y:          y * height,
			Confidence: s,
		})
	}
	p.Score = total / numKeypoints
	return p
}
