// Package pose provides the keypoint model adapter: body landmark types and
// the estimators that turn a camera frame into a single-person pose.
package pose

import (
	"fmt"

	"github.com/ayusman/nritya/internal/geom"
)

// Landmark identifies one of the 17 body keypoints, following the
// COCO/MoveNet ordering. The value is the keypoint's index in a Pose.
type Landmark int

const (
	Nose Landmark = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	NumLandmarks = 17
)

// DefaultModelSize is the square input resolution of MoveNet Lightning.
const DefaultModelSize = 192

var landmarkNames = [NumLandmarks]string{
	"nose", "leftEye", "rightEye", "leftEar", "rightEar",
	"leftShoulder", "rightShoulder", "leftElbow", "rightElbow",
	"leftWrist", "rightWrist", "leftHip", "rightHip",
	"leftKnee", "rightKnee", "leftAnkle", "rightAnkle",
}

// String returns the landmark's camelCase name, e.g. "leftWrist".
func (l Landmark) String() string {
	if l < 0 || int(l) >= NumLandmarks {
		return fmt.Sprintf("Landmark(%d)", int(l))
	}
	return landmarkNames[l]
}

// ParseLandmark resolves a landmark from its name.
func ParseLandmark(name string) (Landmark, error) {
	for i, n := range landmarkNames {
		if n == name {
			return Landmark(i), nil
		}
	}
	return 0, fmt.Errorf("unknown landmark %q", name)
}

// Edge is a skeleton connection between two landmark indices.
type Edge [2]Landmark

// Skeleton lists the connections drawn by the overlay.
var Skeleton = []Edge{
	{Nose, LeftEye}, {Nose, RightEye},
	{LeftEye, LeftEar}, {RightEye, RightEar},
	{LeftShoulder, RightShoulder},
	{LeftShoulder, LeftElbow}, {LeftElbow, LeftWrist},
	{RightShoulder, RightElbow}, {RightElbow, RightWrist},
	{LeftShoulder, LeftHip}, {RightShoulder, RightHip},
	{LeftHip, RightHip},
	{LeftHip, LeftKnee}, {LeftKnee, LeftAnkle},
	{RightHip, RightKnee}, {RightKnee, RightAnkle},
}

// Keypoint is a named 2D landmark with a confidence score in [0,1].
type Keypoint struct {
	Name  Landmark `json:"-"`
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Score float64  `json:"score"`
}

// Position returns the keypoint's coordinates.
func (k Keypoint) Position() geom.Point {
	return geom.Point{X: k.X, Y: k.Y}
}

// Confident reports whether the score strictly exceeds floor. Keypoints at
// or below the floor are treated as absent.
func (k Keypoint) Confident(floor float64) bool {
	return k.Score > floor
}

// Pose is the full set of keypoints detected in one frame. Keypoints are
// index-addressable by Landmark. Space gives the extent of the coordinate
// space the keypoints are expressed in (the model input for raw poses).
type Pose struct {
	Keypoints [NumLandmarks]Keypoint `json:"keypoints"`
	Space     geom.Size              `json:"space"`
}

// NewPose returns a pose in a square model space of the given size with
// every keypoint named and zero-scored.
func NewPose(modelSize float64) *Pose {
	p := &Pose{Space: geom.Size{W: modelSize, H: modelSize}}
	for i := range p.Keypoints {
		p.Keypoints[i].Name = Landmark(i)
	}
	return p
}

// Get returns the keypoint for a landmark.
func (p *Pose) Get(l Landmark) Keypoint {
	return p.Keypoints[l]
}

// Set stores a keypoint at its landmark's index.
func (p *Pose) Set(l Landmark, x, y, score float64) {
	p.Keypoints[l] = Keypoint{Name: l, X: x, Y: y, Score: score}
}

// Detected reports whether at least one keypoint exceeds floor.
func (p *Pose) Detected(floor float64) bool {
	if p == nil {
		return false
	}
	for _, k := range p.Keypoints {
		if k.Confident(floor) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the pose.
func (p *Pose) Clone() *Pose {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
