package pose

import (
	"context"
	"sync"

	"gocv.io/x/gocv"
)

// Step is one scripted estimator result.
type Step struct {
	Pose *Pose
	Err  error
}

// ScriptedEstimator is a test implementation of the Estimator interface.
// It replays a fixed sequence of results; once the script is exhausted the
// last step repeats.
type ScriptedEstimator struct {
	mu      sync.Mutex
	steps   []Step
	next    int
	loadErr error
	loaded  bool
	calls   int
	closed  bool
}

// NewScriptedEstimator creates an estimator that replays steps in order.
func NewScriptedEstimator(steps ...Step) *ScriptedEstimator {
	return &ScriptedEstimator{steps: steps}
}

// Poses is shorthand for a script of successful estimates.
func Poses(poses ...*Pose) []Step {
	steps := make([]Step, len(poses))
	for i, p := range poses {
		steps[i] = Step{Pose: p}
	}
	return steps
}

// SetLoadError makes Load fail with err.
func (s *ScriptedEstimator) SetLoadError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadErr = err
}

// SetSteps replaces the script and rewinds it.
func (s *ScriptedEstimator) SetSteps(steps ...Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = steps
	s.next = 0
}

// Load succeeds unless a load error was set.
func (s *ScriptedEstimator) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return s.loadErr
	}
	s.loaded = true
	return nil
}

// Estimate returns the next scripted result.
func (s *ScriptedEstimator) Estimate(ctx context.Context, frame *gocv.Mat) (*Pose, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return nil, ErrNotLoaded
	}
	s.calls++

	if len(s.steps) == 0 {
		return nil, nil
	}

	step := s.steps[s.next]
	if s.next < len(s.steps)-1 {
		s.next++
	}
	return step.Pose.Clone(), step.Err
}

// Close marks the estimator closed.
func (s *ScriptedEstimator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.loaded = false
	return nil
}

// Calls returns the number of Estimate calls made after Load.
func (s *ScriptedEstimator) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Closed reports whether Close was called.
func (s *ScriptedEstimator) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// NeutralPose returns a preset standing pose in 192px model space with both
// wrists lowered below the shoulders. Every keypoint scores 0.9.
func NeutralPose() *Pose {
	p := NewPose(DefaultModelSize)

	p.Set(Nose, 96, 40, 0.9)
	p.Set(LeftEye, 104, 34, 0.9)
	p.Set(RightEye, 88, 34, 0.9)
	p.Set(LeftEar, 114, 38, 0.9)
	p.Set(RightEar, 78, 38, 0.9)

	// Image left is the subject's right side.
	p.Set(LeftShoulder, 126, 80, 0.9)
	p.Set(RightShoulder, 66, 80, 0.9)
	p.Set(LeftElbow, 136, 112, 0.9)
	p.Set(RightElbow, 56, 112, 0.9)
	p.Set(LeftWrist, 138, 144, 0.9)
	p.Set(RightWrist, 54, 144, 0.9)

	p.Set(LeftHip, 116, 150, 0.9)
	p.Set(RightHip, 76, 150, 0.9)
	p.Set(LeftKnee, 118, 172, 0.9)
	p.Set(RightKnee, 74, 172, 0.9)
	p.Set(LeftAnkle, 118, 190, 0.9)
	p.Set(RightAnkle, 74, 190, 0.9)

	return p
}

// ClickRaisedPose returns NeutralPose with the left wrist raised above the nose.
func ClickRaisedPose() *Pose {
	p := NeutralPose()
	p.Set(LeftElbow, 134, 50, 0.9)
	p.Set(LeftWrist, 132, 20, 0.9)
	return p
}

// PointerAt returns NeutralPose with the right wrist moved to (x, y) in
// model space.
func PointerAt(x, y float64) *Pose {
	p := NeutralPose()
	p.Set(RightWrist, x, y, 0.9)
	return p
}
