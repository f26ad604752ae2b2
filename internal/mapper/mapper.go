// Package mapper converts model-space poses into capture-canvas and
// display coordinates and keeps the smoothed cursor position.
package mapper

import (
	"fmt"

	"github.com/ayusman/nritya/internal/geom"
	"github.com/ayusman/nritya/internal/pose"
)

// DefaultConfidence is the keypoint score a landmark must exceed to be used.
const DefaultConfidence = 0.2

// Hand names the wrist that drives the pointer.
type Hand string

const (
	HandRight Hand = "right"
	HandLeft  Hand = "left"
)

// Roles assigns landmarks to the pointer and the click gesture.
type Roles struct {
	Pointer  pose.Landmark
	Click    pose.Landmark
	Shoulder pose.Landmark
	Head     pose.Landmark
}

// RolesFor returns the landmark roles for a pointer hand. The other wrist
// and its shoulder form the click gesture.
func RolesFor(hand Hand) (Roles, error) {
	switch hand {
	case HandRight, "":
		return Roles{
			Pointer:  pose.RightWrist,
			Click:    pose.LeftWrist,
			Shoulder: pose.LeftShoulder,
			Head:     pose.Nose,
		}, nil
	case HandLeft:
		return Roles{
			Pointer:  pose.LeftWrist,
			Click:    pose.RightWrist,
			Shoulder: pose.RightShoulder,
			Head:     pose.Nose,
		}, nil
	default:
		return Roles{}, fmt.Errorf("unknown pointer hand %q", hand)
	}
}

// Mirror flips x horizontally within a surface of the given width.
func Mirror(x, width float64) float64 {
	return width - x
}

// ToCanvas rescales a pose from its own space into the canvas and mirrors
// every keypoint horizontally. The input is not modified.
func ToCanvas(p *pose.Pose, canvas geom.Size) *pose.Pose {
	if p == nil {
		return nil
	}

	out := p.Clone()
	sx, sy := 1.0, 1.0
	if !p.Space.Empty() {
		sx = canvas.W / p.Space.W
		sy = canvas.H / p.Space.H
	}

	for i := range out.Keypoints {
		k := &out.Keypoints[i]
		k.X = Mirror(k.X*sx, canvas.W)
		k.Y = k.Y * sy
	}
	out.Space = canvas
	return out
}

// ToDisplay scales a canvas point into display coordinates.
func ToDisplay(pt geom.Point, canvas, display geom.Size) geom.Point {
	if canvas.Empty() {
		return geom.Point{}
	}
	return geom.Point{
		X: pt.X / canvas.W * display.W,
		Y: pt.Y / canvas.H * display.H,
	}
}

// Wrist is a wrist keypoint resolved into display space.
type Wrist struct {
	Canvas  geom.Point
	Display geom.Point
	Score   float64
	Visible bool
}

// Frame is the result of mapping one pose.
type Frame struct {
	// Canvas is the mirrored pose in canvas space; nil when no pose was
	// given.
	Canvas *pose.Pose

	// Pointer is the pointer wrist before smoothing.
	Pointer Wrist

	// Click is the click wrist. It is never smoothed.
	Click Wrist

	// Cursor is the smoothed cursor position after this frame.
	Cursor geom.Point

	// Moved reports whether the cursor was updated from this frame.
	Moved bool
}

// Mapper maps poses for a fixed capture canvas. It owns the smoothed
// cursor state, so one Mapper serves one session.
type Mapper struct {
	canvas   geom.Size
	roles    Roles
	floor    float64
	smoother Smoother
}

// New creates a Mapper for the given canvas and roles. A non-positive floor
// selects DefaultConfidence.
func New(canvas geom.Size, roles Roles, floor float64) *Mapper {
	if floor <= 0 {
		floor = DefaultConfidence
	}
	return &Mapper{canvas: canvas, roles: roles, floor: floor}
}

// Canvas returns the capture canvas size.
func (m *Mapper) Canvas() geom.Size {
	return m.canvas
}

// Roles returns the landmark roles in use.
func (m *Mapper) Roles() Roles {
	return m.roles
}

// Map converts a raw pose into canvas and display coordinates. The cursor is
// only updated when the pointer wrist is confident.
func (m *Mapper) Map(raw *pose.Pose, display geom.Size) Frame {
	f := Frame{Cursor: m.smoother.Current()}
	if raw == nil {
		return f
	}

	f.Canvas = ToCanvas(raw, m.canvas)
	f.Pointer = m.wrist(f.Canvas, m.roles.Pointer, display)
	f.Click = m.wrist(f.Canvas, m.roles.Click, display)

	if f.Pointer.Visible {
		f.Cursor = m.smoother.Smooth(f.Pointer.Display)
		f.Moved = true
	}
	return f
}

// Cursor returns the current smoothed cursor position.
func (m *Mapper) Cursor() geom.Point {
	return m.smoother.Current()
}

// Reset returns the cursor to its initial state.
func (m *Mapper) Reset() {
	m.smoother.Reset()
}

func (m *Mapper) wrist(canvas *pose.Pose, l pose.Landmark, display geom.Size) Wrist {
	k := canvas.Get(l)
	return Wrist{
		Canvas:  k.Position(),
		Display: ToDisplay(k.Position(), m.canvas, display),
		Score:   k.Score,
		Visible: k.Confident(m.floor),
	}
}
