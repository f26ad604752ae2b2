// Package gesture provides the raise/lower click gesture: a two-state
// hysteresis machine and a rate governor on emitted clicks.
package gesture

import (
	"github.com/ayusman/nritya/internal/pose"
)

// State is the click gesture state.
type State int

const (
	// Armed means a raise above the head will fire a click.
	Armed State = iota
	// Fired means a click fired and the wrist must drop below the
	// shoulder before another one can.
	Fired
)

func (s State) String() string {
	switch s {
	case Armed:
		return "armed"
	case Fired:
		return "fired"
	default:
		return "unknown"
	}
}

// Transition is the state change produced by one frame.
type Transition int

const (
	// None means the frame left the state unchanged.
	None Transition = iota
	// Fire is ARMED -> FIRED.
	Fire
	// Rearm is FIRED -> ARMED.
	Rearm
)

func (t Transition) String() string {
	switch t {
	case Fire:
		return "fire"
	case Rearm:
		return "rearm"
	default:
		return "none"
	}
}

// Input holds the three reference keypoints for one frame. Only vertical
// positions are compared, so any space where y grows downward works.
type Input struct {
	Wrist    pose.Keypoint
	Shoulder pose.Keypoint
	Head     pose.Keypoint
}

// InputFrom picks the click gesture keypoints out of a pose.
func InputFrom(p *pose.Pose, wrist, shoulder, head pose.Landmark) Input {
	return Input{
		Wrist:    p.Get(wrist),
		Shoulder: p.Get(shoulder),
		Head:     p.Get(head),
	}
}

// Machine is the ARMED/FIRED hysteresis machine. It holds the only gesture
// memory carried between frames. The zero value starts Armed.
type Machine struct {
	state State
	floor float64
}

// NewMachine creates a machine using the given confidence floor.
func NewMachine(floor float64) *Machine {
	return &Machine{floor: floor}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Step feeds one frame. A frame without all three keypoints confidently
// present contributes nothing.
func (m *Machine) Step(in Input) Transition {
	if !in.Wrist.Confident(m.floor) || !in.Shoulder.Confident(m.floor) || !in.Head.Confident(m.floor) {
		return None
	}

	switch m.state {
	case Armed:
		if in.Wrist.Y < in.Head.Y {
			m.state = Fired
			return Fire
		}
	case Fired:
		if in.Wrist.Y > in.Shoulder.Y {
			m.state = Armed
			return Rearm
		}
	}
	return None
}

// Reset returns the machine to Armed.
func (m *Machine) Reset() {
	m.state = Armed
}
