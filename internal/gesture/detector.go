package gesture

import "time"

// Result describes what one frame did to the click gesture.
type Result struct {
	Transition Transition
	State      State

	// Click is true when a click intent should be emitted.
	Click bool

	// Suppressed is true when the machine fired but the governor held
	// the click back.
	Suppressed bool
}

// Detector combines the hysteresis machine with the rate governor. The
// governor is consulted only when the machine fires; it never blocks a
// state transition.
type Detector struct {
	machine  *Machine
	governor *Governor
}

// NewDetector creates a click detector.
func NewDetector(floor float64, cooldown time.Duration, now func() time.Time) *Detector {
	return &Detector{
		machine:  NewMachine(floor),
		governor: NewGovernor(cooldown, now),
	}
}

// Step feeds one frame and reports whether to emit a click.
func (d *Detector) Step(in Input) Result {
	tr := d.machine.Step(in)
	r := Result{Transition: tr, State: d.machine.State()}

	if tr == Fire {
		if d.governor.Allow() {
			r.Click = true
		} else {
			r.Suppressed = true
		}
	}
	return r
}

// State returns the machine state.
func (d *Detector) State() State {
	return d.machine.State()
}

// Reset re-arms the machine and clears the cooldown.
func (d *Detector) Reset() {
	d.machine.Reset()
	d.governor.Reset()
}
