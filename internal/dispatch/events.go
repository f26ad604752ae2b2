package dispatch

import "github.com/ayusman/nritya/internal/geom"

// Kind selects the DOM event constructor.
type Kind string

const (
	KindMouse   Kind = "mouse"
	KindPointer Kind = "pointer"
	KindTouch   Kind = "touch"
)

// Event is a synthetic input event at a display point. Client, screen and
// page coordinates are all set to Point.
type Event struct {
	Type    string     `json:"type"`
	Kind    Kind       `json:"kind"`
	Point   geom.Point `json:"point"`
	Button  int        `json:"button"`
	Buttons int        `json:"buttons"`

	// TouchID identifies the touch point for touch events.
	TouchID int64 `json:"touchId,omitempty"`
}

// Event type sequences.
var (
	// ClickSequence is dispatched to the hit element, the document and
	// the window.
	ClickSequence = []Event{
		{Type: "mousedown", Kind: KindMouse},
		{Type: "mouseup", Kind: KindMouse},
		{Type: "click", Kind: KindMouse},
		{Type: "pointerdown", Kind: KindPointer},
		{Type: "pointerup", Kind: KindPointer},
		{Type: "pointermove", Kind: KindPointer},
		{Type: "touchstart", Kind: KindTouch},
		{Type: "touchend", Kind: KindTouch},
	}

	// CanvasSequence is repeated on canvas elements, which usually do
	// their own hit-testing.
	CanvasSequence = []Event{
		{Type: "mousedown", Kind: KindMouse},
		{Type: "mouseup", Kind: KindMouse},
		{Type: "click", Kind: KindMouse},
		{Type: "pointerdown", Kind: KindPointer},
		{Type: "pointerup", Kind: KindPointer},
	}
)

// at returns a copy of the template placed at pt with the primary button
// pressed.
func at(tmpl Event, pt geom.Point, touchID int64) Event {
	ev := tmpl
	ev.Point = pt
	ev.Button = 0
	ev.Buttons = 1
	if ev.Kind == KindTouch {
		ev.TouchID = touchID
	}
	return ev
}
