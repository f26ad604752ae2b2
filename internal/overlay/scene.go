// Package overlay renders the observational preview: the mirrored camera
// frame with skeleton, keypoints and status text. Nothing here feeds back
// into pointer or gesture state.
package overlay

import (
	"fmt"
	"image/color"
	"math"

	"github.com/ayusman/nritya/internal/geom"
	"github.com/ayusman/nritya/internal/gesture"
	"github.com/ayusman/nritya/internal/mapper"
	"github.com/ayusman/nritya/internal/pose"
)

// Colours used by the overlay.
var (
	White      = color.RGBA{255, 255, 255, 255}
	Red        = color.RGBA{255, 0, 0, 255}
	Green      = color.RGBA{0, 128, 0, 255}
	Blue       = color.RGBA{0, 0, 255, 255}
	Yellow     = color.RGBA{255, 255, 0, 255}
	LightGreen = color.RGBA{144, 238, 144, 255}
)

// Dim is the opacity of the black layer drawn over the frame.
const Dim = 0.3

// Line is a skeleton edge.
type Line struct {
	From, To geom.Point
	Color    color.RGBA
	Width    int
}

// Circle is a keypoint marker.
type Circle struct {
	Center      geom.Point
	Radius      int
	Fill        color.RGBA
	Stroke      color.RGBA
	StrokeWidth int
}

// Text is a status line. Size is the nominal font height in pixels.
type Text struct {
	At    geom.Point
	Text  string
	Color color.RGBA
	Size  int
}

// Scene is everything drawn over one frame, in paint order.
type Scene struct {
	Size    geom.Size
	Dim     float64
	Circles []Circle
	Lines   []Line
	Texts   []Text
}

// Strings returns the text of every status line.
func (s Scene) Strings() []string {
	out := make([]string, len(s.Texts))
	for i, t := range s.Texts {
		out[i] = t.Text
	}
	return out
}

// View is the per-frame input to the overlay.
type View struct {
	// Pose is the mirrored pose in canvas space; nil when nobody was
	// detected.
	Pose *pose.Pose

	Canvas geom.Size
	Floor  float64
	Roles  mapper.Roles

	// Pointer is the pointer wrist in display space, before smoothing.
	Pointer mapper.Wrist

	// Cursor is the smoothed cursor.
	Cursor geom.Point

	// Gesture is this frame's click gesture result.
	Gesture gesture.Result

	// Err is a transient cycle error to report.
	Err error
}

// GestureVisible reports whether all three click references are confident.
func (v View) GestureVisible() bool {
	if v.Pose == nil {
		return false
	}
	in := gesture.InputFrom(v.Pose, v.Roles.Click, v.Roles.Shoulder, v.Roles.Head)
	return in.Wrist.Confident(v.Floor) && in.Shoulder.Confident(v.Floor) && in.Head.Confident(v.Floor)
}

// BuildScene lays out the overlay for one frame.
func BuildScene(v View) Scene {
	sc := Scene{Size: v.Canvas, Dim: Dim}

	if v.Err != nil {
		sc.Texts = append(sc.Texts, Text{At: geom.Pt(10, 120), Text: "Error: " + v.Err.Error(), Color: Red, Size: 16})
		return sc
	}

	if !v.Pose.Detected(v.Floor) {
		sc.Texts = append(sc.Texts, Text{At: geom.Pt(10, 120), Text: "No pose detected", Color: Red, Size: 16})
		return sc
	}

	if v.GestureVisible() {
		switch v.Gesture.Transition {
		case gesture.Fire:
			sc.Texts = append(sc.Texts, Text{At: geom.Pt(10, 80), Text: "Click triggered! Lower wrist to reset", Color: Yellow, Size: 14})
		case gesture.Rearm:
			sc.Texts = append(sc.Texts, Text{At: geom.Pt(10, 80), Text: "Ready for next click", Color: LightGreen, Size: 14})
		}

		ready := "NO"
		if v.Gesture.State == gesture.Armed {
			ready = "YES"
		}
		sc.Texts = append(sc.Texts, Text{At: geom.Pt(10, 120), Text: "Wrist ready: " + ready, Color: White, Size: 12})
	}

	for _, k := range v.Pose.Keypoints {
		if !k.Confident(v.Floor) {
			continue
		}

		fill := Red
		switch k.Name {
		case v.Roles.Click:
			fill = Blue
		case v.Roles.Pointer:
			fill = Green
		}
		sc.Circles = append(sc.Circles, Circle{Center: k.Position(), Radius: 8, Fill: fill, Stroke: White, StrokeWidth: 2})

		if k.Name == v.Roles.Pointer {
			sc.Circles = append(sc.Circles, Circle{Center: k.Position(), Radius: 12, Fill: Green, Stroke: Yellow, StrokeWidth: 3})
			sc.Texts = append(sc.Texts, Text{
				At:    geom.Pt(10, 100),
				Text:  fmt.Sprintf("X: %d, Y: %d", int(math.Round(v.Pointer.Display.X)), int(math.Round(v.Pointer.Display.Y))),
				Color: White,
				Size:  12,
			})
		}
	}

	for _, e := range pose.Skeleton {
		a, b := v.Pose.Get(e[0]), v.Pose.Get(e[1])
		if a.Confident(v.Floor) && b.Confident(v.Floor) {
			sc.Lines = append(sc.Lines, Line{From: a.Position(), To: b.Position(), Color: White, Width: 2})
		}
	}

	pointer, click := handName(v.Roles.Pointer), handName(v.Roles.Click)
	sc.Texts = append(sc.Texts,
		Text{At: geom.Pt(10, 20), Text: pointer + " wrist: Move mouse", Color: White, Size: 12},
		Text{At: geom.Pt(10, 40), Text: click + " wrist above head: Click", Color: White, Size: 12},
		Text{At: geom.Pt(10, 60), Text: "Pose detected!", Color: White, Size: 12},
	)
	return sc
}

func handName(l pose.Landmark) string {
	if l == pose.LeftWrist {
		return "Left"
	}
	return "Right"
}
