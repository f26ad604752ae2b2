package overlay

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/ayusman/nritya/internal/geom"
)

// Painter draws a Scene over a camera frame with OpenCV.
type Painter struct{}

// Paint returns a new Mat holding the frame resized to the scene's canvas,
// mirrored, dimmed and overdrawn. The caller closes the result.
func (Painter) Paint(frame *gocv.Mat, sc Scene) (gocv.Mat, error) {
	if frame == nil || frame.Empty() {
		return gocv.NewMat(), fmt.Errorf("overlay: empty frame")
	}

	size := image.Pt(int(sc.Size.W), int(sc.Size.H))
	if size.X <= 0 || size.Y <= 0 {
		size = image.Pt(frame.Cols(), frame.Rows())
	}

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(*frame, &resized, size, 0, 0, gocv.InterpolationLinear)

	out := gocv.NewMat()
	gocv.Flip(resized, &out, 1)

	if sc.Dim > 0 {
		out.MultiplyFloat(float32(1 - sc.Dim))
	}

	for _, c := range sc.Circles {
		center := toImage(c.Center)
		gocv.Circle(&out, center, c.Radius, c.Fill, -1)
		if c.StrokeWidth > 0 {
			gocv.Circle(&out, center, c.Radius, c.Stroke, c.StrokeWidth)
		}
	}

	for _, l := range sc.Lines {
		gocv.Line(&out, toImage(l.From), toImage(l.To), l.Color, l.Width)
	}

	for _, t := range sc.Texts {
		gocv.PutText(&out, t.Text, toImage(t.At), gocv.FontHersheySimplex, fontScale(t.Size), t.Color, 1)
	}

	return out, nil
}

// fontScale converts a nominal pixel height to a Hershey font scale.
func fontScale(px int) float64 {
	if px <= 0 {
		px = 12
	}
	return float64(px) / 30.0
}

func toImage(p geom.Point) image.Point {
	return image.Pt(int(p.X+0.5), int(p.Y+0.5))
}
