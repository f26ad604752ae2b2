package overlay

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Renderer paints each frame and publishes it to a Hub.
type Renderer struct {
	painter Painter
	hub     *Hub
}

// NewRenderer creates a renderer publishing to hub.
func NewRenderer(hub *Hub) *Renderer {
	return &Renderer{hub: hub}
}

// Hub returns the hub frames are published to.
func (r *Renderer) Hub() *Hub {
	return r.hub
}

// Render draws v over frame and publishes the JPEG and snapshot.
func (r *Renderer) Render(frame *gocv.Mat, v View) error {
	sc := BuildScene(v)

	img, err := r.painter.Paint(frame, sc)
	if err != nil {
		return err
	}
	defer img.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		return fmt.Errorf("overlay: encode: %w", err)
	}
	defer buf.Close()

	// GetBytes aliases native memory released by buf.Close.
	data := append([]byte(nil), buf.GetBytes()...)

	r.hub.Publish(Update{JPEG: data, Snapshot: SnapshotOf(v)})
	return nil
}

// SnapshotOf extracts the published data from a view.
func SnapshotOf(v View) Snapshot {
	s := Snapshot{
		Cursor: v.Cursor,
		State:  v.Gesture.State.String(),
	}
	if v.Pose.Detected(v.Floor) {
		s.Pose = v.Pose
	}
	if v.Err != nil {
		s.Status = "Error: " + v.Err.Error()
	}
	return s
}
