package server

import (
	"fmt"
	"net/http"

	"github.com/ayusman/nritya/internal/overlay"
)

// StreamHandler serves the rendered overlay as MJPEG.
type StreamHandler struct {
	hub *overlay.Hub
}

// NewStreamHandler creates a new StreamHandler reading from hub.
func NewStreamHandler(hub *overlay.Hub) *StreamHandler {
	return &StreamHandler{hub: hub}
}

// ServeHTTP streams MJPEG frames to connected clients until they disconnect.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	updates, cancel := h.hub.Subscribe()
	defer cancel()

	// Start with the latest frame so a new viewer is not blank until the
	// next cycle.
	if latest := h.hub.Latest(); len(latest.JPEG) > 0 {
		if err := writePart(w, latest.JPEG); err != nil {
			return
		}
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if len(u.JPEG) == 0 {
				continue
			}
			if err := writePart(w, u.JPEG); err != nil {
				return
			}
		}
	}
}

func writePart(w http.ResponseWriter, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "\r\n"); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
