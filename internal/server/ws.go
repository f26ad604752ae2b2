package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ayusman/nritya/internal/overlay"
)

const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// PoseHandler streams the mapped pose snapshot of every cycle over a
// WebSocket.
type PoseHandler struct {
	hub *overlay.Hub
	log zerolog.Logger
}

// NewPoseHandler creates a new PoseHandler reading from hub.
func NewPoseHandler(hub *overlay.Hub, log zerolog.Logger) *PoseHandler {
	return &PoseHandler{hub: hub, log: log}
}

// ServeHTTP upgrades the connection and writes one JSON snapshot per update.
func (h *PoseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	updates, cancel := h.hub.Subscribe()
	defer cancel()

	// Reads only detect the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(u.Snapshot); err != nil {
				h.log.Debug().Err(err).Msg("websocket write")
				return
			}
		}
	}
}
