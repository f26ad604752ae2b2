package api

import (
	"context"
	"encoding/json"
	"net/http"
)

// Controller is the enable/disable surface. *control.Controller implements it.
type Controller interface {
	Set(ctx context.Context, enabled bool) error
	Enabled() bool
	Preference() (bool, error)
}

// ControlHandler serves GET and PUT /api/control.
type ControlHandler struct {
	control Controller
	status  func() string
}

// NewControlHandler creates a ControlHandler. status may be nil.
func NewControlHandler(c Controller, status func() string) *ControlHandler {
	return &ControlHandler{control: c, status: status}
}

type controlRequest struct {
	Enabled *bool `json:"enabled"`
}

type controlResponse struct {
	Enabled    bool   `json:"enabled"`
	Preference bool   `json:"preference"`
	Status     string `json:"status,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (h *ControlHandler) state() controlResponse {
	resp := controlResponse{Enabled: h.control.Enabled()}
	if pref, err := h.control.Preference(); err == nil {
		resp.Preference = pref
	}
	if h.status != nil {
		resp.Status = h.status()
	}
	return resp
}

// Get handles GET /api/control.
func (h *ControlHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.state())
}

// Put handles PUT /api/control with body {"enabled": bool}. A session that
// fails to start answers 503 with the error and the resulting state.
func (h *ControlHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	err := h.control.Set(r.Context(), *req.Enabled)
	resp := h.state()
	if err != nil {
		resp.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
