package api

import (
	"net/http"
	"strconv"

	"github.com/ayusman/nritya/internal/store"
)

// ClickLister lists logged clicks. *store.ClickRepository implements it.
type ClickLister interface {
	List(limit int) ([]*store.Click, error)
	Count() (int, error)
}

// ClicksHandler serves GET /api/clicks.
type ClicksHandler struct {
	clicks ClickLister
}

// NewClicksHandler creates a ClicksHandler.
func NewClicksHandler(c ClickLister) *ClicksHandler {
	return &ClicksHandler{clicks: c}
}

type listClicksResponse struct {
	Clicks []*store.Click `json:"clicks"`
	Total  int            `json:"total"`
}

// List handles GET /api/clicks?limit=n and returns the newest clicks first.
func (h *ClicksHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	clicks, err := h.clicks.List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list clicks")
		return
	}
	total, err := h.clicks.Count()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count clicks")
		return
	}

	if clicks == nil {
		clicks = []*store.Click{}
	}
	writeJSON(w, http.StatusOK, listClicksResponse{Clicks: clicks, Total: total})
}
