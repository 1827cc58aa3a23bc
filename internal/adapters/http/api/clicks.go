// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/uxlens/uxlens/internal/domain/types"
)

// ClicksDependencies defines the interface for click-overlay operations.
type ClicksDependencies interface {
	ScreenClicks(ctx context.Context, runIDs []string, blockID, screenID string, p HeatmapParams) ([]types.ClickMarker, error)
}

// ClicksHandler serves the discrete click-order overlay.
type ClicksHandler struct {
	deps ClicksDependencies
}

// NewClicksHandler creates a new clicks handler.
func NewClicksHandler(deps ClicksDependencies) *ClicksHandler {
	return &ClicksHandler{deps: deps}
}

// clicksResponse is the wire form of the click-order overlay.
type clicksResponse struct {
	BlockID  string              `json:"block_id"`
	ScreenID string              `json:"screen_id"`
	Markers  []types.ClickMarker `json:"markers"`
}

// HandleGetClicks handles GET /reports/clicks requests.
//
// Query parameters:
//
//	block_id   (required) block to report on
//	screen_id  (required) screen whose clicks to list
//	first_only "true" keeps only the first click per session
//	w, h       logical screen dimensions in px (for fallback markers)
func (h *ClicksHandler) HandleGetClicks(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_clicks"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	blockID := q.Get("block_id")
	screenID := q.Get("screen_id")
	if blockID == "" || screenID == "" {
		writeError(w, http.StatusBadRequest, "missing_parameter", NewKind(op, ErrBadRequest))
		return
	}

	params := HeatmapParams{
		Source:  "click",
		ScreenW: defaultScreenW,
		ScreenH: defaultScreenH,
	}
	if q.Get("first_only") == "true" {
		params.FirstPerSession = true
	}
	if v := q.Get("w"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_width", NewKind(op, ErrBadRequest))
			return
		}
		params.ScreenW = f
	}
	if v := q.Get("h"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_height", NewKind(op, ErrBadRequest))
			return
		}
		params.ScreenH = f
	}

	markers, err := h.deps.ScreenClicks(r.Context(), q["run_id"], blockID, screenID, params)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	if markers == nil {
		markers = []types.ClickMarker{}
	}
	writeJSON(w, http.StatusOK, clicksResponse{
		BlockID:  blockID,
		ScreenID: screenID,
		Markers:  markers,
	})
}
