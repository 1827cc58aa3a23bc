// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/uxlens/uxlens/internal/domain/heatmap"
)

// Default logical screen dimensions when the client omits them.
const (
	defaultScreenW = 1280.0
	defaultScreenH = 800.0
)

// HeatmapDependencies defines the interface for heatmap report operations.
type HeatmapDependencies interface {
	ScreenHeatmap(ctx context.Context, runIDs []string, blockID, screenID string, p HeatmapParams) (*heatmap.Raster, error)
}

// HeatmapHandler handles heatmap rendering requests.
type HeatmapHandler struct {
	deps HeatmapDependencies
}

// NewHeatmapHandler creates a new heatmap handler.
func NewHeatmapHandler(deps HeatmapDependencies) *HeatmapHandler {
	return &HeatmapHandler{deps: deps}
}

// HandleGetHeatmap handles GET /reports/heatmap requests.
//
// Query parameters:
//
//	block_id   (required) block to report on
//	screen_id  (required) screen to rasterize
//	source     "click" (default) or "gaze"
//	first_only "true" keeps only the first point per session
//	w, h       logical screen dimensions in px
//
// The response body is a PNG image.
func (h *HeatmapHandler) HandleGetHeatmap(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_heatmap"
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
	switch q.Get("source") {
	case "", "click":
	case "gaze":
		params.Source = "gaze"
	default:
		writeError(w, http.StatusBadRequest, "invalid_source", NewKind(op, ErrBadRequest))
		return
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

	raster, err := h.deps.ScreenHeatmap(r.Context(), q["run_id"], blockID, screenID, params)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if err := raster.EncodePNG(w); err != nil {
		// Headers are already out; nothing left to do but log via middleware metrics.
		return
	}
}
