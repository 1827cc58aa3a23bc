// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/uxlens/uxlens/internal/domain/types"
)

// ScaleDependencies defines the interface for opinion-scale report operations.
type ScaleDependencies interface {
	ScaleReport(ctx context.Context, runIDs []string, blockID string) (types.ScaleReport, error)
}

// ScaleHandler handles opinion-scale report requests.
type ScaleHandler struct {
	deps ScaleDependencies
}

// NewScaleHandler creates a new scale handler.
func NewScaleHandler(deps ScaleDependencies) *ScaleHandler {
	return &ScaleHandler{deps: deps}
}

// HandleGetScale handles GET /reports/scale?block_id=X requests.
func (h *ScaleHandler) HandleGetScale(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_scale"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	blockID := r.URL.Query().Get("block_id")
	if blockID == "" {
		writeError(w, http.StatusBadRequest, "missing_block_id", NewKind(op, ErrBadRequest))
		return
	}
	report, err := h.deps.ScaleReport(r.Context(), r.URL.Query()["run_id"], blockID)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}
