// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/uxlens/uxlens/internal/domain/types"
)

// SummaryDependencies defines the interface for summary report operations.
type SummaryDependencies interface {
	BlockSummary(ctx context.Context, runIDs []string, blockID string) (types.Summary, error)
}

// SummaryHandler handles block summary report requests.
type SummaryHandler struct {
	deps SummaryDependencies
}

// NewSummaryHandler creates a new summary handler.
func NewSummaryHandler(deps SummaryDependencies) *SummaryHandler {
	return &SummaryHandler{deps: deps}
}

// HandleGetSummary handles GET /reports/summary?block_id=X requests.
// Repeatable run_id parameters narrow the report to those runs.
func (h *SummaryHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_summary"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	blockID := r.URL.Query().Get("block_id")
	if blockID == "" {
		writeError(w, http.StatusBadRequest, "missing_block_id", NewKind(op, ErrBadRequest))
		return
	}
	summary, err := h.deps.BlockSummary(r.Context(), r.URL.Query()["run_id"], blockID)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
