// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/uxlens/uxlens/internal/domain/flow"
)

// FlowDependencies defines the interface for flow report operations.
type FlowDependencies interface {
	BlockFlow(ctx context.Context, runIDs []string, blockID string) (*flow.Graph, error)
}

// FlowHandler handles flow graph report requests.
type FlowHandler struct {
	deps FlowDependencies
}

// NewFlowHandler creates a new flow handler.
func NewFlowHandler(deps FlowDependencies) *FlowHandler {
	return &FlowHandler{deps: deps}
}

// HandleGetFlow handles GET /reports/flow?block_id=X requests.
func (h *FlowHandler) HandleGetFlow(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_flow"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	blockID := r.URL.Query().Get("block_id")
	if blockID == "" {
		writeError(w, http.StatusBadRequest, "missing_block_id", NewKind(op, ErrBadRequest))
		return
	}
	graph, err := h.deps.BlockFlow(r.Context(), r.URL.Query()["run_id"], blockID)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, graph)
}
