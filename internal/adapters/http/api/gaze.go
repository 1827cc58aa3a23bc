// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/uxlens/uxlens/internal/domain/model"
)

// GazeDependencies defines the interface for gaze sample registration.
type GazeDependencies interface {
	RecordGaze(ctx context.Context, samples []model.GazeSample) error
}

// GazeHandler handles gaze sample ingestion requests.
type GazeHandler struct {
	deps GazeDependencies
}

// NewGazeHandler creates a new gaze handler.
func NewGazeHandler(deps GazeDependencies) *GazeHandler {
	return &GazeHandler{deps: deps}
}

// gazeRequest mirrors the wire schema for a gaze sample. Coordinates are
// normalized to [0,1] of the logical screen.
type gazeRequest struct {
	SessionID string  `json:"session_id"`
	RunID     string  `json:"run_id"`
	BlockID   string  `json:"block_id"`
	ScreenID  string  `json:"screen_id"`
	TS        string  `json:"ts"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

func (g gazeRequest) validate() error {
	switch {
	case strings.TrimSpace(g.SessionID) == "":
		return errors.New("missing session_id")
	case strings.TrimSpace(g.BlockID) == "":
		return errors.New("missing block_id")
	case strings.TrimSpace(g.ScreenID) == "":
		return errors.New("missing screen_id")
	case strings.TrimSpace(g.TS) == "":
		return errors.New("missing ts")
	}
	if _, err := time.Parse(time.RFC3339, g.TS); err != nil {
		return errors.New("invalid ts; must be RFC3339")
	}
	if g.X < 0 || g.X > 1 || g.Y < 0 || g.Y > 1 {
		return errors.New("coordinates must be normalized to [0,1]")
	}
	return nil
}

func (g gazeRequest) toModel() model.GazeSample {
	ts, _ := time.Parse(time.RFC3339, g.TS)
	return model.GazeSample{
		SessionID: g.SessionID,
		RunID:     g.RunID,
		BlockID:   g.BlockID,
		ScreenID:  g.ScreenID,
		TS:        ts,
		XNorm:     g.X,
		YNorm:     g.Y,
	}
}

// gazeBatchRequest is the POST /gaze body.
type gazeBatchRequest struct {
	Samples []gazeRequest `json:"samples"`
}

// HandlePostGaze handles POST /gaze requests.
func (h *GazeHandler) HandlePostGaze(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_gaze"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req gazeBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(req.Samples) == 0 {
		writeError(w, http.StatusBadRequest, "empty_batch", NewKind(op, ErrBadRequest))
		return
	}

	samples := make([]model.GazeSample, 0, len(req.Samples))
	for _, g := range req.Samples {
		if err := g.validate(); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		samples = append(samples, g.toModel())
	}

	if err := h.deps.RecordGaze(r.Context(), samples); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusAccepted, batchAckResponse{Status: "accepted", Accepted: len(samples)})
}
