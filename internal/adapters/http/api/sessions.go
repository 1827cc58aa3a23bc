// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/uxlens/uxlens/internal/domain/model"
)

// SessionDependencies defines the interface for session registration.
type SessionDependencies interface {
	RecordSessions(ctx context.Context, sessions []model.Session) error
}

// SessionsHandler handles session registration requests.
type SessionsHandler struct {
	deps SessionDependencies
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(deps SessionDependencies) *SessionsHandler {
	return &SessionsHandler{deps: deps}
}

// sessionsRequest is the POST /sessions body.
type sessionsRequest struct {
	Sessions []sessionRequest `json:"sessions"`
}

// HandlePostSessions handles POST /sessions requests.
//
// Sessions are upserted: posting the same session id again replaces the
// stored row, which lets clients flip the completed/aborted flags late.
func (h *SessionsHandler) HandlePostSessions(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_sessions"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req sessionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(req.Sessions) == 0 {
		writeError(w, http.StatusBadRequest, "empty_batch", NewKind(op, ErrBadRequest))
		return
	}

	sessions := make([]model.Session, 0, len(req.Sessions))
	for _, s := range req.Sessions {
		if err := s.validate(); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		sessions = append(sessions, s.toModel())
	}

	if err := h.deps.RecordSessions(r.Context(), sessions); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusAccepted, batchAckResponse{Status: "accepted", Accepted: len(sessions)})
}
