// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/uxlens/uxlens/internal/domain/model"
)

// AnswerDependencies defines the interface for answer registration.
type AnswerDependencies interface {
	RecordAnswers(ctx context.Context, answers []model.Answer) error
}

// AnswersHandler handles opinion-scale answer requests.
type AnswersHandler struct {
	deps AnswerDependencies
}

// NewAnswersHandler creates a new answers handler.
func NewAnswersHandler(deps AnswerDependencies) *AnswersHandler {
	return &AnswersHandler{deps: deps}
}

// answersRequest is the POST /answers body.
type answersRequest struct {
	Answers []answerRequest `json:"answers"`
}

// HandlePostAnswers handles POST /answers requests.
func (h *AnswersHandler) HandlePostAnswers(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_answers"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req answersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(req.Answers) == 0 {
		writeError(w, http.StatusBadRequest, "empty_batch", NewKind(op, ErrBadRequest))
		return
	}

	answers := make([]model.Answer, 0, len(req.Answers))
	for _, a := range req.Answers {
		if err := a.validate(); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		answers = append(answers, a.toModel())
	}

	if err := h.deps.RecordAnswers(r.Context(), answers); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusAccepted, batchAckResponse{Status: "accepted", Accepted: len(answers)})
}
