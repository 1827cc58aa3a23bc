// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/uxlens/uxlens/internal/domain/dedupe"
	"github.com/uxlens/uxlens/internal/domain/model"
	"github.com/uxlens/uxlens/pkg/metrics"
)

// EventDependencies defines the interface for event ingestion dependencies.
type EventDependencies interface {
	dedupe.Deduper
	Enqueue(ctx context.Context, e model.Event) bool
}

// EventsHandler handles telemetry ingestion requests.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// eventsRequest is the POST /events body: a batch of telemetry events.
type eventsRequest struct {
	Events []eventRequest `json:"events"`
}

// HandlePostEvents handles POST /events requests.
//
// Each event in the batch is validated and deduplicated independently.
// A full queue rolls back the dedupe record for the failed event and
// answers 429 so the client can retry the whole batch safely.
func (h *EventsHandler) HandlePostEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_events"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req eventsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(req.Events) == 0 {
		writeError(w, http.StatusBadRequest, "empty_batch", NewKind(op, ErrBadRequest))
		return
	}

	var accepted, duplicates, rejected int
	for i := range req.Events {
		e := req.Events[i]
		if err := e.validate(); err != nil {
			metrics.RecordEventInvalid()
			rejected++
			continue
		}

		// Idempotency check - mark as seen first
		if h.deps.SeenAndRecord(r.Context(), e.EventID) {
			metrics.RecordEventDuplicate()
			duplicates++
			continue
		}

		if ok := h.deps.Enqueue(r.Context(), e.toModel()); !ok {
			// Roll back the "seen" status since enqueue failed
			h.deps.Unrecord(r.Context(), e.EventID)
			writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
			return
		}
		accepted++
	}

	if accepted == 0 && duplicates > 0 && rejected == 0 {
		writeJSON(w, http.StatusOK, batchAckResponse{Status: "duplicate", Duplicates: duplicates})
		return
	}
	writeJSON(w, http.StatusAccepted, batchAckResponse{
		Status:     "accepted",
		Accepted:   accepted,
		Duplicates: duplicates,
		Rejected:   rejected,
	})
}
