// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/uxlens/uxlens/internal/domain/dedupe"
	"github.com/uxlens/uxlens/internal/domain/flow"
	"github.com/uxlens/uxlens/internal/domain/heatmap"
	"github.com/uxlens/uxlens/internal/domain/model"
	"github.com/uxlens/uxlens/internal/domain/types"
)

// HeatmapParams mirrors the read-model knobs for heatmap rendering.
type HeatmapParams = types.HeatmapParams

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	// Enqueue pushes a telemetry event for async processing.
	// Returns false on backpressure.
	Enqueue(ctx context.Context, e model.Event) bool

	// Write operations persist session, answer and gaze rows synchronously.
	RecordSessions(ctx context.Context, sessions []model.Session) error
	RecordAnswers(ctx context.Context, answers []model.Answer) error
	RecordGaze(ctx context.Context, samples []model.GazeSample) error

	// Read operations expose aggregated study results. An empty runIDs
	// slice means all runs of the block.
	BlockSummary(ctx context.Context, runIDs []string, blockID string) (types.Summary, error)
	BlockFlow(ctx context.Context, runIDs []string, blockID string) (*flow.Graph, error)
	ScreenHeatmap(ctx context.Context, runIDs []string, blockID, screenID string, p HeatmapParams) (*heatmap.Raster, error)
	ScreenClicks(ctx context.Context, runIDs []string, blockID, screenID string, p HeatmapParams) ([]types.ClickMarker, error)
	ScaleReport(ctx context.Context, runIDs []string, blockID string) (types.ScaleReport, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	eventsHandler   *EventsHandler
	sessionsHandler *SessionsHandler
	answersHandler  *AnswersHandler
	gazeHandler     *GazeHandler
	summaryHandler  *SummaryHandler
	flowHandler     *FlowHandler
	heatmapHandler  *HeatmapHandler
	clicksHandler   *ClicksHandler
	scaleHandler    *ScaleHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		eventsHandler:   NewEventsHandler(deps),
		sessionsHandler: NewSessionsHandler(deps),
		answersHandler:  NewAnswersHandler(deps),
		gazeHandler:     NewGazeHandler(deps),
		summaryHandler:  NewSummaryHandler(deps),
		flowHandler:     NewFlowHandler(deps),
		heatmapHandler:  NewHeatmapHandler(deps),
		clicksHandler:   NewClicksHandler(deps),
		scaleHandler:    NewScaleHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandlePostEvents, "events"))
	mux.HandleFunc("/sessions", MetricsMiddleware(s.sessionsHandler.HandlePostSessions, "sessions"))
	mux.HandleFunc("/answers", MetricsMiddleware(s.answersHandler.HandlePostAnswers, "answers"))
	mux.HandleFunc("/gaze", MetricsMiddleware(s.gazeHandler.HandlePostGaze, "gaze"))
	mux.HandleFunc("/reports/summary", MetricsMiddleware(s.summaryHandler.HandleGetSummary, "report_summary"))
	mux.HandleFunc("/reports/flow", MetricsMiddleware(s.flowHandler.HandleGetFlow, "report_flow"))
	mux.HandleFunc("/reports/heatmap", MetricsMiddleware(s.heatmapHandler.HandleGetHeatmap, "report_heatmap"))
	mux.HandleFunc("/reports/clicks", MetricsMiddleware(s.clicksHandler.HandleGetClicks, "report_clicks"))
	mux.HandleFunc("/reports/scale", MetricsMiddleware(s.scaleHandler.HandleGetScale, "report_scale"))
}

// eventRequest mirrors the wire schema for a single telemetry event.
type eventRequest struct {
	EventID   string   `json:"event_id"`
	SessionID string   `json:"session_id"`
	RunID     string   `json:"run_id"`
	BlockID   string   `json:"block_id"`
	ScreenID  string   `json:"screen_id,omitempty"`
	Type      string   `json:"type"`
	TS        string   `json:"ts"`
	X         *float64 `json:"x,omitempty"`
	Y         *float64 `json:"y,omitempty"`
	HotspotID string   `json:"hotspot_id,omitempty"`
}

func (e eventRequest) validate() error {
	switch {
	case strings.TrimSpace(e.EventID) == "":
		return errors.New("missing event_id")
	case strings.TrimSpace(e.SessionID) == "":
		return errors.New("missing session_id")
	case strings.TrimSpace(e.BlockID) == "":
		return errors.New("missing block_id")
	case strings.TrimSpace(e.Type) == "":
		return errors.New("missing type")
	case strings.TrimSpace(e.TS) == "":
		return errors.New("missing ts")
	}
	if _, err := time.Parse(time.RFC3339, e.TS); err != nil {
		return errors.New("invalid ts; must be RFC3339")
	}
	return nil
}

// toModel converts a validated request into the domain shape.
func (e eventRequest) toModel() model.Event {
	ts, _ := time.Parse(time.RFC3339, e.TS)
	return model.Event{
		EventID:   e.EventID,
		SessionID: e.SessionID,
		RunID:     e.RunID,
		BlockID:   e.BlockID,
		ScreenID:  e.ScreenID,
		Type:      model.EventType(e.Type),
		TS:        ts,
		X:         e.X,
		Y:         e.Y,
		HotspotID: e.HotspotID,
	}
}

// sessionRequest mirrors the wire schema for a session row.
type sessionRequest struct {
	SessionID string `json:"session_id"`
	RunID     string `json:"run_id"`
	BlockID   string `json:"block_id"`
	StartedAt string `json:"started_at,omitempty"`
	Completed bool   `json:"completed,omitempty"`
	Aborted   bool   `json:"aborted,omitempty"`
}

func (s sessionRequest) validate() error {
	switch {
	case strings.TrimSpace(s.SessionID) == "":
		return errors.New("missing session_id")
	case strings.TrimSpace(s.BlockID) == "":
		return errors.New("missing block_id")
	}
	if s.StartedAt != "" {
		if _, err := time.Parse(time.RFC3339, s.StartedAt); err != nil {
			return errors.New("invalid started_at; must be RFC3339")
		}
	}
	return nil
}

func (s sessionRequest) toModel() model.Session {
	var startedAt time.Time
	if s.StartedAt != "" {
		startedAt, _ = time.Parse(time.RFC3339, s.StartedAt)
	}
	return model.Session{
		ID:              s.SessionID,
		RunID:           s.RunID,
		BlockID:         s.BlockID,
		StartedAt:       startedAt,
		StoredCompleted: s.Completed,
		StoredAborted:   s.Aborted,
	}
}

// answerRequest mirrors the wire schema for an opinion-scale answer.
type answerRequest struct {
	AnswerID  string `json:"answer_id"`
	SessionID string `json:"session_id"`
	RunID     string `json:"run_id"`
	BlockID   string `json:"block_id"`
	Value     int    `json:"value"`
	TS        string `json:"ts,omitempty"`
}

func (a answerRequest) validate() error {
	switch {
	case strings.TrimSpace(a.AnswerID) == "":
		return errors.New("missing answer_id")
	case strings.TrimSpace(a.SessionID) == "":
		return errors.New("missing session_id")
	case strings.TrimSpace(a.BlockID) == "":
		return errors.New("missing block_id")
	}
	if a.TS != "" {
		if _, err := time.Parse(time.RFC3339, a.TS); err != nil {
			return errors.New("invalid ts; must be RFC3339")
		}
	}
	return nil
}

func (a answerRequest) toModel() model.Answer {
	var ts time.Time
	if a.TS != "" {
		ts, _ = time.Parse(time.RFC3339, a.TS)
	}
	return model.Answer{
		AnswerID:  a.AnswerID,
		SessionID: a.SessionID,
		RunID:     a.RunID,
		BlockID:   a.BlockID,
		Value:     a.Value,
		TS:        ts,
	}
}

// batchAckResponse reports the outcome of a batch ingest call.
type batchAckResponse struct {
	Status     string `json:"status"`
	Accepted   int    `json:"accepted"`
	Duplicates int    `json:"duplicates"`
	Rejected   int    `json:"rejected,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
