package simdata

import "time"

// Config holds configuration for the session seeding run.
type Config struct {
	BaseURL     string        // Base URL of the service
	NumSessions int           // Number of sessions to simulate
	BlockID     string        // Block the sessions belong to
	RunID       string        // Run the sessions belong to
	Workers     int           // Number of concurrent workers
	Timeout     time.Duration // HTTP request timeout
	OutputFile  string        // Output file for generated sessions
	LogFile     string        // Log file for seeding output
	Verbose     bool          // Enable verbose logging
}

// Event is the wire form of one telemetry event.
type Event struct {
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

// Session is the wire form of one session row.
type Session struct {
	SessionID string `json:"session_id"`
	RunID     string `json:"run_id"`
	BlockID   string `json:"block_id"`
	StartedAt string `json:"started_at,omitempty"`
	Completed bool   `json:"completed,omitempty"`
	Aborted   bool   `json:"aborted,omitempty"`
}

// Answer is the wire form of one scale answer.
type Answer struct {
	AnswerID  string `json:"answer_id"`
	SessionID string `json:"session_id"`
	RunID     string `json:"run_id"`
	BlockID   string `json:"block_id"`
	Value     int    `json:"value"`
	TS        string `json:"ts,omitempty"`
}

// Script bundles everything one simulated respondent produces.
type Script struct {
	Session Session
	Events  []Event
	Answer  *Answer
	Outcome string // completed, aborted, or closed
}

// AckResponse is the batch acknowledgement returned by ingest endpoints.
type AckResponse struct {
	Status     string `json:"status"`
	Accepted   int    `json:"accepted"`
	Duplicates int    `json:"duplicates"`
	Rejected   int    `json:"rejected"`
}

// Summary mirrors the block summary report payload.
type Summary struct {
	BlockID  string `json:"block_id"`
	Sessions int    `json:"sessions"`
	Outcomes struct {
		Completed  int `json:"completed"`
		Aborted    int `json:"aborted"`
		Closed     int `json:"closed"`
		InProgress int `json:"in_progress"`
	} `json:"outcomes"`
	CompletionRate float64 `json:"completion_rate"`
	AbortRate      float64 `json:"abort_rate"`
	CloseRate      float64 `json:"close_rate"`
	MeanSeconds    float64 `json:"mean_seconds"`
	MedianSeconds  float64 `json:"median_seconds"`
}

// FlowGraph mirrors the flow report payload.
type FlowGraph struct {
	Nodes []struct {
		ID       string `json:"id"`
		Kind     string `json:"kind"`
		ScreenID string `json:"screen_id"`
	} `json:"nodes"`
	Edges []struct {
		From      string `json:"from"`
		To        string `json:"to"`
		SessionID string `json:"session_id"`
		Count     int    `json:"count"`
	} `json:"edges"`
}

// Stats holds seeding statistics.
type Stats struct {
	SessionsGenerated  int
	EventsGenerated    int
	EventsAccepted     int
	EventsDuplicate    int
	EventsRejected     int
	BatchesFailed      int
	SessionsSubmitted  int
	AnswersSubmitted   int
	SummarySessions    int
	FlowEdgesRetrieved int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
