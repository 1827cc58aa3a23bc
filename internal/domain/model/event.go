// Package model contains domain models passed between layers.
package model

import "time"

// EventType enumerates the telemetry event kinds the engine understands.
// Unknown types are carried through ingest but ignored by every aggregator.
type EventType string

// Telemetry event types emitted by the respondent runtime.
const (
	EventScreenLoad   EventType = "screen_load"
	EventClick        EventType = "click"
	EventHotspotClick EventType = "hotspot_click"
	EventCompleted    EventType = "completed"
	EventAborted      EventType = "aborted"
	EventClosed       EventType = "closed"
)

// Event is one timestamped telemetry row recorded during a respondent
// session. Events are append-only; ordering is established by TS, never
// by arrival order.
type Event struct {
	EventID   string // unique id for idempotency
	SessionID string // owning prototype session
	RunID     string // respondent's full study pass
	BlockID   string // study block the session belongs to
	ScreenID  string // screen reference, empty for terminal events
	Type      EventType
	TS        time.Time
	X         *float64 // screen pixel space; nil when capture failed
	Y         *float64
	HotspotID string // set for hotspot_click only
}

// HasCoords reports whether the event carries an explicit position.
func (e *Event) HasCoords() bool {
	return e.X != nil && e.Y != nil
}

// Session is one respondent's attempt at one prototype block. The stored
// Completed/Aborted flags are a fallback default only; event-derived
// classification always wins when events exist.
type Session struct {
	ID              string
	RunID           string
	BlockID         string
	StartedAt       time.Time // zero when the runtime never reported a start
	StoredCompleted bool
	StoredAborted   bool
}

// GazeSample is one normalized gaze position attached to a session and screen.
type GazeSample struct {
	SessionID string
	RunID     string
	BlockID   string
	ScreenID  string
	TS        time.Time
	XNorm     float64 // [0,1] of the logical screen width
	YNorm     float64 // [0,1] of the logical screen height
}

// HeatPoint is a weighted 2-D sample in the target raster's coordinate
// space. Fallback marks points substituted at the screen center because the
// original event lacked coordinates; they keep marker counts in parity with
// raw event counts.
type HeatPoint struct {
	X        float64
	Y        float64
	Weight   float64
	Fallback bool
}

// Answer is one respondent's value on a scale/ordinal survey question.
type Answer struct {
	AnswerID  string
	SessionID string
	RunID     string
	BlockID   string
	Value     int
	TS        time.Time
}
