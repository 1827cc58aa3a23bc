// Package types contains common read-model types used across the application
package types

import "time"

// OutcomeCounts tallies classified sessions by terminal status.
type OutcomeCounts struct {
	Completed  int `json:"completed"`
	Aborted    int `json:"aborted"`
	Closed     int `json:"closed"`
	InProgress int `json:"in_progress"`
}

// Summary is the block-level report consumed by summary tables and badges.
type Summary struct {
	BlockID        string        `json:"block_id"`
	Sessions       int           `json:"sessions"`
	Outcomes       OutcomeCounts `json:"outcomes"`
	CompletionRate float64       `json:"completion_rate"`
	AbortRate      float64       `json:"abort_rate"`
	CloseRate      float64       `json:"close_rate"`
	MeanSeconds    float64       `json:"mean_seconds"`
	MedianSeconds  float64       `json:"median_seconds"`
}

// HeatmapParams carries client-tunable knobs for heatmap rendering.
type HeatmapParams struct {
	Source          string  // "click" or "gaze"
	FirstPerSession bool    // keep only the first point per session
	ScreenW         float64 // logical screen width in px
	ScreenH         float64 // logical screen height in px
}

// ClickMarker is one entry of the discrete click-order overlay: a numbered
// click on a screen, in ascending timestamp order.
type ClickMarker struct {
	SessionID string    `json:"session_id"`
	Ordinal   int       `json:"ordinal"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Fallback  bool      `json:"fallback,omitempty"`
	HotspotID string    `json:"hotspot_id,omitempty"`
	TS        time.Time `json:"ts"`
}

// ScaleReport aggregates ordinal survey answers for one block.
type ScaleReport struct {
	BlockID   string      `json:"block_id"`
	Histogram map[int]int `json:"histogram"`
	Mean      float64     `json:"mean"`
	Answers   int         `json:"answers"`
	Excluded  int         `json:"excluded"`
}
