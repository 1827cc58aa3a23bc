// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// EventQueueSize bounds the in-memory ingest queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of ingest workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the event-id deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// DBPath points at the SQLite database file. Empty selects the
	// in-memory store.
	DBPath string `koanf:"db_path"`

	// InactivityTimeoutMS is the idle gap after which an open session is
	// considered closed.
	InactivityTimeoutMS int `koanf:"inactivity_timeout_ms"`

	// HeatmapRadius is the stamp radius in raster pixels.
	HeatmapRadius int `koanf:"heatmap_radius"`

	// HeatmapBlur softens the heatmap stamp falloff.
	HeatmapBlur float64 `koanf:"heatmap_blur"`

	// HeatmapMaxWidth caps the rendered heatmap width; taller screens are
	// downscaled uniformly.
	HeatmapMaxWidth int `koanf:"heatmap_max_width"`

	// ScaleMin and ScaleMax bound valid scale-question answers.
	ScaleMin int `koanf:"scale_min"`
	ScaleMax int `koanf:"scale_max"`

	// MaxReportSessions caps the sessions considered per report. Zero
	// means unlimited.
	MaxReportSessions int `koanf:"max_report_sessions"`
}

// New creates a Config using defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use and is currently
// unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		EventQueueSize:      100_000,
		WorkerCount:         runtime.NumCPU() * 2,
		DedupeSize:          50_000,
		DBPath:              "",
		InactivityTimeoutMS: 60_000,
		HeatmapRadius:       50,
		HeatmapBlur:         0.75,
		HeatmapMaxWidth:     1280,
		ScaleMin:            1,
		ScaleMax:            5,
		MaxReportSessions:   0,
	}
}
