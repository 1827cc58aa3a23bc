// Package spatial collects click and gaze samples for a screen into heat
// points, preserving count parity between markers and raw events.
package spatial

import (
	"sort"
	"time"

	"github.com/uxlens/uxlens/internal/domain/model"
	"github.com/uxlens/uxlens/internal/domain/types"
)

// CollectClicks filters click and hotspot_click events for one screen and
// converts them to heat points in click order (ascending timestamp).
//
// Events without coordinates are not dropped: they become fallback points
// at the screen's geometric center, so the marker count always equals the
// raw event count for the screen. When onlyFirstPerSession is set, only
// each session's earliest qualifying click on the screen survives.
func CollectClicks(events []model.Event, screenID string, onlyFirstPerSession bool, screenW, screenH float64) []model.HeatPoint {
	clicks := filterClicks(events, screenID, onlyFirstPerSession)

	points := make([]model.HeatPoint, len(clicks))
	for i, e := range clicks {
		if e.HasCoords() {
			points[i] = model.HeatPoint{X: *e.X, Y: *e.Y, Weight: 1}
			continue
		}
		points[i] = model.HeatPoint{
			X:        screenW / 2,
			Y:        screenH / 2,
			Weight:   1,
			Fallback: true,
		}
	}
	return points
}

// CollectClickMarkers builds the discrete click-order overlay for one screen:
// the same events CollectClicks rasterizes, kept as numbered markers with
// their session identity. Fallback markers follow the same center convention,
// so the overlay count matches the heatmap point count.
func CollectClickMarkers(events []model.Event, screenID string, onlyFirstPerSession bool, screenW, screenH float64) []types.ClickMarker {
	clicks := filterClicks(events, screenID, onlyFirstPerSession)

	markers := make([]types.ClickMarker, len(clicks))
	for i, e := range clicks {
		m := types.ClickMarker{
			SessionID: e.SessionID,
			Ordinal:   i,
			HotspotID: e.HotspotID,
			TS:        e.TS,
		}
		if e.HasCoords() {
			m.X = *e.X
			m.Y = *e.Y
		} else {
			m.X = screenW / 2
			m.Y = screenH / 2
			m.Fallback = true
		}
		markers[i] = m
	}
	return markers
}

// filterClicks selects a screen's click events in ascending timestamp order,
// optionally keeping only each session's first.
func filterClicks(events []model.Event, screenID string, onlyFirstPerSession bool) []model.Event {
	clicks := make([]model.Event, 0, len(events))
	for _, e := range events {
		if e.ScreenID != screenID {
			continue
		}
		if e.Type != model.EventClick && e.Type != model.EventHotspotClick {
			continue
		}
		clicks = append(clicks, e)
	}
	sort.SliceStable(clicks, func(i, j int) bool {
		return clicks[i].TS.Before(clicks[j].TS)
	})

	if onlyFirstPerSession {
		seen := make(map[string]struct{}, len(clicks))
		firsts := clicks[:0]
		for _, e := range clicks {
			if _, ok := seen[e.SessionID]; ok {
				continue
			}
			seen[e.SessionID] = struct{}{}
			firsts = append(firsts, e)
		}
		clicks = firsts
	}
	return clicks
}

// CollectGaze converts a screen's gaze samples to normalized heat points in
// sample order. Coordinates stay in [0,1]; the caller scales them into
// raster space.
func CollectGaze(samples []model.GazeSample, screenID string, onlyFirstPerSession bool) []model.HeatPoint {
	matched := make([]model.GazeSample, 0, len(samples))
	for _, s := range samples {
		if s.ScreenID == screenID {
			matched = append(matched, s)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].TS.Before(matched[j].TS)
	})

	if onlyFirstPerSession {
		seen := make(map[string]struct{}, len(matched))
		firsts := matched[:0]
		for _, s := range matched {
			if _, ok := seen[s.SessionID]; ok {
				continue
			}
			seen[s.SessionID] = struct{}{}
			firsts = append(firsts, s)
		}
		matched = firsts
	}

	points := make([]model.HeatPoint, len(matched))
	for i, s := range matched {
		points[i] = model.HeatPoint{X: s.XNorm, Y: s.YNorm, Weight: 1}
	}
	return points
}

// Collapse merges points sharing an exact position into one point whose
// weight is the sample count at that location. First-occurrence order is
// preserved so rasterization stays deterministic.
func Collapse(points []model.HeatPoint) []model.HeatPoint {
	type key struct{ x, y float64 }
	index := make(map[key]int, len(points))
	merged := make([]model.HeatPoint, 0, len(points))
	for _, p := range points {
		k := key{p.X, p.Y}
		if i, ok := index[k]; ok {
			merged[i].Weight += p.Weight
			continue
		}
		index[k] = len(merged)
		merged = append(merged, p)
	}
	return merged
}

// GazeAt interpolates the gaze position at an arbitrary timestamp, used for
// scrubbing a gaze cursor during playback.
//
// Samples are evaluated in ascending timestamp order. A timestamp outside
// the sampled range clamps to the first or last sample; inside the range
// the two bracketing samples are linearly interpolated by time fraction.
// Returns ok=false only when there are no samples.
func GazeAt(samples []model.GazeSample, t time.Time) (xNorm, yNorm float64, ok bool) {
	if len(samples) == 0 {
		return 0, 0, false
	}
	sorted := make([]model.GazeSample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TS.Before(sorted[j].TS)
	})

	first, last := sorted[0], sorted[len(sorted)-1]
	if !t.After(first.TS) {
		return first.XNorm, first.YNorm, true
	}
	if !t.Before(last.TS) {
		return last.XNorm, last.YNorm, true
	}

	for i := 0; i+1 < len(sorted); i++ {
		lo, hi := sorted[i], sorted[i+1]
		if t.Before(lo.TS) || t.After(hi.TS) {
			continue
		}
		span := hi.TS.Sub(lo.TS)
		if span == 0 {
			return lo.XNorm, lo.YNorm, true
		}
		frac := float64(t.Sub(lo.TS)) / float64(span)
		return lo.XNorm + (hi.XNorm-lo.XNorm)*frac,
			lo.YNorm + (hi.YNorm-lo.YNorm)*frac,
			true
	}
	return last.XNorm, last.YNorm, true
}
