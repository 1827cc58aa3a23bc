// Package classify derives a terminal outcome for a respondent session
// from its raw event list.
//
// Classification is a pure function of the event list plus an explicit
// wall-clock "now": identical inputs always produce identical outcomes, so a
// late-arriving event simply reclassifies the session on the next pass.
package classify

import (
	"sort"
	"time"

	"github.com/uxlens/uxlens/internal/domain/model"
)

// DefaultInactivityTimeout is how long a session may sit without events
// before it is treated as silently abandoned.
const DefaultInactivityTimeout = 60 * time.Second

// Status is the classified state of a session, serialized for badges and
// summary tables.
type Status string

// Session statuses. Completed, Aborted and Closed are terminal.
const (
	StatusCompleted  Status = "completed"
	StatusAborted    Status = "aborted"
	StatusClosed     Status = "closed"
	StatusInProgress Status = "in_progress"
)

// Terminal reports whether the status is a terminal outcome.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAborted || s == StatusClosed
}

// Outcome is the derived, ephemeral result of classifying one session.
// It is recomputed on every aggregation pass and never persisted.
type Outcome struct {
	Status         Status
	ElapsedSeconds float64
	ElapsedKnown   bool
}

// Classifier turns a session's event list into an Outcome.
type Classifier struct {
	inactivityTimeout time.Duration
}

// New creates a Classifier with configuration options.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		inactivityTimeout: DefaultInactivityTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify derives the session outcome from its events.
//
// Terminal events follow last-event-wins semantics with Completed given
// priority on exact timestamp ties. When no terminal event exists and the
// most recent event is older than the inactivity timeout, the session is
// inferred Closed. With no events at all the stored session flags are the
// fallback default.
func (c *Classifier) Classify(sess *model.Session, events []model.Event, now time.Time) Outcome {
	sorted := sortByTime(events)

	completedEvt := firstOfType(sorted, model.EventCompleted)
	abortedEvt := firstOfType(sorted, model.EventAborted)
	closedEvt := firstOfType(sorted, model.EventClosed)

	var status Status
	var defining *model.Event

	if completedEvt != nil {
		// A missing competitor counts as the zero time, so completed wins
		// unless a later aborted/closed event exists.
		if !completedEvt.TS.Before(eventTime(abortedEvt)) && !completedEvt.TS.Before(eventTime(closedEvt)) {
			status, defining = StatusCompleted, completedEvt
		} else if abortedEvt != nil {
			status, defining = StatusAborted, abortedEvt
		}
	}
	if status == "" && abortedEvt != nil {
		status, defining = StatusAborted, abortedEvt
	}
	if status == "" && closedEvt != nil {
		status, defining = StatusClosed, closedEvt
	}
	if status == "" && len(sorted) > 0 {
		last := &sorted[len(sorted)-1]
		if now.Sub(last.TS) > c.inactivityTimeout {
			status, defining = StatusClosed, last
		} else {
			status = StatusInProgress
		}
	}
	if status == "" {
		status = storedFallback(sess)
	}

	start, startKnown := sessionStart(sess, sorted)

	out := Outcome{Status: status}
	switch {
	case defining != nil && startKnown:
		out.ElapsedSeconds = defining.TS.Sub(start).Seconds()
		out.ElapsedKnown = true
	case status == StatusInProgress && startKnown:
		out.ElapsedSeconds = now.Sub(start).Seconds()
		out.ElapsedKnown = true
	}
	return out
}

// storedFallback maps the persisted session flags to a status when the event
// log is empty. Flags never override event-derived truth.
func storedFallback(sess *model.Session) Status {
	switch {
	case sess != nil && sess.StoredCompleted:
		return StatusCompleted
	case sess != nil && sess.StoredAborted:
		return StatusAborted
	default:
		return StatusInProgress
	}
}

// sessionStart is StartedAt when the runtime reported one, else the first
// event's timestamp.
func sessionStart(sess *model.Session, sorted []model.Event) (time.Time, bool) {
	if sess != nil && !sess.StartedAt.IsZero() {
		return sess.StartedAt, true
	}
	if len(sorted) > 0 {
		return sorted[0].TS, true
	}
	return time.Time{}, false
}

// sortByTime returns a copy of events in ascending timestamp order.
// The sort is stable: ties keep their original relative order.
func sortByTime(events []model.Event) []model.Event {
	sorted := make([]model.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TS.Before(sorted[j].TS)
	})
	return sorted
}

func firstOfType(sorted []model.Event, t model.EventType) *model.Event {
	for i := range sorted {
		if sorted[i].Type == t {
			return &sorted[i]
		}
	}
	return nil
}

// eventTime treats a missing event as the zero time, i.e. always earliest.
func eventTime(e *model.Event) time.Time {
	if e == nil {
		return time.Time{}
	}
	return e.TS
}
