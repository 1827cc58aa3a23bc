// Package path turns each session's screen_load sequence into a
// deduplicated visit path and accumulates a global transition-frequency
// table across all sessions.
package path

import (
	"sort"

	"github.com/uxlens/uxlens/internal/domain/classify"
	"github.com/uxlens/uxlens/internal/domain/model"
)

// SessionEvents pairs a session id with its raw event list. Non screen_load
// events are ignored here, so callers may pass the full per-session bag.
type SessionEvents struct {
	SessionID string
	Events    []model.Event
}

// Transition is one observed consecutive move between two screens.
type Transition struct {
	From string
	To   string
}

// String renders the "from->to" key used by JSON report payloads.
func (t Transition) String() string {
	return t.From + "->" + t.To
}

// Result is the aggregate over all sessions of one block.
type Result struct {
	// PathsBySession maps session id to its deduplicated visit path.
	// A terminal session with no screen loads is represented by the common
	// start screen alone, so it still appears in the flow graph.
	PathsBySession map[string][]string

	// Transitions counts consecutive pairs within deduplicated paths.
	Transitions map[Transition]int

	// CommonStart is the screen most sessions started on, empty when no
	// session loaded any screen.
	CommonStart string
}

// MaxCount returns the largest transition count, used to normalize edge
// widths. Returns 0 on an empty table.
func (r *Result) MaxCount() int {
	maxCount := 0
	for _, c := range r.Transitions {
		if c > maxCount {
			maxCount = c
		}
	}
	return maxCount
}

// Aggregate builds deduplicated paths and the transition table.
//
// Dedup keeps the first occurrence of every screen and drops all later
// repeats, consecutive or not. The common start screen is elected by the
// first element of each session's raw pre-dedup path; ties go to the
// candidate seen first. Sessions are processed in slice order, which makes
// the election deterministic for a given input.
//
// outcomes supplies each session's classified status for the empty-path
// fallback; sessions absent from the map simply get no fallback node.
func Aggregate(sessions []SessionEvents, outcomes map[string]classify.Status) *Result {
	res := &Result{
		PathsBySession: make(map[string][]string, len(sessions)),
		Transitions:    make(map[Transition]int),
	}

	votes := make(map[string]int)
	var voteOrder []string

	for _, sess := range sessions {
		raw := screenSequence(sess.Events)
		if len(raw) > 0 {
			first := raw[0]
			if _, seen := votes[first]; !seen {
				voteOrder = append(voteOrder, first)
			}
			votes[first]++
		}

		deduped := dedupFirstSeen(raw)
		res.PathsBySession[sess.SessionID] = deduped
		for i := 0; i+1 < len(deduped); i++ {
			res.Transitions[Transition{From: deduped[i], To: deduped[i+1]}]++
		}
	}

	res.CommonStart = electStart(votes, voteOrder)

	// A respondent who abandoned before the first screen finished loading
	// still gets the common start node, so the flow graph never orphans them.
	if res.CommonStart != "" {
		for _, sess := range sessions {
			if len(res.PathsBySession[sess.SessionID]) > 0 {
				continue
			}
			status, ok := outcomes[sess.SessionID]
			if ok && (status == classify.StatusAborted || status == classify.StatusClosed) {
				res.PathsBySession[sess.SessionID] = []string{res.CommonStart}
			}
		}
	}

	return res
}

// screenSequence extracts screen ids from screen_load events in ascending
// timestamp order.
func screenSequence(events []model.Event) []string {
	loads := make([]model.Event, 0, len(events))
	for _, e := range events {
		if e.Type == model.EventScreenLoad && e.ScreenID != "" {
			loads = append(loads, e)
		}
	}
	sort.SliceStable(loads, func(i, j int) bool {
		return loads[i].TS.Before(loads[j].TS)
	})

	seq := make([]string, len(loads))
	for i, e := range loads {
		seq[i] = e.ScreenID
	}
	return seq
}

// dedupFirstSeen drops every repeat of a screen already in the path.
func dedupFirstSeen(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(raw))
	deduped := make([]string, 0, len(raw))
	for _, id := range raw {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		deduped = append(deduped, id)
	}
	return deduped
}

// electStart picks the screen with the most first-element votes; ties are
// broken by first-seen order among candidates.
func electStart(votes map[string]int, order []string) string {
	best := ""
	bestVotes := 0
	for _, candidate := range order {
		if votes[candidate] > bestVotes {
			best = candidate
			bestVotes = votes[candidate]
		}
	}
	return best
}
