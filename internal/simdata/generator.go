package simdata

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/uxlens/uxlens/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	outcomeDivisor     = 10
)

// Outcome mix thresholds out of outcomeDivisor: six completions, two aborts,
// two inactivity closes per ten sessions on average.
const (
	completedThreshold = 6
	abortedThreshold   = 8
)

// Simulated screen geometry, in CSS pixels.
const (
	screenWidth  = 1280.0
	screenHeight = 800.0
)

// Pacing of the simulated respondent.
const (
	stepGapSeconds  = 5
	abortMinScreens = 1
)

// happyPath is the scripted screen order a completing session walks.
var happyPath = []string{"home", "search", "product", "checkout", "confirm"} //nolint:gochecknoglobals // fixed script

// hotspots maps each screen to the control a click lands on.
var hotspots = map[string]string{ //nolint:gochecknoglobals // fixed script
	"home":     "cta-search",
	"search":   "result-1",
	"product":  "add-to-cart",
	"checkout": "pay-now",
	"confirm":  "done",
}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// getRandomInt returns a random int in [0, max) using crypto/rand.
func getRandomInt(max int64) int64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(max))
	return n.Int64()
}

// generateScripts creates the requested number of session scripts with a
// mixed outcome distribution.
func generateScripts(ctx context.Context, config *Config, stats *Stats) ([]Script, error) {
	logger.Get().Info(ctx, "generating session scripts",
		logger.Int("numSessions", config.NumSessions),
		logger.String("blockID", config.BlockID),
		logger.String("runID", config.RunID))

	scripts := make([]Script, 0, config.NumSessions)
	base := time.Now().UTC().Add(-time.Duration(config.NumSessions) * time.Minute)

	for i := 0; i < config.NumSessions; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		start := base.Add(time.Duration(i) * time.Minute)
		scripts = append(scripts, generateSingleScript(config, start))
	}

	stats.SessionsGenerated = len(scripts)
	for i := range scripts {
		stats.EventsGenerated += len(scripts[i].Events)
	}
	logger.Get().Info(ctx, "generated session scripts",
		logger.Int("sessions", stats.SessionsGenerated),
		logger.Int("events", stats.EventsGenerated))

	return scripts, nil
}

// generateSingleScript walks one simulated respondent through the scripted
// flow and records the events it would emit.
func generateSingleScript(config *Config, start time.Time) Script {
	sessionID := uuid.New().String()
	outcome := pickOutcome()

	// Completing sessions walk the whole script; aborted and closed ones
	// stop partway through.
	screens := happyPath
	if outcome != "completed" {
		cut := abortMinScreens + int(getRandomInt(int64(len(happyPath)-abortMinScreens)))
		screens = happyPath[:cut]
	}

	script := Script{
		Session: Session{
			SessionID: sessionID,
			RunID:     config.RunID,
			BlockID:   config.BlockID,
			StartedAt: start.Format(time.RFC3339),
		},
		Outcome: outcome,
	}

	ts := start
	for _, screen := range screens {
		script.Events = append(script.Events, newEvent(config, sessionID, screen, "screen_load", ts, nil))
		ts = ts.Add(stepGapSeconds * time.Second)

		click := newEvent(config, sessionID, screen, "click", ts, hotspotFor(screen))
		script.Events = append(script.Events, click)
		ts = ts.Add(stepGapSeconds * time.Second)
	}

	switch outcome {
	case "completed":
		script.Session.Completed = true
		script.Events = append(script.Events, newEvent(config, sessionID, "", "completed", ts, nil))
		v := 1 + int(getRandomInt(5))
		script.Answer = &Answer{
			AnswerID:  uuid.New().String(),
			SessionID: sessionID,
			RunID:     config.RunID,
			BlockID:   config.BlockID,
			Value:     v,
			TS:        ts.Format(time.RFC3339),
		}
	case "aborted":
		script.Session.Aborted = true
		script.Events = append(script.Events, newEvent(config, sessionID, "", "aborted", ts, nil))
	default:
		// Closed sessions emit no terminal event; the reporting side
		// infers the close from inactivity.
	}

	return script
}

// pickOutcome selects the session outcome per the configured mix.
func pickOutcome() string {
	switch n := getRandomInt(outcomeDivisor); {
	case n < completedThreshold:
		return "completed"
	case n < abortedThreshold:
		return "aborted"
	default:
		return "closed"
	}
}

// newEvent builds one wire event. Click events carry coordinates jittered
// around the screen center.
func newEvent(config *Config, sessionID, screenID, eventType string, ts time.Time, hotspotID *string) Event {
	ev := Event{
		EventID:   uuid.New().String(),
		SessionID: sessionID,
		RunID:     config.RunID,
		BlockID:   config.BlockID,
		ScreenID:  screenID,
		Type:      eventType,
		TS:        ts.Format(time.RFC3339),
	}
	if eventType == "click" {
		x := screenWidth * (0.3 + getRandomFloat()*0.4)
		y := screenHeight * (0.3 + getRandomFloat()*0.4)
		ev.X = &x
		ev.Y = &y
		if hotspotID != nil {
			ev.HotspotID = *hotspotID
		}
	}
	return ev
}

// hotspotFor returns the scripted hotspot id for a screen, if any.
func hotspotFor(screen string) *string {
	if id, ok := hotspots[screen]; ok {
		return &id
	}
	return nil
}
