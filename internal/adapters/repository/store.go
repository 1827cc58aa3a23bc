// Package repository persists telemetry rows and serves the already-fetched
// batches the aggregation engine consumes.
package repository

import (
	"context"

	"github.com/uxlens/uxlens/internal/domain/model"
)

// Store is the event/session/answer row store. Implementations must be safe
// for concurrent use; the ingest workers write while report builders read.
type Store interface {
	// Writes. Inserting an event whose id already exists is a no-op, so
	// retried uploads stay idempotent even past the dedupe cache horizon.
	InsertEvents(ctx context.Context, events []model.Event) error
	InsertSessions(ctx context.Context, sessions []model.Session) error
	InsertAnswers(ctx context.Context, answers []model.Answer) error
	InsertGaze(ctx context.Context, samples []model.GazeSample) error

	// Reads. Results carry no ordering guarantee; aggregators sort by
	// timestamp themselves.
	EventsBySession(ctx context.Context, sessionID string) ([]model.Event, error)
	EventsByBlock(ctx context.Context, blockID string) ([]model.Event, error)
	EventsByScreen(ctx context.Context, blockID, screenID string) ([]model.Event, error)
	SessionsByBlock(ctx context.Context, blockID string) ([]model.Session, error)
	AnswersByBlock(ctx context.Context, blockID string) ([]model.Answer, error)
	GazeByScreen(ctx context.Context, blockID, screenID string) ([]model.GazeSample, error)
	CountEvents(ctx context.Context) (int64, error)

	Close() error
}

// ValidateEvent rejects rows that would corrupt downstream aggregation.
// Unknown event types pass: new upstream types must not break ingest.
func ValidateEvent(e *model.Event) error {
	switch {
	case e.EventID == "":
		return ErrMissingEventID
	case e.SessionID == "":
		return ErrMissingSessionID
	case e.BlockID == "":
		return ErrMissingBlockID
	case e.Type == "":
		return ErrMissingEventType
	case e.TS.IsZero():
		return ErrMissingTimestamp
	}
	return nil
}
