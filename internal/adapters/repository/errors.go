package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrClosed           = errors.New("store closed")
	ErrMissingEventID   = errors.New("missing event id")
	ErrMissingSessionID = errors.New("missing session id")
	ErrMissingBlockID   = errors.New("missing block id")
	ErrMissingEventType = errors.New("missing event type")
	ErrMissingTimestamp = errors.New("missing timestamp")
)
