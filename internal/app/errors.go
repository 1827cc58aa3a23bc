package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrBlockNotFound = errors.New("block not found")
)
