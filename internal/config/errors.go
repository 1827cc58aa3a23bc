package config

import (
	"errors"
)

// Sentinel error kinds for this package, matchable with errors.Is.
// ErrLoadConfig covers file and env layering failures; ErrInvalidConfig
// covers values that pass parsing but fail validation.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)
