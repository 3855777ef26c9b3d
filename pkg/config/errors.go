package config

import "errors"

var (
	// ErrParse wraps caarlos0/env failures, including missing required keys.
	ErrParse     = errors.New("config: cannot parse environment")
	ErrNilTarget = errors.New("config: nil target")
)
