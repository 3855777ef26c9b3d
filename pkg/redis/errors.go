package redis

import "errors"

var (
	ErrMissingURL = errors.New("redis: REDIS_URL is not set")
	ErrInvalidURL = errors.New("redis: invalid connection url")
	// ErrNotReady is returned when every ping attempt failed.
	ErrNotReady  = errors.New("redis: server not ready")
	ErrUnhealthy = errors.New("redis: ping failed")
)
