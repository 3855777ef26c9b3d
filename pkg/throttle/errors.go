package throttle

import "errors"

var (
	ErrInvalidConfig     = errors.New("invalid throttle configuration")
	ErrInvalidTokenCount = errors.New("invalid token count")
	ErrStore             = errors.New("throttle store failure")
)
