package dispatcher

import "errors"

var (
	ErrInProgress     = errors.New("delivery unit is already in progress")
	ErrNoTransport    = errors.New("no transport configured for channel")
	ErrNoAddress      = errors.New("no address for recipient on channel")
	ErrStopped        = errors.New("dispatcher is stopped")
	ErrAlreadyRunning = errors.New("dispatcher is already running")
	ErrInvalidConfig  = errors.New("invalid dispatcher configuration")
)
