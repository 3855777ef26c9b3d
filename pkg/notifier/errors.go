package notifier

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid notification request")
	ErrPersist        = errors.New("failed to persist notification")
	ErrDispatch       = errors.New("failed to dispatch notification")
)
