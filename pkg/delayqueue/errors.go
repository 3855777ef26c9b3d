package delayqueue

import "errors"

var (
	ErrQueueClosed    = errors.New("delay queue is closed")
	ErrAlreadyRunning = errors.New("delay queue is already running")
	ErrInvalidEntry   = errors.New("invalid delay queue entry")
	ErrQueueStorage   = errors.New("delay queue storage failure")
)
