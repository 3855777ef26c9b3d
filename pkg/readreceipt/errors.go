package readreceipt

import "errors"

var (
	ErrInvalidRecipient = errors.New("recipient id is required")
	ErrInvalidUser      = errors.New("user id is required")
	ErrReadUpdate       = errors.New("failed to record read receipt")
)
