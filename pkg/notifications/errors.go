package notifications

import "errors"

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrRecipientNotFound    = errors.New("notification recipient not found")
	ErrDeliveryLogNotFound  = errors.New("delivery log not found")

	// ErrDuplicateRecipient reports the (notification, user) unique conflict.
	// Fan-out treats it as success.
	ErrDuplicateRecipient = errors.New("recipient already exists for notification")

	ErrDuplicateNotification = errors.New("notification already exists")

	// ErrInvalidTransition is returned for a status change the delivery
	// lifecycle does not allow, including a lost compare-and-set race.
	ErrInvalidTransition = errors.New("invalid delivery status transition")

	ErrInvalidNotification = errors.New("invalid notification")
	ErrInvalidRecipient    = errors.New("invalid recipient")
	ErrInvalidDeliveryLog  = errors.New("invalid delivery log")

	ErrStorage = errors.New("notification storage failure")
)
