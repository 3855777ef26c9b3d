package channel

import "errors"

var (
	ErrTransient      = errors.New("transient delivery failure")
	ErrPermanent      = errors.New("permanent delivery failure")
	ErrInvalidMessage = errors.New("invalid message")
	ErrInvalidConfig  = errors.New("invalid transport configuration")
)

// Transient marks err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(ErrTransient, err)
}

// Permanent marks err as not retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(ErrPermanent, err)
}

func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }

func IsPermanent(err error) bool { return errors.Is(err, ErrPermanent) }

// Classify returns err marked as transient or permanent. Marked errors pass
// through and invalid messages are permanent. Everything else, deadline
// errors included, is transient.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case IsPermanent(err), IsTransient(err):
		return err
	case errors.Is(err, ErrInvalidMessage):
		return Permanent(err)
	default:
		return Transient(err)
	}
}
