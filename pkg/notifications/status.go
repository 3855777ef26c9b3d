package notifications

import "fmt"

// DeliveryStatus is the lifecycle state of a delivery log.
type DeliveryStatus string

const (
	StatusPending   DeliveryStatus = "pending"
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusFailed    DeliveryStatus = "failed"
)

var transitions = map[DeliveryStatus][]DeliveryStatus{
	StatusPending:   {StatusPending, StatusSent, StatusFailed},
	StatusSent:      {StatusDelivered},
	StatusFailed:    {StatusPending},
	StatusDelivered: nil,
}

func (s DeliveryStatus) String() string { return string(s) }

// Valid reports whether s is one of the four known statuses.
func (s DeliveryStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether a log may move from s to next.
func (s DeliveryStatus) CanTransition(next DeliveryStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Done reports whether no further dispatch is needed for the lineage.
// Failed is not done: it may be retried.
func (s DeliveryStatus) Done() bool {
	return s == StatusSent || s == StatusDelivered
}

// CheckTransition returns ErrInvalidTransition with context when the move
// is not allowed.
func CheckTransition(from, to DeliveryStatus) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
