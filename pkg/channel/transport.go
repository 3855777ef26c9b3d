package channel

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// Message is one rendered notification addressed to one recipient on one
// channel.
type Message struct {
	// ID is the delivery log id. Providers receive it as an idempotency or
	// correlation key so receipts can be matched back.
	ID             string
	NotificationID string
	RecipientID    string
	UserID         string
	Channel        notifications.Channel
	// Address is channel specific: an email address, E.164 phone number,
	// push endpoint ARN, webhook URL, or the user id for in-app delivery.
	Address string
	Subject string
	Body    string
}

func (m Message) Validate() error {
	if m.Address == "" {
		return fmt.Errorf("%w: address is required", ErrInvalidMessage)
	}
	if m.Body == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidMessage)
	}
	return nil
}

// Ack is a provider acceptance.
type Ack struct {
	ProviderMessageID string
}

// Transport sends a message over one channel. Returned errors should be
// marked with Transient or Permanent; unmarked errors are treated as
// transient.
type Transport interface {
	Send(ctx context.Context, msg Message) (Ack, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, msg Message) (Ack, error)

func (f TransportFunc) Send(ctx context.Context, msg Message) (Ack, error) { return f(ctx, msg) }
