package channel

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/webhook"
)

// WebhookPayload is the JSON body posted to integration endpoints.
type WebhookPayload struct {
	Event          string    `json:"event"`
	DeliveryID     string    `json:"delivery_id"`
	NotificationID string    `json:"notification_id"`
	RecipientID    string    `json:"recipient_id"`
	UserID         string    `json:"user_id"`
	Subject        string    `json:"subject,omitempty"`
	Body           string    `json:"body"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// WebhookSender is implemented by *webhook.Sender.
type WebhookSender interface {
	Send(ctx context.Context, target string, data any) (webhook.Response, error)
}

// WebhookTransport posts notifications to the URL in Message.Address.
type WebhookTransport struct {
	sender WebhookSender
	now    func() time.Time
}

func NewWebhookTransport(sender WebhookSender) *WebhookTransport {
	return &WebhookTransport{sender: sender, now: time.Now}
}

func (t *WebhookTransport) Send(ctx context.Context, msg Message) (Ack, error) {
	if err := msg.Validate(); err != nil {
		return Ack{}, Permanent(err)
	}

	_, err := t.sender.Send(ctx, msg.Address, WebhookPayload{
		Event:          "notification.delivery",
		DeliveryID:     msg.ID,
		NotificationID: msg.NotificationID,
		RecipientID:    msg.RecipientID,
		UserID:         msg.UserID,
		Subject:        msg.Subject,
		Body:           msg.Body,
		OccurredAt:     t.now().UTC(),
	})
	switch {
	case err == nil:
		return Ack{ProviderMessageID: msg.ID}, nil
	case errors.Is(err, webhook.ErrPermanentFailure), errors.Is(err, webhook.ErrInvalidURL):
		return Ack{}, Permanent(err)
	default:
		return Ack{}, Classify(err)
	}
}

var _ Transport = (*WebhookTransport)(nil)
