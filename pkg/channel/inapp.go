package channel

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/broadcast"
	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// InAppMessage is what connected clients receive.
type InAppMessage struct {
	NotificationID string    `json:"notification_id"`
	RecipientID    string    `json:"recipient_id"`
	Subject        string    `json:"subject,omitempty"`
	Body           string    `json:"body"`
	SentAt         time.Time `json:"sent_at"`
}

// InAppTransport pushes messages to the live sessions of a user. The
// recipient record is the durable inbox, so a user with no open session still
// counts as sent.
type InAppTransport struct {
	hub    *broadcast.Hub[InAppMessage]
	now    func() time.Time
	logger *slog.Logger
}

type InAppOption func(*InAppTransport)

func WithInAppLogger(l *slog.Logger) InAppOption {
	return func(t *InAppTransport) {
		if l != nil {
			t.logger = l
		}
	}
}

func WithInAppClock(now func() time.Time) InAppOption {
	return func(t *InAppTransport) {
		if now != nil {
			t.now = now
		}
	}
}

func NewInAppTransport(hub *broadcast.Hub[InAppMessage], opts ...InAppOption) *InAppTransport {
	t := &InAppTransport{hub: hub, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Subscribe opens a live session for userID.
func (t *InAppTransport) Subscribe(ctx context.Context, userID string) (broadcast.Subscriber[InAppMessage], error) {
	return t.hub.Subscribe(ctx, userID)
}

func (t *InAppTransport) Send(ctx context.Context, msg Message) (Ack, error) {
	if err := msg.Validate(); err != nil {
		return Ack{}, Permanent(err)
	}

	n, err := t.hub.Publish(ctx, msg.Address, InAppMessage{
		NotificationID: msg.NotificationID,
		RecipientID:    msg.RecipientID,
		Subject:        msg.Subject,
		Body:           msg.Body,
		SentAt:         t.now(),
	})
	if err != nil {
		if errors.Is(err, broadcast.ErrHubClosed) {
			return Ack{}, Transient(err)
		}
		return Ack{}, Classify(err)
	}

	t.logger.LogAttrs(ctx, slog.LevelDebug, "in-app message published",
		logger.UserID(msg.Address), logger.Count("sessions", n))
	return Ack{ProviderMessageID: msg.ID}, nil
}

var _ Transport = (*InAppTransport)(nil)
