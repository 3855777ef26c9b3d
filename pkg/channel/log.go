package channel

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// LogTransport only logs messages. Meant for local development.
type LogTransport struct {
	logger *slog.Logger
}

func NewLogTransport(l *slog.Logger) *LogTransport {
	if l == nil {
		l = slog.Default()
	}
	return &LogTransport{logger: l}
}

func (t *LogTransport) Send(ctx context.Context, msg Message) (Ack, error) {
	if err := msg.Validate(); err != nil {
		return Ack{}, Permanent(err)
	}
	t.logger.LogAttrs(ctx, slog.LevelInfo, "notification sent",
		logger.DeliveryLogID(msg.ID),
		logger.NotificationID(msg.NotificationID),
		logger.RecipientID(msg.RecipientID),
		logger.Channel(string(msg.Channel)),
		slog.String("address", msg.Address),
		slog.String("subject", msg.Subject),
	)
	return Ack{ProviderMessageID: msg.ID}, nil
}

var _ Transport = (*LogTransport)(nil)
