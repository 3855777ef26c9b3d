package logger

import (
	"context"
	"log/slog"
)

type notificationIDKey struct{}

// WithNotificationID stores the notification id for NotificationIDExtractor.
func WithNotificationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, notificationIDKey{}, id)
}

// NotificationIDFromContext returns the id stored by WithNotificationID.
func NotificationIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(notificationIDKey{}).(string)
	return id, ok && id != ""
}

// NotificationIDExtractor adds notification_id to records logged with a
// context carrying one.
func NotificationIDExtractor() ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		id, ok := NotificationIDFromContext(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		return NotificationID(id), true
	}
}
