package delayqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// Entry is one scheduled delivery attempt.
type Entry struct {
	NotificationID string                `json:"notification_id"`
	RecipientID    string                `json:"recipient_id"`
	UserID         string                `json:"user_id"`
	Channel        notifications.Channel `json:"channel"`
	// Attempt is the 1-based number of the attempt to run when due.
	Attempt int       `json:"attempt"`
	DueAt   time.Time `json:"due_at"`
}

func (e Entry) Validate() error {
	if e.NotificationID == "" || e.RecipientID == "" || e.Channel == "" {
		return fmt.Errorf("%w: notification, recipient and channel are required", ErrInvalidEntry)
	}
	if e.Attempt < 1 {
		return fmt.Errorf("%w: attempt must be positive, got %d", ErrInvalidEntry, e.Attempt)
	}
	return nil
}

// Handler runs a due entry.
type Handler func(ctx context.Context, e Entry)

// Queue schedules entries for later execution.
type Queue interface {
	// Push schedules e. Entries pushed before Run starts are held until it does.
	Push(ctx context.Context, e Entry) error
	// Run hands due entries to h until ctx is done.
	Run(ctx context.Context, h Handler) error
}
