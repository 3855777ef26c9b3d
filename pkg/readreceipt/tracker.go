package readreceipt

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// Status is the read state of one recipient.
type Status struct {
	RecipientID    string     `json:"recipient_id"`
	NotificationID string     `json:"notification_id"`
	UserID         string     `json:"user_id"`
	Read           bool       `json:"read"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
}

// Tracker marks recipients read. Safe for concurrent use; the store decides
// which of two racing calls wins.
type Tracker struct {
	store  notifications.RecipientStore
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Tracker)

func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

func NewTracker(store notifications.RecipientStore, opts ...Option) *Tracker {
	t := &Tracker{store: store, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// MarkRead sets the read flag and returns the stored read time. A zero at
// means now. Repeated calls return the first time recorded.
func (t *Tracker) MarkRead(ctx context.Context, recipientID string, at time.Time) (time.Time, error) {
	recipientID = strings.TrimSpace(recipientID)
	if recipientID == "" {
		return time.Time{}, ErrInvalidRecipient
	}
	if at.IsZero() {
		at = t.now()
	}
	at = at.UTC()

	stored, err := t.store.MarkRead(ctx, recipientID, at)
	if err != nil {
		if errors.Is(err, notifications.ErrRecipientNotFound) {
			return time.Time{}, err
		}
		return time.Time{}, errors.Join(ErrReadUpdate, err)
	}

	if stored.Equal(at) {
		t.logger.LogAttrs(ctx, slog.LevelDebug, "notification read", logger.RecipientID(recipientID))
	}
	return stored, nil
}

func (t *Tracker) Status(ctx context.Context, recipientID string) (Status, error) {
	if strings.TrimSpace(recipientID) == "" {
		return Status{}, ErrInvalidRecipient
	}
	r, err := t.store.GetRecipient(ctx, recipientID)
	if err != nil {
		return Status{}, err
	}
	return Status{
		RecipientID:    r.ID,
		NotificationID: r.NotificationID,
		UserID:         r.UserID,
		Read:           r.Read,
		ReadAt:         r.ReadAt,
	}, nil
}

// CountUnread counts the user's unread recipient records across
// notifications.
func (t *Tracker) CountUnread(ctx context.Context, userID string) (int, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, ErrInvalidUser
	}
	return t.store.CountUnread(ctx, userID)
}

// Inbox lists the user's recipient records, newest first.
func (t *Tracker) Inbox(ctx context.Context, userID string, opts notifications.ListOptions) ([]Status, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidUser
	}
	list, err := t.store.ListRecipientsByUser(ctx, userID, opts)
	if err != nil {
		return nil, err
	}
	out := make([]Status, 0, len(list))
	for _, r := range list {
		out = append(out, Status{
			RecipientID:    r.ID,
			NotificationID: r.NotificationID,
			UserID:         r.UserID,
			Read:           r.Read,
			ReadAt:         r.ReadAt,
		})
	}
	return out, nil
}
