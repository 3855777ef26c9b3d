package notifications

import (
	"context"
	"time"
)

// NotificationStore persists rendered notifications and their withdrawal.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n Notification) error
	GetNotification(ctx context.Context, id string) (Notification, error)

	// WithdrawNotification records that no new dispatch may start. Repeated
	// calls keep the first timestamp.
	WithdrawNotification(ctx context.Context, id string, at time.Time) error
	IsWithdrawn(ctx context.Context, id string) (bool, error)
}

// RecipientStore persists per-user recipient records.
type RecipientStore interface {
	// CreateRecipient inserts r, assigning an id when empty. A second record
	// for the same (notification, user) fails with ErrDuplicateRecipient.
	CreateRecipient(ctx context.Context, r Recipient) (Recipient, error)
	GetRecipient(ctx context.Context, id string) (Recipient, error)
	GetRecipientByUser(ctx context.Context, notificationID, userID string) (Recipient, error)
	ListRecipients(ctx context.Context, notificationID string) ([]Recipient, error)
	ListRecipientsByUser(ctx context.Context, userID string, opts ListOptions) ([]Recipient, error)

	// MarkRead sets the read flag once and returns the stored read time,
	// which is the first one recorded.
	MarkRead(ctx context.Context, id string, at time.Time) (time.Time, error)
	CountUnread(ctx context.Context, userID string) (int, error)
}

// DeliveryLogStore persists delivery attempt lineages.
type DeliveryLogStore interface {
	// UpsertDeliveryLog creates the (notification, recipient, channel) log in
	// pending, or moves an existing pending or failed log back to pending
	// keeping its error message. A log already sent or delivered is returned
	// with ErrInvalidTransition.
	UpsertDeliveryLog(ctx context.Context, notificationID, recipientID string, ch Channel) (DeliveryLog, error)

	// AppendDeliveryLog inserts an unattributed log (nil RecipientID).
	AppendDeliveryLog(ctx context.Context, l DeliveryLog) (DeliveryLog, error)

	// UpdateDeliveryLog applies u if the stored status still equals u.From.
	UpdateDeliveryLog(ctx context.Context, id string, u LogUpdate) (DeliveryLog, error)

	GetDeliveryLog(ctx context.Context, id string) (DeliveryLog, error)
	FindDeliveryLog(ctx context.Context, notificationID, recipientID string, ch Channel) (DeliveryLog, error)
	ListDeliveryLogs(ctx context.Context, notificationID string) ([]DeliveryLog, error)
}

// Storage is everything the engine persists.
type Storage interface {
	NotificationStore
	RecipientStore
	DeliveryLogStore
}

// ListOptions pages recipient listings for a user, newest first.
type ListOptions struct {
	Limit      int // 0 means no limit
	Offset     int
	OnlyUnread bool
}
