package notifications

import (
	"fmt"
	"slices"
	"time"
)

// Channel names a delivery mechanism.
type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelSMS     Channel = "sms"
	ChannelPush    Channel = "push"
	ChannelInApp   Channel = "in_app"
	ChannelWebhook Channel = "webhook"
)

func (c Channel) String() string { return string(c) }

// Notification is the rendered content of one send. It is not modified once
// fan-out starts; withdrawal is tracked separately.
type Notification struct {
	ID         string    `json:"id"`
	TemplateID *string   `json:"template_id,omitempty"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	Channels   []Channel `json:"channels"`
	CreatedAt  time.Time `json:"created_at"`
}

// Validate checks the fields required before persisting.
func (n Notification) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidNotification)
	}
	if n.Body == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidNotification)
	}
	for i, ch := range n.Channels {
		if ch == "" {
			return fmt.Errorf("%w: channel %d is empty", ErrInvalidNotification, i)
		}
		if slices.Contains(n.Channels[:i], ch) {
			return fmt.Errorf("%w: channel %q listed twice", ErrInvalidNotification, ch)
		}
	}
	return nil
}

// Recipient is one user's copy of a notification.
type Recipient struct {
	ID             string     `json:"id"`
	NotificationID string     `json:"notification_id"`
	UserID         string     `json:"user_id"`
	Read           bool       `json:"read"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// DeliveryLog tracks delivery of a notification to a recipient on one
// channel. RecipientID is nil for channel-level failures.
type DeliveryLog struct {
	ID             string         `json:"id"`
	NotificationID string         `json:"notification_id"`
	RecipientID    *string        `json:"recipient_id,omitempty"`
	Channel        Channel        `json:"channel"`
	Status         DeliveryStatus `json:"status"`
	ErrorMessage   *string        `json:"error_message,omitempty"`
	SentAt         *time.Time     `json:"sent_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Unattributed reports whether the log is not tied to a recipient.
func (l DeliveryLog) Unattributed() bool {
	return l.RecipientID == nil
}

// LogUpdate is a compare-and-set status change for a delivery log.
// The update applies only while the stored status equals From.
type LogUpdate struct {
	From         DeliveryStatus
	To           DeliveryStatus
	ErrorMessage *string    // nil keeps the stored message
	SentAt       *time.Time // nil keeps the stored value
}
