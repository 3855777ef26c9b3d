package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mrz1836/postmark"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// Postmark error codes that will not succeed on retry.
const (
	postmarkInvalidAPIToken   int64 = 10
	postmarkInvalidEmail      int64 = 300
	postmarkInactiveRecipient int64 = 406
)

// PostmarkAPI is the subset of *postmark.Client used by PostmarkTransport.
type PostmarkAPI interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

// PostmarkTransport sends email through Postmark.
type PostmarkTransport struct {
	api    PostmarkAPI
	cfg    PostmarkConfig
	logger *slog.Logger
}

// PostmarkOption configures a PostmarkTransport.
type PostmarkOption func(*PostmarkTransport)

func WithPostmarkLogger(l *slog.Logger) PostmarkOption {
	return func(t *PostmarkTransport) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewPostmarkClient builds a Postmark API client from cfg.
func NewPostmarkClient(cfg PostmarkConfig) (*postmark.Client, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("%w: postmark server token is required", ErrInvalidConfig)
	}
	return postmark.NewClient(cfg.ServerToken, cfg.AccountToken), nil
}

func NewPostmarkTransport(api PostmarkAPI, cfg PostmarkConfig, opts ...PostmarkOption) *PostmarkTransport {
	t := &PostmarkTransport{api: api, cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *PostmarkTransport) Send(ctx context.Context, msg Message) (Ack, error) {
	if err := msg.Validate(); err != nil {
		return Ack{}, Permanent(err)
	}

	resp, err := t.api.SendEmail(ctx, postmark.Email{
		From:     t.cfg.From,
		ReplyTo:  t.cfg.ReplyTo,
		To:       msg.Address,
		Subject:  msg.Subject,
		TextBody: msg.Body,
		Tag:      "notification",
		Headers: []postmark.Header{
			{Name: "X-Notification-ID", Value: msg.NotificationID},
			{Name: "X-Delivery-ID", Value: msg.ID},
		},
	})
	code := resp.ErrorCode
	var apiErr postmark.APIError
	if errors.As(err, &apiErr) {
		code = apiErr.ErrorCode
	}

	if code != 0 {
		perr := fmt.Errorf("postmark error %d: %w", code, err)
		if err == nil {
			perr = fmt.Errorf("postmark error %d: %s", code, resp.Message)
		}
		t.logger.LogAttrs(ctx, slog.LevelWarn, "postmark rejected message",
			logger.DeliveryLogID(msg.ID), slog.Int64("postmark_code", code))
		return Ack{}, classifyPostmark(code, perr)
	}
	if err != nil {
		return Ack{}, Classify(err)
	}

	return Ack{ProviderMessageID: resp.MessageID}, nil
}

// classifyPostmark maps a Postmark API error code to a delivery error kind.
func classifyPostmark(code int64, err error) error {
	switch code {
	case postmarkInvalidAPIToken, postmarkInvalidEmail, postmarkInactiveRecipient:
		return Permanent(err)
	default:
		return Transient(err)
	}
}

var _ Transport = (*PostmarkTransport)(nil)
