package channel

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/dmitrymomot/notifykit/pkg/logger"
)

// SESAPI is the subset of *ses.Client used by SESTransport.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESTransport sends email through Amazon SES.
type SESTransport struct {
	api    SESAPI
	from   string
	logger *slog.Logger
}

type SESOption func(*SESTransport)

func WithSESLogger(l *slog.Logger) SESOption {
	return func(t *SESTransport) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewSESClient builds an SES client from a resolved AWS config.
func NewSESClient(cfg aws.Config) *ses.Client {
	return ses.NewFromConfig(cfg)
}

func NewSESTransport(api SESAPI, from string, opts ...SESOption) *SESTransport {
	t := &SESTransport{api: api, from: from, logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *SESTransport) Send(ctx context.Context, msg Message) (Ack, error) {
	if err := msg.Validate(); err != nil {
		return Ack{}, Permanent(err)
	}

	out, err := t.api.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(t.from),
		Destination: &types.Destination{ToAddresses: []string{msg.Address}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(msg.Body), Charset: aws.String("UTF-8")},
			},
		},
		Tags: []types.MessageTag{
			{Name: aws.String("notification_id"), Value: aws.String(msg.NotificationID)},
		},
	})
	if err != nil {
		err = classifyAWS(err)
		t.logger.LogAttrs(ctx, slog.LevelDebug, "ses send failed",
			logger.DeliveryLogID(msg.ID), logger.Error(err))
		return Ack{}, err
	}
	return Ack{ProviderMessageID: aws.ToString(out.MessageId)}, nil
}

var _ Transport = (*SESTransport)(nil)
