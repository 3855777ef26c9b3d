package channel

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
)

// SNSAPI is the subset of *sns.Client used by SNSTransport.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSTransport publishes SMS to phone numbers and push notifications to
// platform endpoint ARNs through Amazon SNS.
type SNSTransport struct {
	api      SNSAPI
	senderID string
	logger   *slog.Logger
}

type SNSOption func(*SNSTransport)

func WithSNSLogger(l *slog.Logger) SNSOption {
	return func(t *SNSTransport) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithSMSSenderID sets the alphanumeric sender id shown on SMS.
func WithSMSSenderID(id string) SNSOption {
	return func(t *SNSTransport) { t.senderID = id }
}

func NewSNSClient(cfg aws.Config) *sns.Client {
	return sns.NewFromConfig(cfg)
}

func NewSNSTransport(api SNSAPI, opts ...SNSOption) *SNSTransport {
	t := &SNSTransport{api: api, logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *SNSTransport) Send(ctx context.Context, msg Message) (Ack, error) {
	if err := msg.Validate(); err != nil {
		return Ack{}, Permanent(err)
	}

	in := &sns.PublishInput{Message: aws.String(msg.Body)}
	switch msg.Channel {
	case notifications.ChannelSMS:
		in.PhoneNumber = aws.String(msg.Address)
		if t.senderID != "" {
			in.MessageAttributes = map[string]types.MessageAttributeValue{
				"AWS.SNS.SMS.SenderID": {DataType: aws.String("String"), StringValue: aws.String(t.senderID)},
			}
		}
	case notifications.ChannelPush:
		in.TargetArn = aws.String(msg.Address)
		if msg.Subject != "" {
			in.Subject = aws.String(msg.Subject)
		}
	default:
		return Ack{}, Permanent(fmt.Errorf("%w: sns cannot deliver %s", ErrInvalidMessage, msg.Channel))
	}

	out, err := t.api.Publish(ctx, in)
	if err != nil {
		err = classifyAWS(err)
		t.logger.LogAttrs(ctx, slog.LevelDebug, "sns publish failed",
			logger.DeliveryLogID(msg.ID), logger.Channel(string(msg.Channel)), logger.Error(err))
		return Ack{}, err
	}
	return Ack{ProviderMessageID: aws.ToString(out.MessageId)}, nil
}

var _ Transport = (*SNSTransport)(nil)
