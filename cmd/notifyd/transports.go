package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/dmitrymomot/notifykit/pkg/broadcast"
	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/dispatcher"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/throttle"
	"github.com/dmitrymomot/notifykit/pkg/webhook"
)

// transports builds the dispatcher options for every configured channel and
// returns the in-app transport for the stream endpoint.
func transports(ctx context.Context, cfg appConfig, log *slog.Logger) ([]dispatcher.Option, *channel.InAppTransport, error) {
	var (
		opts   []dispatcher.Option
		awsCfg *aws.Config
	)

	loadAWS := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		c, err := channel.LoadAWSConfig(ctx, cfg.AWS)
		if err != nil {
			return aws.Config{}, err
		}
		awsCfg = &c
		return c, nil
	}

	switch cfg.EmailProvider {
	case providerPostmark:
		client, err := channel.NewPostmarkClient(cfg.Postmark)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, dispatcher.WithTransport(notifications.ChannelEmail,
			channel.NewPostmarkTransport(client, cfg.Postmark, channel.WithPostmarkLogger(log))))
	case providerSES:
		c, err := loadAWS()
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, dispatcher.WithTransport(notifications.ChannelEmail,
			channel.NewSESTransport(channel.NewSESClient(c), cfg.AWS.SESFrom, channel.WithSESLogger(log))))
	case providerLog:
		opts = append(opts, dispatcher.WithTransport(notifications.ChannelEmail, channel.NewLogTransport(log)))
	case providerNone:
	default:
		return nil, nil, fmt.Errorf("unknown email provider %q", cfg.EmailProvider)
	}

	for _, c := range []struct {
		ch       notifications.Channel
		provider string
	}{
		{notifications.ChannelSMS, cfg.SMSProvider},
		{notifications.ChannelPush, cfg.PushProvider},
	} {
		switch c.provider {
		case providerSNS:
			awsc, err := loadAWS()
			if err != nil {
				return nil, nil, err
			}
			t := channel.NewSNSTransport(channel.NewSNSClient(awsc),
				channel.WithSNSLogger(log), channel.WithSMSSenderID(cfg.AWS.SMSSenderID))
			opts = append(opts, dispatcher.WithTransport(c.ch, t))
		case providerLog:
			opts = append(opts, dispatcher.WithTransport(c.ch, channel.NewLogTransport(log)))
		case providerNone:
		default:
			return nil, nil, fmt.Errorf("unknown %s provider %q", c.ch, c.provider)
		}
	}

	if cfg.Webhooks {
		sender := webhook.NewSender(
			webhook.WithSecret(cfg.Webhook.Secret),
			webhook.WithHTTPClient(&http.Client{Timeout: cfg.Dispatch.AttemptTimeout}),
		)
		opts = append(opts, dispatcher.WithTransport(notifications.ChannelWebhook, channel.NewWebhookTransport(sender)))
	}

	inApp := channel.NewInAppTransport(broadcast.NewHub[channel.InAppMessage](cfg.InAppBuffer),
		channel.WithInAppLogger(log))
	opts = append(opts, dispatcher.WithTransport(notifications.ChannelInApp, inApp))

	return opts, inApp, nil
}

// throttles builds one token bucket per rate limited channel, shared across
// replicas through store.
func throttles(store throttle.Store, cfg appConfig) ([]dispatcher.Option, error) {
	var opts []dispatcher.Option
	for ch, tc := range map[notifications.Channel]throttle.Config{
		notifications.ChannelEmail: cfg.EmailThrottle,
		notifications.ChannelSMS:   cfg.SMSThrottle,
		notifications.ChannelPush:  cfg.PushThrottle,
	} {
		b, err := throttle.NewBucket(store, tc)
		if err != nil {
			return nil, fmt.Errorf("%s throttle: %w", ch, err)
		}
		opts = append(opts, dispatcher.WithThrottle(ch, b))
	}
	return opts, nil
}
