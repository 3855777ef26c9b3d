package main

import (
	"time"

	"github.com/dmitrymomot/notifykit/pkg/channel"
	"github.com/dmitrymomot/notifykit/pkg/dispatcher"
	"github.com/dmitrymomot/notifykit/pkg/httpserver"
	"github.com/dmitrymomot/notifykit/pkg/pg"
	"github.com/dmitrymomot/notifykit/pkg/redis"
	"github.com/dmitrymomot/notifykit/pkg/throttle"
)

// Provider names accepted by the *_PROVIDER variables.
const (
	providerLog      = "log"
	providerPostmark = "postmark"
	providerSES      = "ses"
	providerSNS      = "sns"
	providerNone     = "none"
)

type appConfig struct {
	Env     string `env:"APP_ENV" envDefault:"development"`
	Service string `env:"SERVICE_NAME" envDefault:"notifyd"`

	// TemplatesFile is upserted into Postgres at startup.
	TemplatesFile string `env:"NOTIFY_TEMPLATES_FILE"`
	// DirectoryFile is the role and group snapshot used to resolve audiences.
	DirectoryFile string `env:"NOTIFY_DIRECTORY_FILE"`

	EmailProvider string `env:"NOTIFY_EMAIL_PROVIDER" envDefault:"log"`
	SMSProvider   string `env:"NOTIFY_SMS_PROVIDER" envDefault:"log"`
	PushProvider  string `env:"NOTIFY_PUSH_PROVIDER" envDefault:"none"`
	Webhooks      bool   `env:"NOTIFY_WEBHOOKS_ENABLED" envDefault:"true"`

	InAppBuffer   int           `env:"NOTIFY_INAPP_BUFFER" envDefault:"16"`
	ReceiptSecret string        `env:"NOTIFY_RECEIPT_SECRET,required"`
	ReceiptMaxAge time.Duration `env:"NOTIFY_RECEIPT_MAX_AGE" envDefault:"5m"`

	RetryQueueKey string `env:"NOTIFY_RETRY_QUEUE_KEY" envDefault:"notifykit:retries"`

	HTTP     httpserver.Config
	PG       pg.Config
	Redis    redis.Config
	Dispatch dispatcher.Config
	Postmark channel.PostmarkConfig
	AWS      channel.AWSConfig
	Webhook  channel.WebhookConfig

	EmailThrottle throttle.Config `envPrefix:"THROTTLE_EMAIL_"`
	SMSThrottle   throttle.Config `envPrefix:"THROTTLE_SMS_"`
	PushThrottle  throttle.Config `envPrefix:"THROTTLE_PUSH_"`
}
