package channel

// PostmarkConfig configures the Postmark email transport.
type PostmarkConfig struct {
	ServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	AccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	From         string `env:"NOTIFY_EMAIL_FROM" envDefault:"no-reply@school.example"`
	ReplyTo      string `env:"NOTIFY_EMAIL_REPLY_TO"`
}

// AWSConfig configures the SES and SNS transports. Empty credentials fall
// back to the default AWS credential chain.
type AWSConfig struct {
	Region          string `env:"AWS_REGION" envDefault:"us-east-1"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	Endpoint        string `env:"AWS_ENDPOINT_URL"`
	SESFrom         string `env:"SES_FROM" envDefault:"no-reply@school.example"`
	SMSSenderID     string `env:"SNS_SMS_SENDER_ID"`
}

// WebhookConfig configures the integration webhook transport.
type WebhookConfig struct {
	Secret string `env:"NOTIFY_WEBHOOK_SECRET"`
}
