package channel

import (
	"context"
	"errors"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/smithy-go"
)

// LoadAWSConfig resolves an aws.Config for the SES and SNS transports.
func LoadAWSConfig(ctx context.Context, cfg AWSConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, errors.Join(ErrInvalidConfig, err)
	}
	if cfg.Endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return awsCfg, nil
}

// AWS error codes that describe the request itself rather than the service
// state, so retrying cannot help.
var awsPermanentCodes = []string{
	// SES
	"MessageRejected",
	"MailFromDomainNotVerifiedException",
	"ConfigurationSetDoesNotExistException",
	"AccountSendingPausedException",
	// SNS
	"InvalidParameter",
	"InvalidParameterValue",
	"EndpointDisabled",
	"NotFound",
	"AuthorizationError",
	"OptedOut",
	// shared
	"ValidationError",
	"AccessDenied",
	"AccessDeniedException",
	"InvalidClientTokenId",
}

// classifyAWS marks AWS SDK errors. Server faults and throttling are
// transient; the request-level codes above are permanent.
func classifyAWS(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if apiErr.ErrorFault() == smithy.FaultServer {
			return Transient(err)
		}
		if slices.Contains(awsPermanentCodes, apiErr.ErrorCode()) {
			return Permanent(err)
		}
	}
	return Classify(err)
}
