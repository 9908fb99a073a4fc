package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"

	"github.com/systmms/keyproxy/internal/logging"
	"github.com/systmms/keyproxy/pkg/provider"
)

const (
	awsFieldAccessKey = "aws_access_key"
	awsFieldSecretKey = "aws_secret_key"
	awsFieldRegion    = "aws_region"
	awsFieldEndpoint  = "aws_endpoint"

	// DefaultAWSRegion is used when neither the credential bundle nor the
	// driver configuration names a region.
	DefaultAWSRegion = "us-east-1"
)

// SecretsManagerClientAPI defines the interface for AWS Secrets Manager operations
// This allows for mocking in tests
type SecretsManagerClientAPI interface {
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
}

// AWSClientSettings carries everything needed to build a Secrets Manager client
// for one call.
type AWSClientSettings struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Endpoint        string // Optional custom endpoint for LocalStack or testing
}

// AWSClientFactory builds a Secrets Manager client from static credentials.
type AWSClientFactory func(ctx context.Context, settings AWSClientSettings) (SecretsManagerClientAPI, error)

// AWSSecretsManagerDriver stores secrets in AWS Secrets Manager
type AWSSecretsManagerDriver struct {
	logger    *logging.Logger
	region    string
	endpoint  string
	newClient AWSClientFactory
}

// AWSDriverOption is a functional option for configuring the AWS driver
type AWSDriverOption func(*AWSSecretsManagerDriver)

// WithAWSClientFactory replaces the Secrets Manager client constructor (for testing)
func WithAWSClientFactory(factory AWSClientFactory) AWSDriverOption {
	return func(d *AWSSecretsManagerDriver) {
		d.newClient = factory
	}
}

// WithSecretsManagerClient makes every call use client regardless of credentials (for testing)
func WithSecretsManagerClient(client SecretsManagerClientAPI) AWSDriverOption {
	return WithAWSClientFactory(func(context.Context, AWSClientSettings) (SecretsManagerClientAPI, error) {
		return client, nil
	})
}

// WithAWSRegion sets the region used when the credential bundle has none
func WithAWSRegion(region string) AWSDriverOption {
	return func(d *AWSSecretsManagerDriver) {
		if region != "" {
			d.region = region
		}
	}
}

// WithAWSEndpoint sets the endpoint used when the credential bundle has none
func WithAWSEndpoint(endpoint string) AWSDriverOption {
	return func(d *AWSSecretsManagerDriver) {
		d.endpoint = endpoint
	}
}

// NewAWSSecretsManagerDriver creates a new AWS Secrets Manager driver
func NewAWSSecretsManagerDriver(logger *logging.Logger, opts ...AWSDriverOption) *AWSSecretsManagerDriver {
	if logger == nil {
		logger = logging.Discard()
	}
	d := &AWSSecretsManagerDriver{
		logger:    logger,
		region:    DefaultAWSRegion,
		newClient: newAWSSecretsManagerClient,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// newAWSSecretsManagerClient creates a real client using static credentials
func newAWSSecretsManagerClient(ctx context.Context, settings AWSClientSettings) (SecretsManagerClientAPI, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(settings.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(settings.AccessKeyID, settings.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOpts []func(*secretsmanager.Options)
	if settings.Endpoint != "" {
		endpoint := settings.Endpoint
		clientOpts = append(clientOpts, func(o *secretsmanager.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	return secretsmanager.NewFromConfig(cfg, clientOpts...), nil
}

// Kind returns provider.KindAWS
func (d *AWSSecretsManagerDriver) Kind() provider.Kind {
	return provider.KindAWS
}

// RequiredFields returns the credential fields the driver needs
func (d *AWSSecretsManagerDriver) RequiredFields() []string {
	return []string{awsFieldAccessKey, awsFieldSecretKey}
}

// Store creates the secret and returns its ARN.
func (d *AWSSecretsManagerDriver) Store(ctx context.Context, name, value string, creds provider.Credentials) (provider.Reference, error) {
	if err := provider.RequireFields(d, creds); err != nil {
		return "", err
	}

	settings := d.settingsFor(creds)
	client, err := d.newClient(ctx, settings)
	if err != nil {
		return "", provider.BackendError{Provider: provider.KindAWS, Op: "create client", Err: err}
	}

	d.logger.Debug("Creating AWS secret %s in %s", name, settings.Region)

	out, err := client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(name),
		SecretString: aws.String(value),
	})
	if err != nil {
		return "", d.handleError(err, name)
	}
	if out == nil || aws.ToString(out.ARN) == "" {
		return "", provider.BackendError{
			Provider: provider.KindAWS,
			Op:       "create secret",
			Err:      errors.New("response carried no ARN"),
		}
	}

	return provider.Reference(aws.ToString(out.ARN)), nil
}

func (d *AWSSecretsManagerDriver) settingsFor(creds provider.Credentials) AWSClientSettings {
	settings := AWSClientSettings{
		AccessKeyID:     creds[awsFieldAccessKey],
		SecretAccessKey: creds[awsFieldSecretKey],
		Region:          d.region,
		Endpoint:        d.endpoint,
	}
	if r := strings.TrimSpace(creds[awsFieldRegion]); r != "" {
		settings.Region = r
	}
	if e := strings.TrimSpace(creds[awsFieldEndpoint]); e != "" {
		settings.Endpoint = e
	}
	return settings
}

// handleError converts AWS errors to the normalized error kinds
func (d *AWSSecretsManagerDriver) handleError(err error, name string) error {
	var exists *types.ResourceExistsException
	if errors.As(err, &exists) {
		return provider.BackendConflictError{Provider: provider.KindAWS, Name: name, Err: err}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ResourceExistsException":
			return provider.BackendConflictError{Provider: provider.KindAWS, Name: name, Err: err}
		case "UnrecognizedClientException", "InvalidSignatureException", "InvalidClientTokenId",
			"IncompleteSignature", "ExpiredTokenException", "AccessDeniedException":
			return provider.BackendAuthError{
				Provider: provider.KindAWS,
				Message:  apiErr.ErrorMessage(),
				Err:      err,
			}
		}
	}

	if isAuthError(err) {
		return provider.BackendAuthError{Provider: provider.KindAWS, Message: err.Error(), Err: err}
	}

	return provider.BackendError{Provider: provider.KindAWS, Op: "create secret", Err: err}
}

func isAuthError(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "AccessDenied") ||
		strings.Contains(errStr, "UnauthorizedOperation") ||
		strings.Contains(errStr, "InvalidUserID") ||
		strings.Contains(errStr, "Forbidden")
}
