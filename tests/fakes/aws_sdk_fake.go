package fakes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
)

// FakeSecretsManagerClient is a mock implementation of the Secrets Manager
// client subset used by AWSSecretsManagerDriver
type FakeSecretsManagerClient struct {
	mu sync.Mutex

	// Region is embedded in generated ARNs
	Region string
	// Secrets maps secret names to their data
	Secrets map[string]*SecretData
	// Errors maps secret names to errors to return
	Errors map[string]error
	// CreateSecretFunc allows custom behavior for CreateSecret
	CreateSecretFunc func(ctx context.Context, params *secretsmanager.CreateSecretInput) (*secretsmanager.CreateSecretOutput, error)
}

// SecretData holds the data for a mock secret
type SecretData struct {
	ARN          string
	SecretString *string
	VersionId    *string
	CreatedDate  *time.Time
}

// NewFakeSecretsManagerClient creates a new mock Secrets Manager client
func NewFakeSecretsManagerClient() *FakeSecretsManagerClient {
	return &FakeSecretsManagerClient{
		Region:  "us-east-1",
		Secrets: make(map[string]*SecretData),
		Errors:  make(map[string]error),
	}
}

// ARN returns the ARN the fake assigns to name
func (f *FakeSecretsManagerClient) ARN(name string) string {
	return fmt.Sprintf("arn:aws:secretsmanager:%s:123456789012:secret:%s", f.Region, name)
}

// AddSecretString adds an existing string secret to the mock client
func (f *FakeSecretsManagerClient) AddSecretString(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	f.Secrets[name] = &SecretData{
		ARN:          f.ARN(name),
		SecretString: aws.String(value),
		VersionId:    aws.String("v1-abc123"),
		CreatedDate:  &now,
	}
}

// AddError configures the mock to return an error for a specific secret
func (f *FakeSecretsManagerClient) AddError(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[name] = err
}

// SecretString returns the stored value of name
func (f *FakeSecretsManagerClient) SecretString(name string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.Secrets[name]
	if !ok {
		return "", false
	}
	return aws.ToString(data.SecretString), true
}

// CreateSecret mocks the CreateSecret operation
func (f *FakeSecretsManagerClient) CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error) {
	if f.CreateSecretFunc != nil {
		return f.CreateSecretFunc(ctx, params)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := aws.ToString(params.Name)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err, exists := f.Errors[name]; exists {
		return nil, err
	}

	if _, exists := f.Secrets[name]; exists {
		return nil, &types.ResourceExistsException{
			Message: aws.String(fmt.Sprintf("The operation failed because the secret %s already exists.", name)),
		}
	}

	now := time.Now()
	versionID := "v1-abc123"
	f.Secrets[name] = &SecretData{
		ARN:          f.ARN(name),
		SecretString: params.SecretString,
		VersionId:    aws.String(versionID),
		CreatedDate:  &now,
	}

	return &secretsmanager.CreateSecretOutput{
		ARN:       aws.String(f.ARN(name)),
		Name:      aws.String(name),
		VersionId: aws.String(versionID),
	}, nil
}
