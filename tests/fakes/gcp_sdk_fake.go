package fakes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// FakeGCPSecretManagerClient is a mock implementation of the Secret Manager
// client subset used by GCPSecretManagerDriver
type FakeGCPSecretManagerClient struct {
	mu sync.Mutex

	// Secrets maps full resource names (projects/X/secrets/Y) to their data
	Secrets map[string]*GCPSecretData
	// Errors maps secret IDs to errors to return from CreateSecret
	Errors map[string]error
	// CreateSecretFunc allows custom behavior for CreateSecret
	CreateSecretFunc func(ctx context.Context, req *secretmanagerpb.CreateSecretRequest) (*secretmanagerpb.Secret, error)
	// AddSecretVersionFunc allows custom behavior for AddSecretVersion
	AddSecretVersionFunc func(ctx context.Context, req *secretmanagerpb.AddSecretVersionRequest) (*secretmanagerpb.SecretVersion, error)

	// Closed counts Close calls
	Closed int
}

// GCPSecretData holds the data for a mock GCP secret
type GCPSecretData struct {
	Name        string
	CreateTime  *timestamppb.Timestamp
	Replication *secretmanagerpb.Replication
	Versions    [][]byte
}

// NewFakeGCPSecretManagerClient creates a new mock GCP Secret Manager client
func NewFakeGCPSecretManagerClient() *FakeGCPSecretManagerClient {
	return &FakeGCPSecretManagerClient{
		Secrets: make(map[string]*GCPSecretData),
		Errors:  make(map[string]error),
	}
}

// AddSecret registers an existing secret so CreateSecret reports AlreadyExists
func (f *FakeGCPSecretManagerClient) AddSecret(projectID, secretID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fullName := fmt.Sprintf("projects/%s/secrets/%s", projectID, secretID)
	f.Secrets[fullName] = &GCPSecretData{
		Name:       fullName,
		CreateTime: timestamppb.New(time.Now()),
	}
}

// AddError configures the mock to return an error for a specific secret ID
func (f *FakeGCPSecretManagerClient) AddError(secretID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[secretID] = err
}

// Payload returns the latest stored version of a secret
func (f *FakeGCPSecretManagerClient) Payload(projectID, secretID string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.Secrets[fmt.Sprintf("projects/%s/secrets/%s", projectID, secretID)]
	if !ok || len(data.Versions) == 0 {
		return nil, false
	}
	return data.Versions[len(data.Versions)-1], true
}

// CreateSecret mocks the CreateSecret operation
func (f *FakeGCPSecretManagerClient) CreateSecret(ctx context.Context, req *secretmanagerpb.CreateSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error) {
	if f.CreateSecretFunc != nil {
		return f.CreateSecretFunc(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err, exists := f.Errors[req.GetSecretId()]; exists {
		return nil, err
	}

	fullName := fmt.Sprintf("%s/secrets/%s", req.GetParent(), req.GetSecretId())
	if _, exists := f.Secrets[fullName]; exists {
		return nil, status.Errorf(codes.AlreadyExists, "Secret [%s] already exists.", fullName)
	}

	now := timestamppb.New(time.Now())
	f.Secrets[fullName] = &GCPSecretData{
		Name:        fullName,
		CreateTime:  now,
		Replication: req.GetSecret().GetReplication(),
	}

	return &secretmanagerpb.Secret{
		Name:        fullName,
		CreateTime:  now,
		Replication: req.GetSecret().GetReplication(),
	}, nil
}

// AddSecretVersion mocks the AddSecretVersion operation
func (f *FakeGCPSecretManagerClient) AddSecretVersion(ctx context.Context, req *secretmanagerpb.AddSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.SecretVersion, error) {
	if f.AddSecretVersionFunc != nil {
		return f.AddSecretVersionFunc(ctx, req)
	}
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	data, exists := f.Secrets[req.GetParent()]
	if !exists {
		return nil, status.Errorf(codes.NotFound, "Secret [%s] not found.", req.GetParent())
	}
	data.Versions = append(data.Versions, req.GetPayload().GetData())

	return &secretmanagerpb.SecretVersion{
		Name:       fmt.Sprintf("%s/versions/%d", req.GetParent(), len(data.Versions)),
		State:      secretmanagerpb.SecretVersion_ENABLED,
		CreateTime: timestamppb.New(time.Now()),
	}, nil
}

// Close mocks closing the client
func (f *FakeGCPSecretManagerClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed++
	return nil
}
