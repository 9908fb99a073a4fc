package providers

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/systmms/keyproxy/internal/logging"
	"github.com/systmms/keyproxy/pkg/provider"
)

const (
	gcpFieldProjectID      = "project_id"
	gcpFieldServiceAccount = "service_account_json"

	gcpReferencePrefix = "gcp_secret_ref_"
)

// GCPSecretManagerClientAPI defines the subset of the Secret Manager client the
// driver uses. This allows for mocking in tests.
type GCPSecretManagerClientAPI interface {
	CreateSecret(ctx context.Context, req *secretmanagerpb.CreateSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error)
	AddSecretVersion(ctx context.Context, req *secretmanagerpb.AddSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.SecretVersion, error)
	Close() error
}

// GCPClientFactory builds a Secret Manager client authenticated with the given
// service-account key document.
type GCPClientFactory func(ctx context.Context, serviceAccountJSON []byte) (GCPSecretManagerClientAPI, error)

// GCPSecretManagerDriver stores secrets in Google Cloud Secret Manager
type GCPSecretManagerDriver struct {
	logger    *logging.Logger
	newClient GCPClientFactory
}

// GCPDriverOption is a functional option for configuring the GCP driver
type GCPDriverOption func(*GCPSecretManagerDriver)

// WithGCPClientFactory replaces the Secret Manager client constructor (for testing)
func WithGCPClientFactory(factory GCPClientFactory) GCPDriverOption {
	return func(d *GCPSecretManagerDriver) {
		d.newClient = factory
	}
}

// NewGCPSecretManagerDriver creates a new GCP Secret Manager driver
func NewGCPSecretManagerDriver(logger *logging.Logger, opts ...GCPDriverOption) *GCPSecretManagerDriver {
	if logger == nil {
		logger = logging.Discard()
	}
	d := &GCPSecretManagerDriver{
		logger:    logger,
		newClient: newGCPSecretManagerClient,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// newGCPSecretManagerClient creates a real Secret Manager client
func newGCPSecretManagerClient(ctx context.Context, serviceAccountJSON []byte) (GCPSecretManagerClientAPI, error) {
	client, err := secretmanager.NewClient(ctx, option.WithCredentialsJSON(serviceAccountJSON))
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Kind returns provider.KindGCP
func (d *GCPSecretManagerDriver) Kind() provider.Kind {
	return provider.KindGCP
}

// RequiredFields returns the credential fields the driver needs
func (d *GCPSecretManagerDriver) RequiredFields() []string {
	return []string{gcpFieldProjectID, gcpFieldServiceAccount}
}

// Store creates the secret with automatic replication and adds value as its
// first version.
func (d *GCPSecretManagerDriver) Store(ctx context.Context, name, value string, creds provider.Credentials) (provider.Reference, error) {
	if err := provider.RequireFields(d, creds); err != nil {
		return "", err
	}

	saJSON := []byte(creds[gcpFieldServiceAccount])
	if err := ValidateServiceAccountJSON(saJSON); err != nil {
		return "", provider.BackendAuthError{
			Provider: provider.KindGCP,
			Message:  err.Error(),
			Err:      err,
		}
	}

	client, err := d.newClient(ctx, saJSON)
	if err != nil {
		return "", provider.BackendAuthError{
			Provider: provider.KindGCP,
			Message:  fmt.Sprintf("failed to load service account credentials: %v", err),
			Err:      err,
		}
	}
	defer func() { _ = client.Close() }()

	parent := fmt.Sprintf("projects/%s", creds[gcpFieldProjectID])
	d.logger.Debug("Creating GCP secret %s in %s", name, parent)

	secret, err := client.CreateSecret(ctx, &secretmanagerpb.CreateSecretRequest{
		Parent:   parent,
		SecretId: name,
		Secret: &secretmanagerpb.Secret{
			Replication: &secretmanagerpb.Replication{
				Replication: &secretmanagerpb.Replication_Automatic_{
					Automatic: &secretmanagerpb.Replication_Automatic{},
				},
			},
		},
	})
	if err != nil {
		return "", d.handleError(err, name, "create secret")
	}

	secretPath := secret.GetName()
	if secretPath == "" {
		secretPath = fmt.Sprintf("%s/secrets/%s", parent, name)
	}

	_, err = client.AddSecretVersion(ctx, &secretmanagerpb.AddSecretVersionRequest{
		Parent: secretPath,
		Payload: &secretmanagerpb.SecretPayload{
			Data: []byte(value),
		},
	})
	if err != nil {
		return "", d.handleError(err, name, "add secret version")
	}

	return provider.Reference(gcpReferencePrefix + name), nil
}

// handleError maps gRPC status codes onto the normalized error kinds
func (d *GCPSecretManagerDriver) handleError(err error, name, op string) error {
	switch status.Code(err) {
	case codes.AlreadyExists:
		return provider.BackendConflictError{Provider: provider.KindGCP, Name: name, Err: err}
	case codes.Unauthenticated, codes.PermissionDenied:
		return provider.BackendAuthError{
			Provider: provider.KindGCP,
			Message:  status.Convert(err).Message(),
			Err:      err,
		}
	}
	return provider.BackendError{Provider: provider.KindGCP, Op: op, Err: err}
}
