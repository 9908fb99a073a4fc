package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	"github.com/systmms/keyproxy/internal/logging"
	"github.com/systmms/keyproxy/pkg/provider"
)

const (
	azureFieldVaultURL     = "vault_url"
	azureFieldTenantID     = "tenant_id"
	azureFieldClientID     = "client_id"
	azureFieldClientSecret = "client_secret"

	azureReferencePrefix = "azure_secret_ref_"
)

// AzureKeyVaultClientAPI defines the interface for Azure Key Vault operations
// This allows for mocking in tests
type AzureKeyVaultClientAPI interface {
	SetSecret(ctx context.Context, name string, parameters azsecrets.SetSecretParameters, options *azsecrets.SetSecretOptions) (azsecrets.SetSecretResponse, error)
}

// AzureServicePrincipal identifies the vault and the service principal a
// client authenticates as.
type AzureServicePrincipal struct {
	VaultURL     string
	TenantID     string
	ClientID     string
	ClientSecret string
}

// AzureClientFactory builds a Key Vault secrets client for a service principal.
type AzureClientFactory func(sp AzureServicePrincipal) (AzureKeyVaultClientAPI, error)

// AzureKeyVaultDriver stores secrets in Azure Key Vault
type AzureKeyVaultDriver struct {
	logger    *logging.Logger
	newClient AzureClientFactory
}

// AzureDriverOption is a functional option for configuring the Azure driver
type AzureDriverOption func(*AzureKeyVaultDriver)

// WithAzureClientFactory replaces the Key Vault client constructor (for testing)
func WithAzureClientFactory(factory AzureClientFactory) AzureDriverOption {
	return func(d *AzureKeyVaultDriver) {
		d.newClient = factory
	}
}

// WithAzureKeyVaultClient makes every call use client regardless of credentials (for testing)
func WithAzureKeyVaultClient(client AzureKeyVaultClientAPI) AzureDriverOption {
	return WithAzureClientFactory(func(AzureServicePrincipal) (AzureKeyVaultClientAPI, error) {
		return client, nil
	})
}

// NewAzureKeyVaultDriver creates a new Azure Key Vault driver
func NewAzureKeyVaultDriver(logger *logging.Logger, opts ...AzureDriverOption) *AzureKeyVaultDriver {
	if logger == nil {
		logger = logging.Discard()
	}
	d := &AzureKeyVaultDriver{
		logger:    logger,
		newClient: newAzureKeyVaultClient,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// newAzureKeyVaultClient authenticates with a client secret and creates a
// secrets client for the vault.
func newAzureKeyVaultClient(sp AzureServicePrincipal) (AzureKeyVaultClientAPI, error) {
	cred, err := azidentity.NewClientSecretCredential(sp.TenantID, sp.ClientID, sp.ClientSecret, nil)
	if err != nil {
		return nil, provider.BackendAuthError{
			Provider: provider.KindAzure,
			Message:  fmt.Sprintf("failed to create Azure credential: %v", err),
			Err:      err,
		}
	}

	client, err := azsecrets.NewClient(sp.VaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
	}
	return client, nil
}

// Kind returns provider.KindAzure
func (d *AzureKeyVaultDriver) Kind() provider.Kind {
	return provider.KindAzure
}

// RequiredFields returns the credential fields the driver needs
func (d *AzureKeyVaultDriver) RequiredFields() []string {
	return []string{azureFieldVaultURL, azureFieldTenantID, azureFieldClientID, azureFieldClientSecret}
}

// Store sets the secret in the vault. Key Vault's set operation creates a new
// version when the name already exists, so Store never reports a conflict for
// an existing name.
func (d *AzureKeyVaultDriver) Store(ctx context.Context, name, value string, creds provider.Credentials) (provider.Reference, error) {
	if err := provider.RequireFields(d, creds); err != nil {
		return "", err
	}

	vaultURL := creds[azureFieldVaultURL]
	if u, err := url.Parse(vaultURL); err != nil || u.Scheme != "https" || u.Host == "" {
		return "", provider.BackendError{
			Provider: provider.KindAzure,
			Op:       "create client",
			Err:      fmt.Errorf("invalid vault_url %q: use format https://vault-name.vault.azure.net/", vaultURL),
		}
	}

	client, err := d.newClient(AzureServicePrincipal{
		VaultURL:     vaultURL,
		TenantID:     creds[azureFieldTenantID],
		ClientID:     creds[azureFieldClientID],
		ClientSecret: creds[azureFieldClientSecret],
	})
	if err != nil {
		var authErr provider.BackendAuthError
		if errors.As(err, &authErr) {
			return "", authErr
		}
		return "", provider.BackendError{Provider: provider.KindAzure, Op: "create client", Err: err}
	}

	d.logger.Debug("Setting Azure secret %s in %s", name, vaultURL)

	_, err = client.SetSecret(ctx, name, azsecrets.SetSecretParameters{
		Value: to.Ptr(value),
	}, nil)
	if err != nil {
		return "", d.handleError(err, name)
	}

	return provider.Reference(azureReferencePrefix + name), nil
}

// handleError converts Azure errors to the normalized error kinds
func (d *AzureKeyVaultDriver) handleError(err error, name string) error {
	var authFailed *azidentity.AuthenticationFailedError
	if errors.As(err, &authFailed) {
		return provider.BackendAuthError{Provider: provider.KindAzure, Message: authFailed.Error(), Err: err}
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return provider.BackendAuthError{
				Provider: provider.KindAzure,
				Message:  fmt.Sprintf("%s (status %d)", respErr.ErrorCode, respErr.StatusCode),
				Err:      err,
			}
		case http.StatusConflict:
			return provider.BackendConflictError{Provider: provider.KindAzure, Name: name, Err: err}
		}
	}

	return provider.BackendError{Provider: provider.KindAzure, Op: "set secret", Err: err}
}
