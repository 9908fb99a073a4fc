package fakes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
)

// FakeAzureKeyVaultClient is a mock implementation of the Key Vault client
// subset used by AzureKeyVaultDriver
type FakeAzureKeyVaultClient struct {
	mu sync.Mutex

	// VaultURL prefixes generated secret IDs
	VaultURL string
	// Secrets maps secret names to their data
	Secrets map[string]*AzureSecretData
	// Errors maps secret names to errors to return
	Errors map[string]error
	// SetSecretFunc allows custom behavior for SetSecret
	SetSecretFunc func(ctx context.Context, name string, parameters azsecrets.SetSecretParameters) (azsecrets.SetSecretResponse, error)
}

// AzureSecretData holds the data for a mock Azure Key Vault secret
type AzureSecretData struct {
	// Versions holds every value set, oldest first
	Versions []string
	Updated  time.Time
}

// NewFakeAzureKeyVaultClient creates a new mock Azure Key Vault client
func NewFakeAzureKeyVaultClient() *FakeAzureKeyVaultClient {
	return &FakeAzureKeyVaultClient{
		VaultURL: "https://test-vault.vault.azure.net",
		Secrets:  make(map[string]*AzureSecretData),
		Errors:   make(map[string]error),
	}
}

// AddError configures the mock to return an error for a specific secret
func (f *FakeAzureKeyVaultClient) AddError(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[name] = err
}

// Value returns the current value of name
func (f *FakeAzureKeyVaultClient) Value(name string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.Secrets[name]
	if !ok || len(data.Versions) == 0 {
		return "", false
	}
	return data.Versions[len(data.Versions)-1], true
}

// VersionCount returns how many times name has been set
func (f *FakeAzureKeyVaultClient) VersionCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if data, ok := f.Secrets[name]; ok {
		return len(data.Versions)
	}
	return 0
}

// SetSecret mocks the SetSecret operation. Like Key Vault, setting an existing
// name adds a new version.
func (f *FakeAzureKeyVaultClient) SetSecret(ctx context.Context, name string, parameters azsecrets.SetSecretParameters, options *azsecrets.SetSecretOptions) (azsecrets.SetSecretResponse, error) {
	if f.SetSecretFunc != nil {
		return f.SetSecretFunc(ctx, name, parameters)
	}
	if err := ctx.Err(); err != nil {
		return azsecrets.SetSecretResponse{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err, exists := f.Errors[name]; exists {
		return azsecrets.SetSecretResponse{}, err
	}

	data, exists := f.Secrets[name]
	if !exists {
		data = &AzureSecretData{}
		f.Secrets[name] = data
	}
	value := ""
	if parameters.Value != nil {
		value = *parameters.Value
	}
	data.Versions = append(data.Versions, value)
	data.Updated = time.Now()

	id := azsecrets.ID(fmt.Sprintf("%s/secrets/%s/v%d", f.VaultURL, name, len(data.Versions)))
	return azsecrets.SetSecretResponse{
		Secret: azsecrets.Secret{
			ID:    &id,
			Value: parameters.Value,
			Attributes: &azsecrets.SecretAttributes{
				Enabled: to.Ptr(true),
				Updated: to.Ptr(data.Updated),
			},
		},
	}, nil
}
