// Package userstore persists per-identity provider configuration and roles.
package userstore

import (
	"context"
	"errors"

	"github.com/systmms/keyproxy/internal/codec"
	"github.com/systmms/keyproxy/pkg/provider"
)

// ErrNotFound is returned when an identity has no record, or no provider
// configuration when one was asked for.
var ErrNotFound = errors.New("not found")

// RoleUser is the role new identities receive.
const RoleUser = "user"

// ConfigReader loads an identity's stored provider configuration. Credentials
// are returned in their stored, encoded form.
type ConfigReader interface {
	GetProviderConfig(ctx context.Context, identity string) (provider.Configuration, error)
}

// ConfigWriter replaces an identity's provider configuration, creating the
// identity with RoleUser if it does not exist.
type ConfigWriter interface {
	PutProviderConfig(ctx context.Context, identity string, cfg provider.Configuration) error
}

// RoleReader loads an identity's role.
type RoleReader interface {
	GetRole(ctx context.Context, identity string) (string, error)
}

// RoleWriter sets an identity's role, creating the identity if needed.
type RoleWriter interface {
	SetRole(ctx context.Context, identity, role string) error
}

// Store is the full user store.
type Store interface {
	ConfigReader
	ConfigWriter
	RoleReader
	RoleWriter
}

// FieldRequirer reports the credential fields a provider kind needs.
type FieldRequirer interface {
	RequiredFields(kind provider.Kind) []string
}

// SaveProviderConfig validates and stores identity's provider configuration.
//
// kindInput is matched case-insensitively against the supported kinds. Only
// presence of the required fields is checked; the bundle is encoded with the
// credential codec before it is written. Fields the driver does not require
// are kept.
func SaveProviderConfig(ctx context.Context, w ConfigWriter, fields FieldRequirer, identity, kindInput string, bundle map[string]string) (provider.Configuration, error) {
	if identity == "" {
		return provider.Configuration{}, errors.New("identity is required")
	}

	kind, ok := provider.ParseKind(kindInput)
	if !ok {
		return provider.Configuration{}, provider.UnsupportedProviderError{Kind: kindInput}
	}

	if missing := provider.Credentials(bundle).Missing(fields.RequiredFields(kind)); len(missing) > 0 {
		return provider.Configuration{}, provider.CredentialError{Provider: kind, Missing: missing}
	}

	cfg := provider.Configuration{
		Kind:        kind,
		Credentials: codec.Encode(bundle),
	}
	if err := w.PutProviderConfig(ctx, identity, cfg); err != nil {
		return provider.Configuration{}, err
	}
	return cfg, nil
}
