// Package provider defines the core types and the Driver contract for the KMS
// backends keyproxy stores secrets into.
//
// keyproxy is a multi-tenant secret proxy. Each identity configures exactly one
// backend (Google Cloud Secret Manager, AWS Secrets Manager or Azure Key Vault)
// together with a credential bundle, and the proxy stores secrets there on the
// identity's behalf. This package is the seam between the dispatch layer and
// the vendor-specific drivers.
//
// # Architecture Overview
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                    CLI Commands                             │
//	│              (cmd/keyproxy/commands/)                       │
//	└─────────────────────────┬───────────────────────────────────┘
//	                          │  permissions.Checker.Authorize
//	┌─────────────────────────▼───────────────────────────────────┐
//	│                  Provider Dispatcher                        │
//	│                (internal/dispatch/)      ──► audit.Recorder │
//	└─────────────────────────┬───────────────────────────────────┘
//	                          │
//	┌─────────────────────────▼───────────────────────────────────┐
//	│                   Driver Interface                          │
//	│                   (pkg/provider/)               ◄───────────┤
//	└─────────────────────────┬───────────────────────────────────┘
//	                          │
//	┌─────────────────────────▼───────────────────────────────────┐
//	│                  Driver Implementations                     │
//	│                 (internal/providers/)                       │
//	│  ┌─────────────┐  ┌─────────────┐  ┌─────────────┐          │
//	│  │     GCP     │  │     AWS     │  │    Azure    │          │
//	│  └─────────────┘  └─────────────┘  └─────────────┘          │
//	└─────────────────────────────────────────────────────────────┘
//
// # Provider Kinds
//
// The set of backends is closed. Kind enumerates it and the driver registry
// maps every Kind to exactly one Driver. Adding a vendor means adding a Kind
// constant, a Driver implementation and a registry entry; there is no string
// matching at dispatch time.
//
// # Credentials
//
// Credentials is a flat map of field name to value. The required fields per
// kind are:
//
//   - GCP: project_id, service_account_json
//   - AWS: aws_access_key, aws_secret_key (optional aws_region, aws_endpoint)
//   - Azure: vault_url, tenant_id, client_id, client_secret
//
// Missing or empty fields are reported as CredentialError before any vendor
// call is made. The stored form of a bundle (Configuration.Credentials) is
// codec-encoded; see internal/codec. That encoding is a transport-safe
// representation only and provides no confidentiality.
//
// # Error Handling
//
// Drivers normalize vendor failures into a small set of error kinds so that
// callers never branch on SDK-specific types:
//
//   - BackendAuthError: the vendor rejected the credentials
//   - BackendConflictError: the secret name is already taken
//   - BackendError: any other vendor failure
//   - CredentialError: the bundle is incomplete
//
// All of them are value types; use errors.As to inspect them.
//
// # Threading and Concurrency
//
// Driver implementations must be safe for concurrent use and must not share
// per-identity state between calls. Every Store call builds its own vendor
// client from the credentials it was given.
package provider
