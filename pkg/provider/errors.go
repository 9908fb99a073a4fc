package provider

import (
	"fmt"
	"strings"
)

// BackendAuthError indicates that the vendor rejected the supplied credentials.
//
// This covers malformed credential material (for example an unparsable GCP
// service-account document) as well as credentials the vendor refused at
// request time.
//
// Example:
//
//	if err != nil {
//	    return "", BackendAuthError{
//	        Provider: KindAWS,
//	        Message:  "the security token included in the request is invalid",
//	        Err:      err,
//	    }
//	}
type BackendAuthError struct {
	Provider Kind
	Message  string
	Err      error
}

// Error implements the error interface.
func (e BackendAuthError) Error() string {
	return fmt.Sprintf("%s authentication failed: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying vendor error.
func (e BackendAuthError) Unwrap() error {
	return e.Err
}

// BackendConflictError indicates that a secret with the requested name
// already exists in the backend.
type BackendConflictError struct {
	Provider Kind
	Name     string
	Err      error
}

// Error implements the error interface.
func (e BackendConflictError) Error() string {
	return fmt.Sprintf("%s secret %q already exists", e.Provider, e.Name)
}

// Unwrap returns the underlying vendor error.
func (e BackendConflictError) Unwrap() error {
	return e.Err
}

// BackendError wraps a vendor failure that is neither an authentication
// problem nor a name collision (throttling, network, quota, ...).
type BackendError struct {
	Provider Kind
	Op       string
	Err      error
}

// Error implements the error interface.
func (e BackendError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Op, e.Err)
}

// Unwrap returns the underlying vendor error.
func (e BackendError) Unwrap() error {
	return e.Err
}

// CredentialError indicates that the credential bundle lacks fields the
// driver requires. It is a configuration error: the backend was never
// contacted.
type CredentialError struct {
	Provider Kind
	Missing  []string
}

// Error implements the error interface.
func (e CredentialError) Error() string {
	return fmt.Sprintf("%s credentials incomplete: missing %s", e.Provider, strings.Join(e.Missing, ", "))
}

// UnsupportedProviderError indicates a provider kind outside the closed set,
// either from user input or from a stored configuration.
type UnsupportedProviderError struct {
	Kind string
}

// Error implements the error interface.
func (e UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported provider %q (supported: GCP, AWS, Azure)", e.Kind)
}
