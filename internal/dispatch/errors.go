package dispatch

import (
	"fmt"

	"github.com/systmms/keyproxy/pkg/provider"
)

// InvalidRequestError indicates a malformed SecretRequest. It is raised before
// any credential, driver or journal interaction.
type InvalidRequestError struct {
	Field  string
	Reason string
}

func (e InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: %s %s", e.Field, e.Reason)
}

// NotConfiguredError indicates that the identity has no provider
// configuration. Nothing is journaled.
type NotConfiguredError struct {
	Identity string
}

func (e NotConfiguredError) Error() string {
	return fmt.Sprintf("no KMS provider configured for %s", e.Identity)
}

// UnsupportedProviderError indicates a stored provider kind with no driver.
type UnsupportedProviderError = provider.UnsupportedProviderError
