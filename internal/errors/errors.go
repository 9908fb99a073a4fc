package errors

import (
	"errors"
	"fmt"
	"strings"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// ProviderError enhances a backend error with a vendor-specific hint.
// The original error stays reachable through errors.As.
func ProviderError(provider string, operation string, err error) error {
	return UserError{
		Message:    fmt.Sprintf("%s provider error during %s", provider, operation),
		Details:    err.Error(),
		Suggestion: getProviderSuggestion(provider, err),
		Err:        err,
	}
}

// getProviderSuggestion returns helpful suggestions based on provider and error
func getProviderSuggestion(provider string, err error) string {
	errStr := err.Error()

	switch strings.ToLower(provider) {
	case "aws":
		if strings.Contains(errStr, "authentication") || strings.Contains(errStr, "UnrecognizedClient") {
			return "Check aws_access_key and aws_secret_key with 'keyproxy kms configure --provider aws'"
		}
		if strings.Contains(errStr, "AccessDenied") {
			return "Check IAM permissions for secretsmanager:CreateSecret"
		}
		if strings.Contains(errStr, "already exists") {
			return "Choose a different secret name; existing AWS secrets are never overwritten"
		}

	case "gcp":
		if strings.Contains(errStr, "authentication") {
			return "Verify service_account_json is a complete service-account key document"
		}
		if strings.Contains(errStr, "PermissionDenied") {
			return "Check IAM permissions: secretmanager.secrets.create, secretmanager.versions.add"
		}
		if strings.Contains(errStr, "already exists") {
			return "Choose a different secret name; the project already has a secret with this ID"
		}

	case "azure":
		if strings.Contains(errStr, "authentication") {
			return "Check tenant_id, client_id and client_secret of the service principal"
		}
		if strings.Contains(errStr, "Forbidden") {
			return "Grant the service principal 'Key Vault Secrets Officer' on the vault"
		}
	}

	// Generic suggestions
	if strings.Contains(errStr, "incomplete") {
		return "Run 'keyproxy providers' to list the credential fields each provider needs"
	}
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		return "The operation timed out. Check your network connection and try again"
	}
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host") {
		return "Unable to connect. Check your network and provider configuration"
	}

	return ""
}

// SimplifyError simplifies complex error messages for users
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	// Already a user-friendly error
	var userErr UserError
	if errors.As(err, &userErr) {
		return err
	}
	var configErr ConfigError
	if errors.As(err, &configErr) {
		return err
	}

	// Unwrap to get the root cause
	rootErr := err
	for {
		unwrapped := errors.Unwrap(rootErr)
		if unwrapped == nil {
			break
		}
		rootErr = unwrapped
	}

	errStr := rootErr.Error()

	if strings.Contains(errStr, "yaml:") {
		return ConfigError{
			Message:    "Invalid YAML format",
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	if strings.Contains(errStr, "permission denied") {
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Check file permissions or run with appropriate privileges",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "no such file or directory") {
		return UserError{
			Message:    "File or directory not found",
			Suggestion: "Verify the path exists and is spelled correctly",
			Err:        err,
		}
	}

	// Return original error if we can't simplify it
	return err
}
