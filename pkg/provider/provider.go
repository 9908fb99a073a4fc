package provider

import (
	"context"
	"sort"
	"strings"
)

// Kind identifies one of the closed set of KMS backends a user may configure.
//
// Kind values are the exact strings persisted in the user store ("GCP", "AWS",
// "Azure"). A Kind read back from storage may fall outside the closed set if
// the row was written by something other than keyproxy; use Valid to check and
// treat an invalid Kind as an internal invariant breach, never as a driver
// error.
type Kind string

const (
	// KindGCP selects Google Cloud Secret Manager.
	KindGCP Kind = "GCP"

	// KindAWS selects AWS Secrets Manager.
	KindAWS Kind = "AWS"

	// KindAzure selects Azure Key Vault.
	KindAzure Kind = "Azure"
)

// Kinds returns the closed set of supported provider kinds in a stable order.
func Kinds() []Kind {
	return []Kind{KindGCP, KindAWS, KindAzure}
}

// Valid reports whether k is one of the supported provider kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindGCP, KindAWS, KindAzure:
		return true
	}
	return false
}

// String returns the persisted form of the kind.
func (k Kind) String() string {
	return string(k)
}

// ParseKind maps user input to a Kind, ignoring case ("gcp", "azure", "Aws").
//
// The second return value is false if the input does not name a supported
// provider.
func ParseKind(s string) (Kind, bool) {
	trimmed := strings.TrimSpace(s)
	for _, k := range Kinds() {
		if strings.EqualFold(trimmed, string(k)) {
			return k, true
		}
	}
	return "", false
}

// Credentials is a decoded credential bundle: field name to plaintext value.
//
// The required field set depends on the provider kind, see Driver.RequiredFields.
// Values must never be logged; wrap them with logging.Secret if they need to
// appear in diagnostic output at all.
type Credentials map[string]string

// Missing returns the fields from required that are absent or empty in c,
// sorted for stable error messages.
func (c Credentials) Missing(required []string) []string {
	var missing []string
	for _, field := range required {
		if strings.TrimSpace(c[field]) == "" {
			missing = append(missing, field)
		}
	}
	sort.Strings(missing)
	return missing
}

// Clone returns a shallow copy of the bundle.
func (c Credentials) Clone() Credentials {
	out := make(Credentials, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Configuration is an identity's stored provider configuration.
//
// Credentials holds the codec-encoded form exactly as persisted; decoding is
// the dispatcher's job. The JSON field names mirror the storage document so
// that a read-only passthrough can return the configuration unchanged.
type Configuration struct {
	Kind        Kind              `json:"kms_provider" yaml:"kms_provider"`
	Credentials map[string]string `json:"kms_credentials" yaml:"kms_credentials"`
}

// Reference is the opaque handle a backend returns for a stored secret.
//
// keyproxy never parses a Reference; it is persisted or returned to the caller
// as-is. For AWS it is the secret ARN, for GCP and Azure a synthetic
// "<vendor>_secret_ref_<name>" string.
type Reference string

// String returns the reference as a plain string.
func (r Reference) String() string {
	return string(r)
}

// Driver stores a named secret in one KMS backend.
//
// Each supported Kind has exactly one Driver implementation. A Driver hides the
// vendor SDK's client construction, request shape and error types behind a
// single call that returns an opaque Reference or one of the normalized error
// kinds defined in this package:
//
//   - CredentialError when a required credential field is missing or empty
//   - BackendAuthError when the vendor rejects the supplied credentials
//   - BackendConflictError when a secret with the same name already exists
//   - BackendError for any other vendor failure
//
// Implementations must be safe for concurrent use. They must not cache clients
// across calls, since every call may carry a different identity's credentials.
//
// Example:
//
//	ref, err := driver.Store(ctx, "db-pass", "s3cr3t", provider.Credentials{
//	    "project_id":           "p1",
//	    "service_account_json": saJSON,
//	})
//	if err != nil {
//	    var authErr provider.BackendAuthError
//	    if errors.As(err, &authErr) {
//	        // the vendor refused the credentials
//	    }
//	    return err
//	}
type Driver interface {
	// Kind returns the provider kind this driver serves.
	Kind() Kind

	// RequiredFields lists the credential fields that must be present and
	// non-empty before Store is attempted.
	RequiredFields() []string

	// Store creates (or, for create-or-update backends, sets) the secret
	// name with value using creds, and returns the backend reference.
	//
	// Store is a blocking network call and honours ctx cancellation. It never
	// retries.
	Store(ctx context.Context, name, value string, creds Credentials) (Reference, error)
}

// RequireFields validates creds against the driver's required fields and
// returns a CredentialError naming every missing field.
func RequireFields(d Driver, creds Credentials) error {
	if missing := creds.Missing(d.RequiredFields()); len(missing) > 0 {
		return CredentialError{
			Provider: d.Kind(),
			Missing:  missing,
		}
	}
	return nil
}
