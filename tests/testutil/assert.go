package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// AssertNoSecretLeak verifies that none of the secret values appear in output.
//
// Use it on command output, captured logs and error messages.
//
// Example usage:
//
//	AssertNoSecretLeak(t, logOutput, []string{"s3cr3t", "AKIA..."})
func AssertNoSecretLeak(t *testing.T, output string, secrets []string) {
	t.Helper()

	for _, secret := range secrets {
		assert.NotContains(t, output, secret,
			"Secret %q should not appear in output", secret)
	}
}

// AssertSecretRedacted verifies that a secret value is absent from output and
// that the [REDACTED] marker stands in for it.
func AssertSecretRedacted(t *testing.T, output, secretValue string) {
	t.Helper()

	assert.NotContains(t, output, secretValue,
		"Secret value %q should be redacted, but appears in output", secretValue)
	assert.Contains(t, output, "[REDACTED]",
		"Expected [REDACTED] marker when secret is used")
}

// AssertLinesContain verifies that each expected substring appears on some
// line of output.
//
// Example usage:
//
//	AssertLinesContain(t, output, []string{"GCP", "AWS"})
func AssertLinesContain(t *testing.T, output string, expectedLines []string) {
	t.Helper()

	lines := strings.Split(output, "\n")
	for _, expected := range expectedLines {
		found := false
		for _, line := range lines {
			if strings.Contains(line, expected) {
				found = true
				break
			}
		}
		assert.True(t, found, "Expected to find line containing %q in output", expected)
	}
}
