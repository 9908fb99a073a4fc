package provider

import (
	"context"
	"errors"
	"testing"
	"time"
)

// ContractTest defines a standard test suite that all drivers must pass
type ContractTest struct {
	// CreateDriver creates a new instance of the driver under test, wired to
	// a fake vendor client.
	CreateDriver func(t *testing.T) Driver

	// ValidCredentials returns a complete credential bundle the fake accepts.
	ValidCredentials func(t *testing.T) Credentials

	// ExpectedReference returns the reference the driver should produce for
	// a successful store of name. Nil skips the exact-match assertion.
	ExpectedReference func(name string) Reference
}

// RunContractTests runs the standard driver contract test suite
func RunContractTests(t *testing.T, contract ContractTest) {
	t.Run("Contract", func(t *testing.T) {
		t.Run("Kind", func(t *testing.T) {
			testDriverKind(t, contract)
		})

		t.Run("RequiredFields", func(t *testing.T) {
			testDriverRequiredFields(t, contract)
		})

		t.Run("Store", func(t *testing.T) {
			testDriverStore(t, contract)
		})

		t.Run("StoreMissingCredentials", func(t *testing.T) {
			testDriverMissingCredentials(t, contract)
		})

		t.Run("ContextCancellation", func(t *testing.T) {
			testDriverContextCancellation(t, contract)
		})
	})
}

func testDriverKind(t *testing.T, contract ContractTest) {
	d := contract.CreateDriver(t)

	if !d.Kind().Valid() {
		t.Errorf("Driver.Kind() returned unsupported kind %q", d.Kind())
	}
	if d.Kind() != d.Kind() {
		t.Error("Driver.Kind() not consistent between calls")
	}
}

func testDriverRequiredFields(t *testing.T, contract ContractTest) {
	d := contract.CreateDriver(t)

	fields := d.RequiredFields()
	if len(fields) == 0 {
		t.Error("Driver.RequiredFields() returned no fields")
	}

	creds := contract.ValidCredentials(t)
	if missing := creds.Missing(fields); len(missing) > 0 {
		t.Errorf("ValidCredentials() lacks required fields %v", missing)
	}
}

func testDriverStore(t *testing.T, contract ContractTest) {
	d := contract.CreateDriver(t)
	ctx := context.Background()

	ref, err := d.Store(ctx, "contract-secret", "contract-value", contract.ValidCredentials(t))
	if err != nil {
		t.Fatalf("Driver.Store() failed: %v", err)
	}
	if ref == "" {
		t.Error("Driver.Store() returned empty reference")
	}
	if contract.ExpectedReference != nil {
		if want := contract.ExpectedReference("contract-secret"); ref != want {
			t.Errorf("Driver.Store() reference = %q, want %q", ref, want)
		}
	}
}

func testDriverMissingCredentials(t *testing.T, contract ContractTest) {
	d := contract.CreateDriver(t)
	ctx := context.Background()

	for _, field := range d.RequiredFields() {
		creds := contract.ValidCredentials(t).Clone()
		delete(creds, field)

		_, err := d.Store(ctx, "contract-secret", "contract-value", creds)

		var credErr CredentialError
		if !errors.As(err, &credErr) {
			t.Errorf("Driver.Store() without %q: expected CredentialError, got %v", field, err)
			continue
		}
		if credErr.Provider != d.Kind() {
			t.Errorf("CredentialError.Provider = %q, want %q", credErr.Provider, d.Kind())
		}
	}
}

func testDriverContextCancellation(t *testing.T, contract ContractTest) {
	d := contract.CreateDriver(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		_, err := d.Store(ctx, "contract-secret", "contract-value", contract.ValidCredentials(t))
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Log("Driver.Store() succeeded with a cancelled context (fake ignores ctx)")
		}
	case <-time.After(5 * time.Second):
		t.Error("Driver.Store() did not return within 5 seconds of cancellation")
	}
}
