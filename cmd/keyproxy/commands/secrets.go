package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/keyproxy/internal/app"
	"github.com/systmms/keyproxy/internal/audit"
	"github.com/systmms/keyproxy/internal/dispatch"
	kperrors "github.com/systmms/keyproxy/internal/errors"
	"github.com/systmms/keyproxy/internal/secure"
	"github.com/systmms/keyproxy/pkg/provider"
)

// NewSecretsCommand creates the parent 'secrets' command
func NewSecretsCommand(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Store secrets in an identity's configured backend",
		Long: `Store secret values in the backend an identity has configured with
'keyproxy kms configure'. Every store attempt is journaled.

Examples:
  printf '%s' "$DB_PASSWORD" | keyproxy secrets put --identity alice@example.com --name db-pass
  keyproxy secrets put --identity alice@example.com --name api-token --value tok_123`,
	}

	cmd.AddCommand(NewSecretsPutCommand(rt))
	return cmd
}

// NewSecretsPutCommand creates the secrets put command
func NewSecretsPutCommand(rt *Runtime) *cobra.Command {
	var (
		identity string
		name     string
		value    string
	)

	cmd := &cobra.Command{
		Use:   "put",
		Short: "Store one secret",
		Long: `Store a secret under --name in the identity's backend and print the
reference the backend returned.

The value is read from standard input unless --value is given. Input is held
in locked, encrypted memory until it is dispatched. A single trailing newline
is dropped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag(identity, "identity", "Use --identity <email> to choose whose backend receives the secret"); err != nil {
				return err
			}
			if err := requireFlag(name, "name", "Use --name <secret-name>"); err != nil {
				return err
			}

			var (
				buf *secure.SecureBuffer
				err error
			)
			if cmd.Flags().Changed("value") {
				rt.logger().Warn("--value may be recorded in shell history; prefer standard input")
				buf, err = secure.NewSecureBuffer([]byte(value))
			} else {
				buf, err = secure.ReadSecureBuffer(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("failed to read secret value: %w", err)
			}
			defer buf.Destroy()

			return rt.withApp(cmd.Context(), func(a *app.App) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), a.DriverTimeout())
				defer cancel()

				var ref provider.Reference
				err := buf.Reveal(func(plaintext []byte) error {
					var storeErr error
					ref, storeErr = a.Dispatcher.StoreSecret(ctx, identity, dispatch.SecretRequest{
						Name:  name,
						Value: string(plaintext),
					})
					return storeErr
				})
				if err != nil {
					return explainStoreError(ctx, a, identity, err)
				}

				_, _ = fmt.Fprintln(cmd.OutOrStdout(), ref)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&identity, "identity", "", "Identity (email) whose backend receives the secret")
	cmd.Flags().StringVar(&name, "name", "", "Secret name")
	cmd.Flags().StringVar(&value, "value", "", "Secret value (default: read from standard input)")

	return cmd
}

// explainStoreError attaches a suggestion to dispatch failures.
func explainStoreError(ctx context.Context, a *app.App, identity string, err error) error {
	var notConfigured dispatch.NotConfiguredError
	if errors.As(err, &notConfigured) {
		return kperrors.UserError{
			Message:    err.Error(),
			Suggestion: fmt.Sprintf("Run 'keyproxy kms configure --identity %s --provider <gcp|aws|azure>' first", identity),
			Err:        err,
		}
	}

	var writeErr audit.AuditWriteError
	if errors.As(err, &writeErr) {
		return kperrors.UserError{
			Message:    "The secret store attempt could not be journaled",
			Details:    err.Error(),
			Suggestion: "Check the audit sink; the outcome is not reported until the journal accepts it",
			Err:        err,
		}
	}

	var invalid dispatch.InvalidRequestError
	if errors.As(err, &invalid) {
		return kperrors.UserError{
			Message:    err.Error(),
			Suggestion: "Provide a non-empty value on standard input or with --value",
			Err:        err,
		}
	}

	// Backend and credential failures: add a vendor hint.
	if cfg, cfgErr := a.Dispatcher.GetKmsConfig(context.WithoutCancel(ctx), identity); cfgErr == nil {
		return kperrors.ProviderError(cfg.Kind.String(), "store", err)
	}
	return err
}
