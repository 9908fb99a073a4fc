package commands

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/keyproxy/internal/app"
	kperrors "github.com/systmms/keyproxy/internal/errors"
	"github.com/systmms/keyproxy/internal/userstore"
)

// NewKMSCommand creates the parent 'kms' command
func NewKMSCommand(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kms",
		Short: "Manage an identity's secret backend configuration",
		Long: `Configure which secret backend an identity's secrets are dispatched to,
and the credentials keyproxy uses to reach it.

Examples:
  keyproxy kms configure --identity alice@example.com --provider aws \
    --set aws_access_key=AKIA... --set aws_secret_key=...
  keyproxy kms configure --identity alice@example.com --provider gcp \
    --set project_id=my-project --set-file service_account_json=./sa.json
  keyproxy kms show --identity alice@example.com`,
	}

	cmd.AddCommand(
		NewKMSConfigureCommand(rt),
		NewKMSShowCommand(rt),
	)
	return cmd
}

// NewKMSConfigureCommand creates the kms configure command
func NewKMSConfigureCommand(rt *Runtime) *cobra.Command {
	var (
		identity string
		kind     string
		sets     []string
		setFiles []string
	)

	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Set an identity's provider and credentials",
		Long: `Replace the provider configuration of an identity.

Credential fields are given as key=value pairs. Run 'keyproxy providers' to
see which fields each provider requires. Values are stored encoded, not
encrypted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag(identity, "identity", "Use --identity <email> to choose the identity to configure"); err != nil {
				return err
			}
			if err := requireFlag(kind, "provider", "Use --provider gcp, aws or azure"); err != nil {
				return err
			}

			bundle, err := parseCredentialFlags(sets, setFiles)
			if err != nil {
				return err
			}

			return rt.withApp(cmd.Context(), func(a *app.App) error {
				cfg, err := userstore.SaveProviderConfig(cmd.Context(), a.Users, a.Registry, identity, kind, bundle)
				if err != nil {
					return err
				}
				a.Logger.Info("Configured %s for %s", cfg.Kind, identity)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s configured for %s (%d credential fields)\n",
					cfg.Kind, identity, len(cfg.Credentials))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&identity, "identity", "", "Identity (email) to configure")
	cmd.Flags().StringVar(&kind, "provider", "", "Provider: gcp, aws or azure")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Credential field as key=value (repeatable)")
	cmd.Flags().StringArrayVar(&setFiles, "set-file", nil, "Credential field read from a file as key=path (repeatable)")

	return cmd
}

// parseCredentialFlags merges --set and --set-file pairs into one bundle.
func parseCredentialFlags(sets, setFiles []string) (map[string]string, error) {
	bundle := make(map[string]string, len(sets)+len(setFiles))

	for _, pair := range sets {
		key, value, err := splitPair(pair, "set")
		if err != nil {
			return nil, err
		}
		bundle[key] = value
	}

	for _, pair := range setFiles {
		key, path, err := splitPair(pair, "set-file")
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, kperrors.UserError{
				Message:    fmt.Sprintf("Failed to read credential field %s", key),
				Details:    err.Error(),
				Suggestion: "Check the path given to --set-file",
				Err:        err,
			}
		}
		bundle[key] = string(data)
	}

	return bundle, nil
}

func splitPair(pair, flag string) (string, string, error) {
	key, value, ok := strings.Cut(pair, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", kperrors.UserError{
			Message:    fmt.Sprintf("invalid --%s value %q", flag, pair),
			Suggestion: fmt.Sprintf("Use --%s key=value", flag),
		}
	}
	return key, value, nil
}

// NewKMSShowCommand creates the kms show command
func NewKMSShowCommand(rt *Runtime) *cobra.Command {
	var (
		identity string
		format   string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show an identity's stored provider configuration",
		Long: `Display the provider and credentials stored for an identity. Credential
values are shown exactly as stored, in their encoded form.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag(identity, "identity", "Use --identity <email>"); err != nil {
				return err
			}

			return rt.withApp(cmd.Context(), func(a *app.App) error {
				cfg, err := a.Dispatcher.GetKmsConfig(cmd.Context(), identity)
				if err != nil {
					return err
				}

				if format != "table" {
					return writeStructured(cmd.OutOrStdout(), format, cfg)
				}

				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "Identity: %s\nProvider: %s\n\n", identity, cfg.Kind)

				fields := make([]string, 0, len(cfg.Credentials))
				for field := range cfg.Credentials {
					fields = append(fields, field)
				}
				sort.Strings(fields)

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintf(w, "FIELD\tENCODED VALUE\n")
				for _, field := range fields {
					_, _ = fmt.Fprintf(w, "%s\t%s\n", field, cfg.Credentials[field])
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&identity, "identity", "", "Identity (email) to show")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, json, yaml")

	return cmd
}
