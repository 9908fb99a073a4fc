package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/keyproxy/internal/providers"
	"github.com/systmms/keyproxy/pkg/provider"
)

// NewProvidersCommand lists the supported provider kinds. It needs no
// configuration file.
func NewProvidersCommand(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List supported providers and their credential fields",
		Long: `Display the secret backends keyproxy can dispatch to and the credential
fields 'keyproxy kms configure' requires for each.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := providers.NewDefaultRegistry(rt.logger(), providers.DriverOptions{})

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "PROVIDER\tBACKEND\tREQUIRED FIELDS\n")
			_, _ = fmt.Fprintf(w, "--------\t-------\t---------------\n")
			for _, kind := range registry.Kinds() {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n",
					kind, getProviderDescription(kind), strings.Join(registry.RequiredFields(kind), ", "))
			}
			return w.Flush()
		},
	}
	return cmd
}

// getProviderDescription returns a description for a provider kind
func getProviderDescription(kind provider.Kind) string {
	descriptions := map[provider.Kind]string{
		provider.KindGCP:   "Google Cloud Secret Manager",
		provider.KindAWS:   "AWS Secrets Manager",
		provider.KindAzure: "Azure Key Vault",
	}
	if desc, ok := descriptions[kind]; ok {
		return desc
	}
	return "No description available"
}
