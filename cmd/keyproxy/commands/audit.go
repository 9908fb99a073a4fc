package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/systmms/keyproxy/internal/app"
	"github.com/systmms/keyproxy/internal/audit"
	kperrors "github.com/systmms/keyproxy/internal/errors"
	"github.com/systmms/keyproxy/internal/permissions"
)

// NewAuditCommand creates the parent 'audit' command
func NewAuditCommand(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the audit journal",
	}
	cmd.AddCommand(NewAuditListCommand(rt))
	return cmd
}

// NewAuditListCommand creates the audit list command
func NewAuditListCommand(rt *Runtime) *cobra.Command {
	var (
		identity string
		target   string
		limit    int
		format   string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journaled actions, newest first",
		Long: `Display the audit events recorded for an identity, newest first.

Listing the journal of another identity with --for requires the admin role.`,
		Example: `  # Your own journal
  keyproxy audit list --identity alice@example.com

  # Another identity's journal (admin only)
  keyproxy audit list --identity admin@example.com --for bob@example.com --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag(identity, "identity", "Use --identity <email> to say who is asking"); err != nil {
				return err
			}
			if limit <= 0 {
				return kperrors.UserError{
					Message:    fmt.Sprintf("invalid --limit %d", limit),
					Suggestion: "Use a positive number",
				}
			}
			subject := identity
			if target != "" {
				subject = target
			}

			return rt.withApp(cmd.Context(), func(a *app.App) error {
				if subject != identity {
					if err := a.Gate.Require(cmd.Context(), identity, permissions.RoleAdmin); err != nil {
						return err
					}
				}

				events, err := a.Journal.List(cmd.Context(), subject, limit)
				if err != nil {
					return fmt.Errorf("failed to list audit events: %w", err)
				}

				if format != "table" {
					return writeStructured(cmd.OutOrStdout(), format, events)
				}
				return writeEventTable(cmd, events)
			})
		},
	}

	cmd.Flags().StringVar(&identity, "identity", "", "Identity (email) making the request")
	cmd.Flags().StringVar(&target, "for", "", "List another identity's journal (requires admin)")
	cmd.Flags().IntVar(&limit, "limit", audit.DefaultListLimit, "Maximum number of events")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, json, yaml")

	return cmd
}

func writeEventTable(cmd *cobra.Command, events []audit.Event) error {
	out := cmd.OutOrStdout()
	if len(events) == 0 {
		_, _ = fmt.Fprintln(out, "No audit events found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "TIME\tACTION\tSECRET\tPROVIDER\tSTATUS\tERROR\n")
	for _, e := range events {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Format(time.RFC3339), e.Action, e.SecretName, e.Provider, e.Status, e.Error)
	}
	return w.Flush()
}
