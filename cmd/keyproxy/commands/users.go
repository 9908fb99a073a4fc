package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/keyproxy/internal/app"
)

// NewUsersCommand creates the parent 'users' command
func NewUsersCommand(rt *Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage identities",
	}
	cmd.AddCommand(NewUsersSetRoleCommand(rt))
	return cmd
}

// NewUsersSetRoleCommand creates the users set-role command
func NewUsersSetRoleCommand(rt *Runtime) *cobra.Command {
	var identity, role string

	cmd := &cobra.Command{
		Use:   "set-role",
		Short: "Set an identity's role",
		Long: `Set the role of an identity, creating the identity if it does not exist.

Operators run this directly against the database, for example to appoint the
first admin.`,
		Example: `  keyproxy users set-role --identity admin@example.com --role admin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag(identity, "identity", "Use --identity <email>"); err != nil {
				return err
			}
			if err := requireFlag(role, "role", "Use --role user or --role admin"); err != nil {
				return err
			}

			return rt.withApp(cmd.Context(), func(a *app.App) error {
				if err := a.Users.SetRole(cmd.Context(), identity, role); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s now has role %s\n", identity, role)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&identity, "identity", "", "Identity (email)")
	cmd.Flags().StringVar(&role, "role", "", "Role to assign")

	return cmd
}
