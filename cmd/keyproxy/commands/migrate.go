package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/keyproxy/internal/app"
	"github.com/systmms/keyproxy/internal/database"
)

// NewMigrateCommand creates the migrate command
func NewMigrateCommand(rt *Runtime) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database schema migrations",
		Long: `Create or upgrade the users and audit_logs tables in the configured
database. Applied migrations are tracked in keyproxy_migrations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.withApp(cmd.Context(), func(a *app.App) error {
				out := cmd.OutOrStdout()

				if dryRun {
					if a.DB == nil {
						return fmt.Errorf("no database connection")
					}
					pending, err := database.PendingMigrations(a.DB)
					if err != nil {
						return err
					}
					if len(pending) == 0 {
						_, _ = fmt.Fprintln(out, "Schema is up to date")
						return nil
					}
					for _, id := range pending {
						_, _ = fmt.Fprintf(out, "pending: %s\n", id)
					}
					return nil
				}

				n, err := a.Migrate()
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				_, _ = fmt.Fprintf(out, "Applied %d migration(s)\n", n)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List pending migrations without applying them")

	return cmd
}
