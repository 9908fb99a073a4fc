package main

import (
	"fmt"
	"os"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"

	"github.com/systmms/keyproxy/cmd/keyproxy/commands"
	"github.com/systmms/keyproxy/internal/config"
	kperrors "github.com/systmms/keyproxy/internal/errors"
	"github.com/systmms/keyproxy/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Wipe enclave keys on every exit path, including signals.
	memguard.CatchInterrupt()

	err := run()
	memguard.Purge()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", kperrors.SimplifyError(err))
		os.Exit(1)
	}
}

func run() error {
	// Global flags
	var (
		configFile string
		noColor    bool
		debug      bool
	)

	cfg := &config.Config{}
	rt := commands.NewRuntime(cfg)

	rootCmd := &cobra.Command{
		Use:   "keyproxy",
		Short: "Store secrets in each identity's own cloud secret manager",
		Long: `keyproxy stores secrets on behalf of many identities, each in the backend
that identity configured: Google Cloud Secret Manager, AWS Secrets Manager or
Azure Key Vault. Every store attempt is journaled.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.Path = configFile
			cfg.Logger = logging.New(debug, noColor)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultPath, "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		commands.NewMigrateCommand(rt),
		commands.NewKMSCommand(rt),
		commands.NewSecretsCommand(rt),
		commands.NewAuditCommand(rt),
		commands.NewUsersCommand(rt),
		commands.NewProvidersCommand(rt),
		commands.NewCompletionCommand(),
	)

	return rootCmd.Execute()
}
