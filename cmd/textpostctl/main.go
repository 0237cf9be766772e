package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/wusb-radio/textpost/pkg/textpost/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	var envFile string
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "textpostctl",
		Short: "WUSB text post maintenance CLI",
		Long: `Maintenance commands for the WUSB text post store.

Reads the same environment as textpost-server (DATABASE_URL, STORAGE_URL,
AUDIT_SINK and friends) and operates on the configured backends directly.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(NewMigrateCommand())
	rootCmd.AddCommand(NewReconcileCommand())
	rootCmd.AddCommand(NewListCommand())
	rootCmd.AddCommand(NewSeedCommand())
	rootCmd.AddCommand(NewStatsCommand())

	return rootCmd
}

// loadComponents reads configuration from the flags and environment and
// opens every configured backend.
func loadComponents(cmd *cobra.Command, extra ...config.Option) (*config.ServerConfig, *config.Components, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	verbose, _ := cmd.Flags().GetBool("verbose")

	opts := []config.Option{config.WithDotEnv(envFile), config.WithEnv()}
	opts = append(opts, extra...)

	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	var logOut io.Writer = io.Discard
	if verbose {
		logOut = cmd.ErrOrStderr()
	}
	logger := cfg.NewLogger(logOut)
	slog.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	comps, err := cfg.BuildService(ctx, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build service: %w", err)
	}
	return cfg, comps, nil
}
