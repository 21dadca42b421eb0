// Package main is the entry point for the confidant CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/flemzord/confidant/internal/config"
	"github.com/flemzord/confidant/pkg/app"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "confidant",
		Short:         "Context assembly and embeddings for a companion chat service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("config", "c", "", "Path to configuration file")
	root.PersistentFlags().Bool("debug", false, "Enable debug logging")
	root.AddCommand(
		versionCmd(),
		serveCmd(),
		configCmd(),
		modelsCmd(),
		embedCmd(),
		backfillCmd(),
		assembleCmd(),
		historyCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "confidant %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run background jobs and the diagnostics server until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			return app.Run(app.RunParams{
				ConfigPath: cfgPath,
				Version:    version,
				Commit:     commit,
				Date:       date,
				LogLevel:   logLevel(cmd),
			})
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [path]",
		Short: "Validate configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			if len(args) == 1 {
				path = args[0]
			}
			cfg, resolved, err := app.LoadConfig(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration OK (%s)\n", resolved)
			fmt.Fprintf(out, "  data_dir:  %s\n", cfg.DataDir)
			fmt.Fprintf(out, "  database:  %s\n", cfg.Storage.SQLite.Path)
			fmt.Fprintf(out, "  models:    %s\n", cfg.Embedding.ModelDir)
			for _, name := range cfg.ProviderNames() {
				fmt.Fprintf(out, "  provider:  %s\n", name)
			}
			return nil
		},
	})
	return cmd
}

// withApp loads the configuration, builds the App, runs fn and closes
// the App. Logs go to stderr.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, _, err := app.LoadConfig(path)
	if err != nil {
		return err
	}
	return runWith(cmd, cfg, cmd.ErrOrStderr(), fn)
}

func runWith(cmd *cobra.Command, cfg *config.Config, logs io.Writer, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.Build(ctx, cfg, app.Options{Version: version, LogWriter: logs, LogLevel: logLevel(cmd)})
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.Background()) }()
	return fn(ctx, a)
}

func logLevel(cmd *cobra.Command) *slog.Level {
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		l := slog.LevelDebug
		return &l
	}
	return nil
}
