// Package cli provides the command-line interface for BindScope.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/epitopelab/bindscope/internal/cli/commands"
	"github.com/epitopelab/bindscope/internal/config"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bindscope",
		Short: "BindScope - MHC peptide binding prediction front end",
		Long: `BindScope is a research front end for MHC class I and II peptide
binding predictions. It submits sequences to the IEDB next-generation
tools API, tracks running jobs, and presents results as interactive
charts and filterable tables in the browser or on the command line.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch cmd.Name() {
			case "help", "version", "completion", "__complete":
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger, cleanup := config.SetupLogger(cfg.LogFile, level)

			ctx := commands.WithConfig(cmd.Context(), cfg)
			ctx = commands.WithLogger(ctx, logger)
			ctx = commands.WithCleanup(ctx, cleanup)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./bindscope.yaml)")
	rootCmd.PersistentFlags().Int("port", 0, "HTTP listen port")
	rootCmd.PersistentFlags().String("api-base-url", "", "prediction API base URL")
	rootCmd.PersistentFlags().String("state-path", "", "path to the state database")
	rootCmd.PersistentFlags().String("catalog-dir", "", "directory of allele catalog overrides")
	rootCmd.PersistentFlags().Int("poll-interval", 0, "seconds between job status polls")
	rootCmd.PersistentFlags().String("log-file", "", "path to the JSON log file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	rootCmd.AddCommand(commands.NewVersionCommand(Version, BuildDate, GitCommit))
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewPredictCommand())
	rootCmd.AddCommand(commands.NewSearchesCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
