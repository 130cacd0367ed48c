package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/devilmonastery/infohunter/internal/api"
	"github.com/devilmonastery/infohunter/internal/pkg/logger"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const cliContextKey contextKey = "cliContext"

// CliContext holds shared CLI context
type CliContext struct {
	Config  *Context
	Service *api.Service
	Queries *api.Queries
	Logger  *slog.Logger
}

type rootFlags struct {
	logLevel      string
	logFile       string
	logToStderr   bool
	alsoLogStderr bool
	logFormat     string
	metricsFile   string
}

// NewRootCommand creates the root cobra command
func NewRootCommand() *cobra.Command {
	var (
		ctx   CliContext
		flags rootFlags
	)

	rootCmd := &cobra.Command{
		Use:           "infohunter",
		Short:         "CLI for the InfoHunter monitoring service",
		Long:          `A command line interface for browsing and managing InfoHunter subscriptions, content and credits.`,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors (main.go handles it)
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := setupLogging(cmd, flags); err != nil {
				return fmt.Errorf("failed to setup logging: %w", err)
			}

			ctx.Logger = logger.WithCommand(slog.Default().With("component", "cli"), cmd.CommandPath())
			ctx.Logger.Debug("CLI started")

			// auth and config commands manage their own connection
			if group := commandGroup(cmd); group == "" || group == "auth" || group == "config" {
				return nil
			}

			svc, cfg, err := NewAPIService(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if !svc.Authenticated() {
				return fmt.Errorf("not logged in, please run 'infohunter auth login' first")
			}
			ctx.Config = cfg
			ctx.Service = svc
			ctx.Queries = NewAPIQueries(svc)

			parent := cmd.Context()
			if parent == nil {
				parent = context.Background()
			}
			cmd.SetContext(context.WithValue(parent, cliContextKey, &ctx))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if flags.metricsFile == "" {
				return nil
			}
			if err := prometheus.WriteToTextfile(flags.metricsFile, prometheus.DefaultGatherer); err != nil {
				return fmt.Errorf("failed to write metrics: %w", err)
			}
			return nil
		},
	}

	// Add subcommands
	rootCmd.AddCommand(newAuthCommand())
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newHealthCommand())
	rootCmd.AddCommand(newStatsCommand())
	rootCmd.AddCommand(newCreditsCommand())
	rootCmd.AddCommand(newLogsCommand())
	rootCmd.AddCommand(newSubsCommand())
	rootCmd.AddCommand(newContentsCommand())
	rootCmd.AddCommand(newFeedCommand())
	rootCmd.AddCommand(newMySubsCommand())
	rootCmd.AddCommand(newModeCommand())
	rootCmd.AddCommand(newAnalyzeCommand())
	rootCmd.AddCommand(newTriggerCommand())
	rootCmd.AddCommand(newSettingsCommand())
	rootCmd.AddCommand(newDevicesCommand())
	rootCmd.AddCommand(newPushCommand())
	rootCmd.AddCommand(newDashboardCommand())

	// Add logging flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	pf.StringVar(&flags.logFile, "log-file", "", "Log file path (if specified, logs to file instead of stderr)")
	pf.BoolVar(&flags.logToStderr, "logtostderr", false, "Log to stderr (default behavior unless --log-file specified)")
	pf.BoolVar(&flags.alsoLogStderr, "alsologtostderr", false, "Log to both file and stderr")
	pf.StringVar(&flags.logFormat, "log-format", "text", "Log format (text, json)")
	pf.StringVar(&flags.metricsFile, "metrics-file", "", "Write API client metrics in Prometheus text format to this file on exit")

	return rootCmd
}

// commandGroup returns the name of the top-level command cmd belongs to,
// or "" for the root itself
func commandGroup(cmd *cobra.Command) string {
	for c := cmd; c.HasParent(); c = c.Parent() {
		if !c.Parent().HasParent() {
			return c.Name()
		}
	}
	return ""
}

// setupLogging configures the global logger based on CLI flags
func setupLogging(cmd *cobra.Command, flags rootFlags) error {
	cfg := logger.Config{
		Level:         logger.ParseLevel(flags.logLevel),
		LogFile:       flags.logFile,
		LogToStderr:   flags.logToStderr || flags.logFile == "",
		AlsoLogStderr: flags.alsoLogStderr,
		Format:        flags.logFormat,
		Output:        cmd.ErrOrStderr(),
	}

	globalLogger, err := logger.SetupLogger(cfg)
	if err != nil {
		return err
	}

	// Set as default logger
	slog.SetDefault(globalLogger)
	return nil
}

// getCliContext extracts the CLI context from the command context
func getCliContext(cmd *cobra.Command) *CliContext {
	return cmd.Context().Value(cliContextKey).(*CliContext)
}
