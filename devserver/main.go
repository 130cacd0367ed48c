package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/devilmonastery/infohunter/internal/api"
	"github.com/devilmonastery/infohunter/internal/config"
	"github.com/devilmonastery/infohunter/internal/mockbackend"
	"github.com/devilmonastery/infohunter/internal/pkg/idgen"
	"github.com/devilmonastery/infohunter/internal/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath    string
		listen        string
		logLevel      string
		logFile       string
		logToStderr   bool
		alsoLogStderr bool
		logFormat     string
	)

	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "InfoHunter development backend",
		Long:  "An in-memory InfoHunter backend speaking the REST API, for local development of clients",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupServerLogging(logLevel, logFile, logToStderr, alsoLogStderr, logFormat)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), configPath, listen)
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (optional)")
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address, overrides server.host and server.port (e.g. :8000)")

	// Add logging flags
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Log file path (if specified, logs to file instead of stderr)")
	cmd.PersistentFlags().BoolVar(&logToStderr, "logtostderr", false, "Log to stderr (default behavior unless --log-file specified)")
	cmd.PersistentFlags().BoolVar(&alsoLogStderr, "alsologtostderr", false, "Log to both file and stderr")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "Log format (text, json)")

	cmd.AddCommand(newConfigCommand(&configPath))

	return cmd
}

// setupServerLogging configures the global logger for the server
func setupServerLogging(logLevel, logFile string, logToStderr, alsoLogStderr bool, logFormat string) error {
	// Default to stderr logging unless file is specified
	if logFile == "" {
		logToStderr = true
	}

	globalLogger, err := logger.SetupLogger(logger.Config{
		Level:         logger.ParseLevel(logLevel),
		LogFile:       logFile,
		LogToStderr:   logToStderr,
		AlsoLogStderr: alsoLogStderr,
		Format:        logFormat,
	})
	if err != nil {
		return err
	}

	slog.SetDefault(globalLogger)
	return nil
}

func newConfigCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func runServer(ctx context.Context, configPath, listen string) error {
	log := slog.Default().With("component", "devserver")

	if err := idgen.Initialize(1); err != nil {
		return fmt.Errorf("failed to initialize ID generator: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	addr := cfg.Server.Addr()
	if listen != "" {
		addr = listen
	}

	backend := mockbackend.New(mockbackend.Config{
		APIKey:     cfg.Auth.APIKey,
		JWTSecret:  cfg.Auth.JWT.SigningKey,
		AccessTTL:  cfg.Auth.JWT.Lifetime,
		BcryptCost: cfg.Auth.BcryptCost,
		Timezone:   cfg.Timezone,
		Logger:     slog.Default(),
	})

	for _, u := range cfg.Seed.Users {
		created, err := backend.AddUser(u.Username, u.Password, api.Role(u.Role))
		if err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.Username, err)
		}
		log.Info("Seeded user", "username", created.Username, "role", created.Role)
	}
	if cfg.Seed.DemoRounds > 0 {
		backend.SeedDemoData(cfg.Seed.DemoRounds)
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Server.MetricsPath, promhttp.Handler())
	mux.Handle("/", backend)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server",
			"address", addr,
			"metrics_path", cfg.Server.MetricsPath,
			"access_ttl", cfg.Auth.JWT.Lifetime,
			"api_key_required", cfg.Auth.APIKey != "")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	m := backend.Metrics()
	log.Info("Server stopped", "requests", m.Requests, "refreshes", m.Refreshes, "unauthorized", m.Unauthorized)
	return nil
}
