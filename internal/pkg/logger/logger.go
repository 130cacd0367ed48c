package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	Level         slog.Level
	LogFile       string
	LogToStderr   bool
	AlsoLogStderr bool
	Format        string // "json" or "text"
	// Output replaces stderr, for tests
	Output io.Writer
}

// SetupLogger creates a configured slog logger. With neither a file nor
// stderr selected it falls back to stderr.
func SetupLogger(cfg Config) (*slog.Logger, error) {
	stderr := cfg.Output
	if stderr == nil {
		stderr = os.Stderr
	}

	var writers []io.Writer
	if cfg.LogFile != "" {
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, err
		}
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		writers = append(writers, file)
	}
	if cfg.LogToStderr || cfg.AlsoLogStderr || len(writers) == 0 {
		writers = append(writers, stderr)
	}

	writer := io.MultiWriter(writers...)
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.Level <= slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}

	return slog.New(handler), nil
}

// ParseLevel converts a string to slog.Level
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// CLI-specific convenience functions
func WithCommand(logger *slog.Logger, cmd string) *slog.Logger {
	return logger.With("command", cmd)
}

func WithContext(logger *slog.Logger, contextName string) *slog.Logger {
	return logger.With("context", contextName)
}

// Server-specific convenience functions
func WithUser(logger *slog.Logger, userID int64) *slog.Logger {
	return logger.With("user_id", userID)
}

func WithHTTPRequest(logger *slog.Logger, method, path string) *slog.Logger {
	return logger.With("http_method", method, "http_path", path)
}

func WithDuration(logger *slog.Logger, duration time.Duration) *slog.Logger {
	return logger.With("duration_ms", duration.Milliseconds())
}

// GetDefaultLogFile returns the default log file path for a component
func GetDefaultLogFile(component string) string {
	configDir, _ := os.UserConfigDir()
	if configDir == "" {
		configDir = "."
	}
	return filepath.Join(configDir, "infohunter", component+".log")
}
