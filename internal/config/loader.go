package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/devilmonastery/infohunter/internal/pkg/timeutil"
)

// expandEnvVars expands environment variables in the format ${VAR} or $VAR
func expandEnvVars(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}

// DefaultConfigPaths defines the default locations to search for configuration files
var DefaultConfigPaths = []string{
	"./devserver.yaml",
	"./devserver.yml",
	"./configs/devserver.yaml",
	"./configs/devserver.yml",
	"/etc/infohunter/devserver.yaml",
}

// Default returns the configuration used when no file is found
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "localhost",
			Port:        8000,
			MetricsPath: "/metrics",
		},
		Auth: AuthConfig{
			JWT: JWTConfig{
				SigningKey: "infohunter-dev-secret",
				Lifetime:   15 * time.Minute,
			},
		},
		Timezone: "UTC",
	}
}

// Load loads the configuration from the specified file or default locations
func Load(configPath string) (*Config, error) {
	config := Default()

	// If no config path is provided, search in default locations
	if configPath == "" {
		configPath = findConfigFile()
	} else if !fileExists(configPath) {
		return nil, fmt.Errorf("config file %s not found", configPath)
	}

	if configPath != "" {
		slog.Debug("loading config", "path", configPath)
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := Parse(expandEnvVars(data), config); err != nil {
			return nil, err
		}
	} else {
		slog.Debug("no config file found, using defaults")
	}

	if err := validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// Parse decodes YAML into config, keeping existing values for absent keys
func Parse(data []byte, config *Config) error {
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// findConfigFile searches for a configuration file in default locations
func findConfigFile() string {
	for _, path := range DefaultConfigPaths {
		if fileExists(path) {
			return path
		}
	}
	return ""
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// validate performs basic validation on the configuration
func validate(config *Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if config.Auth.JWT.SigningKey == "" {
		return fmt.Errorf("auth.jwt.signing_key is required")
	}
	if config.Auth.JWT.Lifetime <= 0 {
		return fmt.Errorf("auth.jwt.lifetime must be positive")
	}
	if !timeutil.IsValidTimezone(config.Timezone) {
		return fmt.Errorf("unknown timezone %q", config.Timezone)
	}
	if config.Seed.DemoRounds < 0 {
		return fmt.Errorf("seed.demo_rounds must not be negative")
	}

	for i, u := range config.Seed.Users {
		if u.Username == "" || u.Password == "" {
			return fmt.Errorf("seed.users[%d]: username and password are required", i)
		}
		if u.Role != "" && u.Role != "admin" && u.Role != "user" {
			return fmt.Errorf("seed.users[%d]: role must be admin or user", i)
		}
	}

	return nil
}
