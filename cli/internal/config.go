package cli

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Context represents a named configuration context (like kubectl contexts)
type Context struct {
	Server struct {
		URL     string        `yaml:"url"`
		APIKey  string        `yaml:"api_key,omitempty"`
		Timeout time.Duration `yaml:"timeout,omitempty"`
	} `yaml:"server"`
	Rendering struct {
		Theme string `yaml:"theme"`
	} `yaml:"rendering"`
}

// Config represents the CLI configuration with multiple contexts
type Config struct {
	CurrentContext string              `yaml:"current-context"`
	Contexts       map[string]*Context `yaml:"contexts"`
}

// DefaultConfig returns the default configuration with "dev" and "prod" contexts
func DefaultConfig() *Config {
	devContext := &Context{}
	devContext.Server.URL = "http://localhost:8000"
	devContext.Server.Timeout = 30 * time.Second
	devContext.Rendering.Theme = "auto"

	prodContext := &Context{}
	prodContext.Server.URL = "https://infohunter.example.com"
	prodContext.Server.Timeout = 30 * time.Second
	prodContext.Rendering.Theme = "auto"

	return &Config{
		CurrentContext: "dev",
		Contexts: map[string]*Context{
			"dev":  devContext,
			"prod": prodContext,
		},
	}
}

// GetCurrentContext returns the current active context
func (c *Config) GetCurrentContext() (*Context, error) {
	if c.CurrentContext == "" {
		return nil, fmt.Errorf("no current context set")
	}

	ctx, ok := c.Contexts[c.CurrentContext]
	if !ok {
		return nil, fmt.Errorf("current context %q not found", c.CurrentContext)
	}

	return ctx, nil
}

// SetCurrentContext sets the current active context
func (c *Config) SetCurrentContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q does not exist", name)
	}
	c.CurrentContext = name
	return nil
}

// AddContext adds or updates a context
func (c *Config) AddContext(name string, ctx *Context) {
	if c.Contexts == nil {
		c.Contexts = make(map[string]*Context)
	}
	c.Contexts[name] = ctx
}

// DeleteContext removes a context
func (c *Config) DeleteContext(name string) error {
	if name == c.CurrentContext {
		return fmt.Errorf("cannot delete current context %q", name)
	}
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q does not exist", name)
	}
	delete(c.Contexts, name)
	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".infohunter"), nil
}

// LoadConfig loads configuration from ~/.infohunter, creating it with
// defaults on first use
func LoadConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		defaultConfig := DefaultConfig()
		if err := SaveConfig(defaultConfig); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return defaultConfig, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Ensure we have a valid current context
	if config.CurrentContext == "" && len(config.Contexts) > 0 {
		names := make([]string, 0, len(config.Contexts))
		for name := range config.Contexts {
			names = append(names, name)
		}
		sort.Strings(names)
		config.CurrentContext = names[0]
	}

	return &config, nil
}

// SaveConfig saves configuration to ~/.infohunter
func SaveConfig(config *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file can carry API keys
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that the context points at a usable server
func (ctx *Context) Validate() error {
	u, err := url.Parse(ctx.Server.URL)
	if err != nil {
		return fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server url %q must start with http:// or https://", ctx.Server.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("server url %q has no host", ctx.Server.URL)
	}
	return nil
}

// MaskedAPIKey returns the API key with all but its last four characters hidden
func (ctx *Context) MaskedAPIKey() string {
	key := ctx.Server.APIKey
	switch {
	case key == "":
		return "(none)"
	case len(key) <= 4:
		return strings.Repeat("*", len(key))
	default:
		return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
	}
}
