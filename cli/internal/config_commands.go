package cli

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/devilmonastery/infohunter/internal/client"
)

const defaultTimeout = 30 * time.Second

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage backend contexts",
		Long: `A context names an InfoHunter backend: its URL, API key and request timeout.
Credentials are stored per context, so switching contexts switches accounts.`,
	}

	cmd.AddCommand(
		newCurrentContextCommand(),
		newUseContextCommand(),
		newListContextsCommand(),
		newSetContextCommand(),
		newDeleteContextCommand(),
		newConfigShowCommand(),
	)
	return cmd
}

// editConfig loads the config, applies fn and saves the result
func editConfig(fn func(*Config) error) error {
	config, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := fn(config); err != nil {
		return err
	}
	if err := SaveConfig(config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func newCurrentContextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "current-context",
		Short: "Print the current context name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), config.CurrentContext)
			return nil
		},
	}
}

func newUseContextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "use-context NAME",
		Short: "Switch the backend used by other commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := editConfig(func(c *Config) error { return c.SetCurrentContext(name) }); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Switched to context %q\n", name)
			return nil
		},
	}
}

func newListContextsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list-contexts",
		Aliases: []string{"get-contexts"},
		Short:   "List backend contexts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if len(config.Contexts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No contexts configured")
				return nil
			}

			names := make([]string, 0, len(config.Contexts))
			for name := range config.Contexts {
				names = append(names, name)
			}
			sort.Strings(names)

			t := newTable(cmd.OutOrStdout(), "CURRENT", "NAME", "SERVER", "API KEY", "TIMEOUT", "SIGNED IN AS")
			for _, name := range names {
				ctx := config.Contexts[name]
				marker := ""
				if name == config.CurrentContext {
					marker = "*"
				}
				t.row(marker, name, ctx.Server.URL, ctx.MaskedAPIKey(), ctx.Server.Timeout, signedInAs(name))
			}
			return t.flush()
		},
	}
}

// newSetContextCommand creates a context or changes the given fields of an existing one
func newSetContextCommand() *cobra.Command {
	var (
		serverURL string
		apiKey    string
		timeout   time.Duration
		theme     string
	)

	cmd := &cobra.Command{
		Use:     "set-context NAME",
		Aliases: []string{"add-context"},
		Short:   "Create or update a backend context",
		Example: `  infohunter config set-context local --url http://localhost:8000
  infohunter config set-context prod --api-key "$INFOHUNTER_API_KEY"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			flags := cmd.Flags()
			created := false

			err := editConfig(func(c *Config) error {
				ctx, exists := c.Contexts[name]
				if !exists {
					if !flags.Changed("url") {
						return fmt.Errorf("context %q does not exist, --url is required to create it", name)
					}
					ctx = &Context{}
					ctx.Server.Timeout = defaultTimeout
					ctx.Rendering.Theme = "auto"
					created = true
				}

				if flags.Changed("url") {
					ctx.Server.URL = serverURL
				}
				if flags.Changed("api-key") {
					ctx.Server.APIKey = apiKey
				}
				if flags.Changed("timeout") {
					ctx.Server.Timeout = timeout
				}
				if flags.Changed("theme") {
					ctx.Rendering.Theme = theme
				}
				if err := ctx.Validate(); err != nil {
					return err
				}

				c.AddContext(name, ctx)
				if len(c.Contexts) == 1 {
					c.CurrentContext = name
				}
				return nil
			})
			if err != nil {
				return err
			}

			verb := "updated"
			if created {
				verb = "created"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Context %q %s\n", name, verb)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "url", "", "Backend base URL, e.g. http://localhost:8000")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key sent as X-API-Key (empty to remove)")
	cmd.Flags().DurationVar(&timeout, "timeout", defaultTimeout, "Per-request timeout")
	cmd.Flags().StringVar(&theme, "theme", "auto", "Markdown theme (auto, dark, light, notty)")
	return cmd
}

func newDeleteContextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-context NAME",
		Short: "Delete a context and its stored credentials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := editConfig(func(c *Config) error { return c.DeleteContext(name) }); err != nil {
				return err
			}

			path, err := credentialsPathFor(name)
			if err != nil {
				return err
			}
			if err := removeFile(path); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Context %q deleted\n", name)
			return nil
		},
	}
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [NAME]",
		Short: "Show a context, the current one by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			name := config.CurrentContext
			if len(args) == 1 {
				name = args[0]
			}
			ctx, ok := config.Contexts[name]
			if !ok {
				return fmt.Errorf("context %q does not exist", name)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Context: %s", name)
			if name == config.CurrentContext {
				fmt.Fprint(out, " (current)")
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "  Server URL: %s\n", ctx.Server.URL)
			fmt.Fprintf(out, "  API Key: %s\n", ctx.MaskedAPIKey())
			fmt.Fprintf(out, "  Timeout: %s\n", ctx.Server.Timeout)
			fmt.Fprintf(out, "  Theme: %s\n", ctx.Rendering.Theme)
			if user := signedInAs(name); user != "" {
				fmt.Fprintf(out, "  Signed in as: %s\n", user)
			} else {
				fmt.Fprintln(out, "  Signed in as: (nobody)")
			}

			configPath, _ := GetConfigPath()
			credsPath, _ := credentialsPathFor(name)
			fmt.Fprintf(out, "  Config file: %s\n", configPath)
			fmt.Fprintf(out, "  Credentials file: %s\n", credsPath)
			return nil
		},
	}
}

// signedInAs returns the username stored for a context, or "" when there is none
func signedInAs(contextName string) string {
	path, err := credentialsPathFor(contextName)
	if err != nil {
		return ""
	}
	creds, err := loadCredentialsFile(path)
	if err != nil {
		if !errors.Is(err, client.ErrNoCredentials) {
			return "(unreadable)"
		}
		return ""
	}
	if creds.Token == nil || creds.Token.RefreshToken == "" {
		return ""
	}
	return creds.Username
}
