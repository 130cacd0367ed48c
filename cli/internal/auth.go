package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/devilmonastery/infohunter/internal/api"
	"github.com/devilmonastery/infohunter/internal/client"
	"github.com/devilmonastery/infohunter/internal/pkg/format"
)

func newAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication commands",
		Long:  `Manage authentication for the InfoHunter CLI`,
	}

	cmd.AddCommand(newAuthLoginCommand())
	cmd.AddCommand(newAuthRegisterCommand())
	cmd.AddCommand(newAuthLogoutCommand())
	cmd.AddCommand(newAuthStatusCommand())
	cmd.AddCommand(newAuthTokenCommand())
	cmd.AddCommand(newAuthWhoamiCommand())

	return cmd
}

func newAuthLoginCommand() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login to the InfoHunter server",
		Long: `Authenticate with username and password. Missing values are prompted for.

Examples:
  infohunter auth login -u alice
  infohunter auth login -u alice -p secret`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return authenticate(cmd, username, password, false)
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username (if not provided, will prompt)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (if not provided, will prompt)")

	return cmd
}

func newAuthRegisterCommand() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return authenticate(cmd, username, password, true)
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username (if not provided, will prompt)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (if not provided, will prompt)")

	return cmd
}

func authenticate(cmd *cobra.Command, username, password string, register bool) error {
	logger := slog.Default().With("command", cmd.Name())

	var err error
	if username == "" || password == "" {
		username, password, err = promptCredentials(cmd.InOrStdin(), cmd.ErrOrStderr(), username, password)
		if err != nil {
			return err
		}
	}

	svc, _, err := NewAPIService(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	var tok *api.TokenResponse
	if register {
		tok, err = svc.Register(cmd.Context(), api.RegisterRequest{Username: username, Password: password})
	} else {
		tok, err = svc.Login(cmd.Context(), api.LoginRequest{Username: username, Password: password})
	}
	if err != nil {
		logger.Debug("authentication failed", "username", username, "error", err)
		if client.IsUnauthorized(err) {
			return fmt.Errorf("invalid username or password")
		}
		return err
	}

	// Tokens were written by the session observer; add who they belong to
	if err := NewFileCredentials().SaveUser(tok.User); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	logger.Info("authenticated", "user_id", tok.User.ID, "role", tok.User.Role)
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Logged in as %s (%s)\n", tok.User.Username, tok.User.Role)
	return nil
}

func newAuthLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Logout from the InfoHunter server",
		Long:  `Remove stored credentials for the current context`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := NewAPIService(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if !svc.Authenticated() {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}

			// Clearing the session removes the credentials file
			svc.Logout()
			if err := RemoveCredentials(); err != nil {
				return fmt.Errorf("failed to remove credentials: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "✓ Successfully logged out")
			return nil
		},
	}
}

func newAuthStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			creds, err := LoadCredentials()
			if err != nil || creds.Token == nil {
				fmt.Fprintln(out, "Not logged in")
				return nil
			}

			fmt.Fprintf(out, "Logged in as: %s\n", creds.Username)
			fmt.Fprintf(out, "User ID: %d\n", creds.UserID)
			fmt.Fprintf(out, "Role: %s\n", creds.Role)

			if creds.Token.Expiry.IsZero() {
				fmt.Fprintln(out, "Token expires: unknown")
				return nil
			}

			// Show expiry in local timezone
			localExpiry := creds.Token.Expiry.Local()
			fmt.Fprintf(out, "Token expires: %s\n", localExpiry.Format("2006-01-02 15:04:05 MST"))

			now := time.Now()
			if creds.IsExpired() {
				fmt.Fprintf(out, "⚠  Token expired %s ago - automatic refresh will be attempted on next request\n",
					format.Duration(now.Sub(creds.Token.Expiry)))
			} else {
				fmt.Fprintf(out, "✓  Valid for %s\n", format.Duration(creds.Token.Expiry.Sub(now)))
			}

			return nil
		},
	}
}

func newAuthTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print the current access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := LoadCredentials()
			if err != nil {
				return fmt.Errorf("not logged in: %w", err)
			}
			if creds.Token == nil || creds.Token.AccessToken == "" {
				return fmt.Errorf("not logged in")
			}
			fmt.Fprintln(cmd.OutOrStdout(), creds.Token.AccessToken)
			return nil
		},
	}
}

func newAuthWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the user the server sees",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := NewAPIService(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if !svc.Authenticated() {
				return fmt.Errorf("not logged in, please run 'infohunter auth login' first")
			}

			user, err := svc.Me(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Username: %s\n", user.Username)
			fmt.Fprintf(out, "User ID: %d\n", user.ID)
			fmt.Fprintf(out, "Role: %s\n", user.Role)
			fmt.Fprintf(out, "Mode: %s\n", user.Mode)
			if !user.CreatedAt.IsZero() {
				fmt.Fprintf(out, "Member since: %s\n", user.CreatedAt.Local().Format("2006-01-02"))
			}
			return nil
		},
	}
}

// promptCredentials asks for whatever is missing. The password is read
// without echo when in is a terminal.
func promptCredentials(in io.Reader, prompt io.Writer, username, password string) (string, string, error) {
	reader := bufio.NewReader(in)

	if username == "" {
		fmt.Fprint(prompt, "Username: ")
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", "", fmt.Errorf("failed to read username: %w", err)
		}
		username = strings.TrimSpace(line)
	}
	if username == "" {
		return "", "", fmt.Errorf("username is required")
	}

	if password != "" {
		return username, password, nil
	}

	fmt.Fprint(prompt, "Password: ")
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		passwordBytes, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt) // newline after password input
		if err != nil {
			return "", "", fmt.Errorf("failed to read password: %w", err)
		}
		password = string(passwordBytes)
	} else {
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", "", fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	if password == "" {
		return "", "", fmt.Errorf("password is required")
	}
	return username, password, nil
}
