package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"

	"github.com/devilmonastery/infohunter/internal/api"
	"github.com/devilmonastery/infohunter/internal/client"
)

// Credentials stores the authentication credentials for one context
type Credentials struct {
	Token    *oauth2.Token `json:"token"`
	UserID   int64         `json:"user_id,omitempty"`
	Username string        `json:"username,omitempty"`
	Role     api.Role      `json:"role,omitempty"`
}

// IsExpired checks if the access token is expired. Tokens without a known
// expiry are never considered expired.
func (c *Credentials) IsExpired() bool {
	if c.Token == nil {
		return true
	}
	return !c.Token.Expiry.IsZero() && time.Now().After(c.Token.Expiry)
}

// NeedsRefresh checks if the access token expires within 5 minutes
func (c *Credentials) NeedsRefresh() bool {
	if c.Token == nil || c.Token.Expiry.IsZero() {
		return false
	}
	return time.Now().Add(5 * time.Minute).After(c.Token.Expiry)
}

// NewFileCredentials creates a file-based store for the current context
func NewFileCredentials() *FileCredentials {
	return &FileCredentials{}
}

// FileCredentials implements client.TokenStore using the credentials file of
// the current context. User fields survive token rotation.
type FileCredentials struct{}

var _ client.TokenStore = (*FileCredentials)(nil)

// Load implements client.TokenStore
func (f *FileCredentials) Load() (string, string, error) {
	creds, err := LoadCredentials()
	if err != nil {
		return "", "", err
	}
	if creds.Token == nil || creds.Token.AccessToken == "" {
		return "", "", client.ErrNoCredentials
	}
	return creds.Token.AccessToken, creds.Token.RefreshToken, nil
}

// Save implements client.TokenStore
func (f *FileCredentials) Save(access, refresh string) error {
	creds, err := LoadCredentials()
	if err != nil {
		slog.Debug("creating new credentials",
			slog.String("component", "cli-token"),
			slog.String("load_error", err.Error()))
		creds = &Credentials{}
	}

	creds.Token = &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		Expiry:       client.TokenExpiry(access),
	}
	if creds.Token.Expiry.IsZero() {
		slog.Warn("failed to decode JWT expiry", slog.String("component", "cli-token"))
	}

	if err := SaveCredentials(creds); err != nil {
		slog.Error("failed to save credentials",
			slog.String("component", "cli-token"),
			slog.String("error", err.Error()))
		return err
	}
	slog.Debug("credentials saved", slog.String("component", "cli-token"), slog.Time("expires_at", creds.Token.Expiry))
	return nil
}

// Clear implements client.TokenStore
func (f *FileCredentials) Clear() error {
	return RemoveCredentials()
}

// SaveUser records who the stored tokens belong to
func (f *FileCredentials) SaveUser(u api.User) error {
	creds, err := LoadCredentials()
	if err != nil {
		return err
	}
	creds.UserID = u.ID
	creds.Username = u.Username
	creds.Role = u.Role
	return SaveCredentials(creds)
}

// credentialsPath returns the path to the credentials file for the current context
func credentialsPath() (string, error) {
	config, err := LoadConfig()
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}
	return credentialsPathFor(config.CurrentContext)
}

func credentialsPathFor(contextName string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	configDir := filepath.Join(homeDir, ".config", "infohunter")
	return filepath.Join(configDir, fmt.Sprintf("credentials-%s.json", contextName)), nil
}

// SaveCredentials saves credentials to disk
func SaveCredentials(creds *Credentials) error {
	path, err := credentialsPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	// Write with restricted permissions (read/write for owner only)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}

	return nil
}

// LoadCredentials loads credentials from disk. A missing file is
// client.ErrNoCredentials.
func LoadCredentials() (*Credentials, error) {
	path, err := credentialsPath()
	if err != nil {
		return nil, err
	}
	return loadCredentialsFile(path)
}

func loadCredentialsFile(path string) (*Credentials, error) {
	slog.Debug("loading credentials from file",
		slog.String("component", "cli-creds"),
		slog.String("path", path))

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, client.ErrNoCredentials
		}
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	return &creds, nil
}

// RemoveCredentials removes the credentials file
func RemoveCredentials() error {
	path, err := credentialsPath()
	if err != nil {
		return err
	}
	return removeFile(path)
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}
