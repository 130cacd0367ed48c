package config

import (
	"net"
	"strconv"
	"time"
)

// Config represents the development backend configuration
type Config struct {
	Server   ServerConfig `yaml:"server"`
	Auth     AuthConfig   `yaml:"auth"`
	Seed     SeedConfig   `yaml:"seed"`
	Timezone string       `yaml:"timezone" default:"UTC"` // IANA zone used to bucket daily credit reports
}

// ServerConfig holds the HTTP listener configuration
type ServerConfig struct {
	Host        string `yaml:"host" default:"localhost"`
	Port        int    `yaml:"port" default:"8000"`
	MetricsPath string `yaml:"metrics_path" default:"/metrics"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	APIKey     string    `yaml:"api_key"`     // Required as X-API-Key on every request when set
	JWT        JWTConfig `yaml:"jwt"`
	BcryptCost int       `yaml:"bcrypt_cost"` // 0 uses bcrypt.DefaultCost
}

// JWTConfig holds access token configuration
type JWTConfig struct {
	SigningKey string        `yaml:"signing_key"`            // Secret key for signing access tokens
	Lifetime   time.Duration `yaml:"lifetime" default:"15m"` // Access token TTL
}

// SeedConfig describes data loaded at startup
type SeedConfig struct {
	DemoRounds int          `yaml:"demo_rounds"` // Simulated collection runs; 0 skips demo content
	Users      []UserConfig `yaml:"users"`
}

// UserConfig is a user created at startup
type UserConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"` // admin or user; the first user is always admin
}
