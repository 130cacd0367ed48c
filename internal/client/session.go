package client

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Session holds the credentials used to authorize outbound requests.
// It is created by the application at startup and handed to New; the
// client mutates it only through SetTokens, ClearTokens and the refresh
// protocol.
type Session struct {
	mu       sync.RWMutex
	access   string
	refresh  string
	observer func(access, refresh string)
}

// NewSession creates an empty session
func NewSession() *Session {
	return &Session{}
}

// SetTokens replaces both tokens. An empty access token means "not authenticated".
func (s *Session) SetTokens(access, refresh string) {
	s.mu.Lock()
	s.access = access
	s.refresh = refresh
	observer := s.observer
	s.mu.Unlock()

	if observer != nil {
		observer(access, refresh)
	}
}

// Clear removes both tokens
func (s *Session) Clear() {
	s.SetTokens("", "")
}

// AccessToken returns the current access token, or "" when none is installed
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

// RefreshToken returns the current refresh token, or "" when none is installed
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

// Tokens returns both tokens from a single read
func (s *Session) Tokens() (access, refresh string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access, s.refresh
}

// OnChange registers the observer notified after every token change.
// The observer runs synchronously on the goroutine that changed the tokens.
// Passing nil removes it.
func (s *Session) OnChange(fn func(access, refresh string)) {
	s.mu.Lock()
	s.observer = fn
	s.mu.Unlock()
}

// Token returns the session as an oauth2.Token. Expiry is read from the
// access token's exp claim when it is a JWT; otherwise it is left zero.
func (s *Session) Token() *oauth2.Token {
	access, refresh := s.Tokens()
	if access == "" {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		Expiry:       TokenExpiry(access),
	}
}

// TokenExpiry extracts the exp claim from a JWT without verifying it.
// The zero time is returned when the token is not a JWT or has no exp.
func TokenExpiry(token string) time.Time {
	parsed, _, err := new(jwt.Parser).ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
