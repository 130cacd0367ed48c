package api

import (
	"context"
	"fmt"
	"net/url"
)

// Register creates an account and installs the returned tokens
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, fmt.Errorf("username and password are required")
	}

	var out TokenResponse
	if err := s.client.Post(ctx, "/api/auth/register", req, &out); err != nil {
		return nil, err
	}
	s.client.SetTokens(out.AccessToken, out.RefreshToken)
	return &out, nil
}

// Login authenticates with the OAuth2 password form and installs the returned tokens
func (s *Service) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, fmt.Errorf("username and password are required")
	}

	form := url.Values{}
	form.Set("username", req.Username)
	form.Set("password", req.Password)

	var out TokenResponse
	if err := s.client.Post(ctx, "/api/auth/login", form, &out); err != nil {
		return nil, err
	}
	s.client.SetTokens(out.AccessToken, out.RefreshToken)
	return &out, nil
}

// Refresh exchanges refreshToken for a new access token and installs it,
// keeping refreshToken as the session's refresh token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("refresh token is required")
	}

	var out RefreshResponse
	body := map[string]string{"refresh_token": refreshToken}
	if err := s.client.Post(ctx, "/api/auth/refresh", body, &out); err != nil {
		return nil, err
	}
	s.client.SetTokens(out.AccessToken, refreshToken)
	return &out, nil
}

// Me calls GET /api/auth/me
func (s *Service) Me(ctx context.Context) (*User, error) {
	var out User
	if err := s.client.Get(ctx, "/api/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout drops the local session. The backend keeps no logout endpoint.
func (s *Service) Logout() {
	s.client.ClearTokens()
}

// UpdateUserMode calls PUT /api/user/mode
func (s *Service) UpdateUserMode(ctx context.Context, mode UserMode) (*ModeResponse, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("invalid mode %q", mode)
	}

	var out ModeResponse
	if err := s.client.Put(ctx, "/api/user/mode", map[string]UserMode{"mode": mode}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
