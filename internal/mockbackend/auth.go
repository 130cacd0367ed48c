package mockbackend

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/devilmonastery/infohunter/internal/api"
	"github.com/devilmonastery/infohunter/internal/auth"
	"github.com/devilmonastery/infohunter/internal/pkg/idgen"
	"github.com/devilmonastery/infohunter/internal/pkg/logger"
)

const (
	minUsernameLen = 3
	minPasswordLen = 6
)

// AddUser creates a user directly, bypassing the API. The first user created
// by any path becomes an admin regardless of role.
func (s *Server) AddUser(username, password string, role api.Role) (api.User, error) {
	hash, err := auth.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return api.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.addUserLocked(username, hash, role)
	if err != nil {
		return api.User{}, err
	}
	return u.toAPI(), nil
}

func (s *Server) addUserLocked(username string, hash []byte, role api.Role) (*user, error) {
	key := strings.ToLower(username)
	if _, exists := s.usersByName[key]; exists {
		return nil, fmt.Errorf("username %q already registered", username)
	}
	if len(s.users) == 0 {
		role = api.RoleAdmin
	}
	if role == "" {
		role = api.RoleUser
	}

	u := &user{
		ID:        s.id(),
		Username:  username,
		Hash:      hash,
		Role:      role,
		Mode:      api.ModeGlobal,
		CreatedAt: s.now().UTC(),
	}
	s.users[u.ID] = u
	s.usersByName[key] = u
	return u, nil
}

func (s *Server) issueTokens(u *user) (api.TokenResponse, error) {
	access, _, err := s.jwt.GenerateToken(u.ID, u.Username, string(u.Role))
	if err != nil {
		return api.TokenResponse{}, err
	}
	refresh := idgen.NewToken("rt_")

	s.mu.Lock()
	s.refreshTokens[refresh] = u.ID
	s.mu.Unlock()

	return api.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		User:         u.toAPI(),
	}, nil
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if len(req.Username) < minUsernameLen {
		writeValidation(w, "username", fmt.Sprintf("username must be at least %d characters", minUsernameLen))
		return
	}
	if len(req.Password) < minPasswordLen {
		writeValidation(w, "password", fmt.Sprintf("password must be at least %d characters", minPasswordLen))
		return
	}

	hash, err := auth.HashPassword(req.Password, s.cfg.BcryptCost)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.mu.Lock()
	u, err := s.addUserLocked(req.Username, hash, api.RoleUser)
	s.mu.Unlock()
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Username already registered")
		return
	}

	resp, err := s.issueTokens(u)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("user registered", "user_id", u.ID, "username", u.Username, "role", u.Role)
	writeJSON(w, http.StatusOK, resp)
}

// login accepts the OAuth2 password form
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeValidation(w, "body", "invalid form body")
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		writeValidation(w, "username", "username and password are required")
		return
	}

	s.mu.Lock()
	u, exists := s.usersByName[strings.ToLower(username)]
	s.mu.Unlock()
	if !exists || auth.CheckPassword(u.Hash, password) != nil {
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}

	resp, err := s.issueTokens(u)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	logger.WithUser(s.logger, u.ID).Debug("user logged in")
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	s.refreshes.Add(1)

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if !decodeBody(w, r, &req) {
		s.failedRefreshes.Add(1)
		return
	}

	s.mu.Lock()
	id, known := s.refreshTokens[req.RefreshToken]
	u := s.users[id]
	s.mu.Unlock()
	if !known || u == nil {
		s.failedRefreshes.Add(1)
		writeDetail(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	access, _, err := s.jwt.GenerateToken(u.ID, u.Username, string(u.Role))
	if err != nil {
		s.failedRefreshes.Add(1)
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, api.RefreshResponse{AccessToken: access, TokenType: "bearer"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	u := s.users[currentUser(r)].toAPI()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) updateMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode api.UserMode `json:"mode"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if !req.Mode.Valid() {
		writeValidation(w, "mode", "mode must be global or custom")
		return
	}

	s.mu.Lock()
	s.users[currentUser(r)].Mode = req.Mode
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, api.ModeResponse{Status: "ok", Mode: req.Mode})
}
