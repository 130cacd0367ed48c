package mockbackend

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/gorilla/mux"

	"github.com/devilmonastery/infohunter/internal/api"
)

// SetConfig stores a system config entry directly
func (s *Server) SetConfig(key string, value map[string]any, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setConfigLocked(key, value, description)
}

func (s *Server) setConfigLocked(key string, value map[string]any, description string) *api.SystemConfig {
	cfg, exists := s.configs[key]
	if !exists {
		cfg = &api.SystemConfig{Key: key}
		s.configs[key] = cfg
	}
	cfg.Value = value
	if description != "" {
		cfg.Description = &description
	}
	cfg.UpdatedAt = s.timestamp()
	return cfg
}

func (s *Server) listConfigs(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]api.SystemConfig, 0, len(s.configs))
	for _, cfg := range s.configs {
		out = append(out, *cfg)
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b api.SystemConfig) int {
		return strings.Compare(a.Key, b.Key)
	})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getConfig(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	s.mu.Lock()
	cfg, ok := s.configs[key]
	var out api.SystemConfig
	if ok {
		out = *cfg
	}
	s.mu.Unlock()

	if !ok {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("Config '%s' not found", key))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) putConfig(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	var req api.ConfigUpdate
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Value == nil {
		writeValidation(w, "value", "value must be an object")
		return
	}

	s.mu.Lock()
	out := *s.setConfigLocked(key, req.Value, req.Description)
	s.mu.Unlock()

	s.logger.Info("config updated", "key", key)
	writeJSON(w, http.StatusOK, api.ConfigUpdateResponse{SystemConfig: out, Status: "ok"})
}

func (s *Server) deleteConfig(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	s.mu.Lock()
	_, ok := s.configs[key]
	delete(s.configs, key)
	s.mu.Unlock()

	if !ok {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("Config '%s' not found", key))
		return
	}
	writeJSON(w, http.StatusOK, api.StatusResponse{Status: "deleted"})
}
