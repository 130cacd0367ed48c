package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/devilmonastery/infohunter/internal/client"
)

// Service exposes the InfoHunter REST API as typed methods
type Service struct {
	client *client.Client
}

// NewService wraps c. c must be configured before any method is called.
func NewService(c *client.Client) *Service {
	return &Service{client: c}
}

// Client returns the underlying HTTP client
func (s *Service) Client() *client.Client {
	return s.client
}

// Authenticated reports whether an access token is installed
func (s *Service) Authenticated() bool {
	return s.client.GetAccessToken() != ""
}

// Health calls GET /api/health
func (s *Service) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := s.client.Get(ctx, "/api/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stats calls GET /api/stats
func (s *Service) Stats(ctx context.Context) (*StatsResponse, error) {
	var out StatsResponse
	if err := s.client.Get(ctx, "/api/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TriggerSmartCollect starts a collection run on the backend
func (s *Service) TriggerSmartCollect(ctx context.Context) (*TriggerResponse, error) {
	var out TriggerResponse
	if err := s.client.Post(ctx, "/api/trigger/smart-collect", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TriggerDailyReport asks the backend to send the daily report now
func (s *Service) TriggerDailyReport(ctx context.Context) (*TriggerResponse, error) {
	var out TriggerResponse
	if err := s.client.Post(ctx, "/api/trigger/daily-report", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// params builds query strings, dropping zero values
type params url.Values

func (p params) str(key, v string) params {
	if v != "" {
		url.Values(p).Set(key, v)
	}
	return p
}

func (p params) num(key string, v int) params {
	if v != 0 {
		url.Values(p).Set(key, strconv.Itoa(v))
	}
	return p
}

func (p params) id(key string, v int64) params {
	if v != 0 {
		url.Values(p).Set(key, strconv.FormatInt(v, 10))
	}
	return p
}

func (p params) flag(key string, v bool) params {
	if v {
		url.Values(p).Set(key, "true")
	}
	return p
}

func (p params) values() url.Values {
	if len(p) == 0 {
		return nil
	}
	return url.Values(p)
}

func pathf(pattern string, args ...any) string {
	for i, a := range args {
		if s, ok := a.(string); ok {
			args[i] = url.PathEscape(s)
		}
	}
	return fmt.Sprintf(pattern, args...)
}
