package api

import (
	"context"
	"fmt"
)

// CreditSummary calls GET /api/credits/summary. days <= 0 uses the backend default.
func (s *Service) CreditSummary(ctx context.Context, days int) (*CreditSummary, error) {
	var out CreditSummary
	if err := s.client.Get(ctx, "/api/credits/summary", params{}.num("days", days).values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreditRecords calls GET /api/credits/records
func (s *Service) CreditRecords(ctx context.Context, f CreditRecordFilter) ([]CreditRecord, error) {
	q := params{}.num("limit", f.Limit).str("source", f.Source)

	var out []CreditRecord
	if err := s.client.Get(ctx, "/api/credits/records", q.values(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreditDaily calls GET /api/credits/daily
func (s *Service) CreditDaily(ctx context.Context, f CreditRangeFilter) ([]CreditRow, error) {
	return s.creditRows(ctx, "/api/credits/daily", f)
}

// CreditBreakdown calls GET /api/credits/breakdown
func (s *Service) CreditBreakdown(ctx context.Context, f CreditRangeFilter) ([]CreditRow, error) {
	return s.creditRows(ctx, "/api/credits/breakdown", f)
}

func (s *Service) creditRows(ctx context.Context, path string, f CreditRangeFilter) ([]CreditRow, error) {
	q := params{}.num("days", f.Days).str("source", f.Source)

	var out []CreditRow
	if err := s.client.Get(ctx, path, q.values(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FetchLogs calls GET /api/logs/fetch
func (s *Service) FetchLogs(ctx context.Context, f FetchLogFilter) ([]FetchLogRecord, error) {
	q := params{}.num("limit", f.Limit).id("subscription_id", f.SubscriptionID)

	var out []FetchLogRecord
	if err := s.client.Get(ctx, "/api/logs/fetch", q.values(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListConfigs calls GET /api/config
func (s *Service) ListConfigs(ctx context.Context) ([]SystemConfig, error) {
	var out []SystemConfig
	if err := s.client.Get(ctx, "/api/config", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetConfig calls GET /api/config/{key}
func (s *Service) GetConfig(ctx context.Context, key string) (*SystemConfig, error) {
	if key == "" {
		return nil, fmt.Errorf("config key is required")
	}
	var out SystemConfig
	if err := s.client.Get(ctx, pathf("/api/config/%s", key), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateConfig calls PUT /api/config/{key}
func (s *Service) UpdateConfig(ctx context.Context, key string, req ConfigUpdate) (*ConfigUpdateResponse, error) {
	if key == "" {
		return nil, fmt.Errorf("config key is required")
	}
	if req.Value == nil {
		req.Value = map[string]any{}
	}
	var out ConfigUpdateResponse
	if err := s.client.Put(ctx, pathf("/api/config/%s", key), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteConfig calls DELETE /api/config/{key}
func (s *Service) DeleteConfig(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("config key is required")
	}
	return s.client.Delete(ctx, pathf("/api/config/%s", key), nil)
}
