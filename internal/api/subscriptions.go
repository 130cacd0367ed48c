package api

import (
	"context"
	"fmt"
)

// ListSubscriptions calls GET /api/subscriptions
func (s *Service) ListSubscriptions(ctx context.Context, f SubscriptionFilter) ([]Subscription, error) {
	q := params{}.
		str("source", string(f.Source)).
		str("type", string(f.Type)).
		str("status", string(f.Status))

	var out []Subscription
	if err := s.client.Get(ctx, "/api/subscriptions", q.values(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSubscription calls GET /api/subscriptions/{id}
func (s *Service) GetSubscription(ctx context.Context, id int64) (*Subscription, error) {
	var out Subscription
	if err := s.client.Get(ctx, pathf("/api/subscriptions/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateSubscription calls POST /api/subscriptions. An empty name defaults to "<Source> - <target>".
func (s *Service) CreateSubscription(ctx context.Context, req SubscriptionCreate) (*Subscription, error) {
	if !req.Source.Valid() {
		return nil, fmt.Errorf("invalid source %q", req.Source)
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("invalid subscription type %q", req.Type)
	}
	if req.Target == "" {
		return nil, fmt.Errorf("target is required")
	}
	if req.Name == "" {
		req.Name = DefaultSubscriptionName(req.Source, req.Target)
	}

	var out Subscription
	if err := s.client.Post(ctx, "/api/subscriptions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSubscription calls PUT /api/subscriptions/{id}
func (s *Service) UpdateSubscription(ctx context.Context, id int64, req SubscriptionUpdate) (*Subscription, error) {
	var out Subscription
	if err := s.client.Put(ctx, pathf("/api/subscriptions/%d", id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetSubscriptionStatus pauses or resumes a subscription
func (s *Service) SetSubscriptionStatus(ctx context.Context, id int64, status SubscriptionStatus) (*Subscription, error) {
	if status != StatusActive && status != StatusPaused {
		return nil, fmt.Errorf("status must be active or paused, got %q", status)
	}
	return s.UpdateSubscription(ctx, id, SubscriptionUpdate{Status: &status})
}

// DeleteSubscription calls DELETE /api/subscriptions/{id}
func (s *Service) DeleteSubscription(ctx context.Context, id int64) error {
	return s.client.Delete(ctx, pathf("/api/subscriptions/%d", id), nil)
}

// ListUserSubscriptions calls GET /api/user/subscriptions
func (s *Service) ListUserSubscriptions(ctx context.Context) ([]UserSubscription, error) {
	var out []UserSubscription
	if err := s.client.Get(ctx, "/api/user/subscriptions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateUserSubscription calls POST /api/user/subscriptions. The backend may
// reuse an existing global subscription instead of creating a new one.
func (s *Service) CreateUserSubscription(ctx context.Context, req UserSubscriptionCreate) (*UserSubscriptionCreated, error) {
	if !req.Source.Valid() {
		return nil, fmt.Errorf("invalid source %q", req.Source)
	}
	if req.Target == "" {
		return nil, fmt.Errorf("target is required")
	}
	if req.Type == "" {
		req.Type = SubscriptionKeyword
	}
	if req.Name == "" {
		req.Name = DefaultSubscriptionName(req.Source, req.Target)
	}

	var out UserSubscriptionCreated
	if err := s.client.Post(ctx, "/api/user/subscriptions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteUserSubscription calls DELETE /api/user/subscriptions/{id}
func (s *Service) DeleteUserSubscription(ctx context.Context, id int64) error {
	return s.client.Delete(ctx, pathf("/api/user/subscriptions/%d", id), nil)
}
