package api

import (
	"context"
	"fmt"
)

// RegisterDevice calls POST /api/devices/register. DeviceID and AppVersion
// are filled in when empty.
func (s *Service) RegisterDevice(ctx context.Context, req DeviceRegistration) (*DeviceRegistered, error) {
	if !req.Platform.Valid() {
		return nil, fmt.Errorf("invalid platform %q", req.Platform)
	}
	if req.PushToken == "" {
		return nil, fmt.Errorf("push token is required")
	}
	if req.DeviceID == "" {
		req.DeviceID = DefaultDeviceID(req.Platform, req.PushToken)
	}
	if req.AppVersion == "" {
		req.AppVersion = DefaultAppVersion
	}

	var out DeviceRegistered
	if err := s.client.Post(ctx, "/api/devices/register", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UnregisterDevice calls DELETE /api/devices/{id}
func (s *Service) UnregisterDevice(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return fmt.Errorf("device id is required")
	}
	return s.client.Delete(ctx, pathf("/api/devices/%s", deviceID), nil)
}

// ListDevices calls GET /api/devices
func (s *Service) ListDevices(ctx context.Context) (*DeviceList, error) {
	var out DeviceList
	if err := s.client.Get(ctx, "/api/devices", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TestPush calls POST /api/push/test
func (s *Service) TestPush(ctx context.Context, req PushTestRequest) (*PushTestResponse, error) {
	var out PushTestResponse
	if err := s.client.Post(ctx, "/api/push/test", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AnalyzeURL calls POST /api/analyze/url
func (s *Service) AnalyzeURL(ctx context.Context, target string) (*AnalyzeURLResponse, error) {
	if target == "" {
		return nil, fmt.Errorf("url is required")
	}

	var out AnalyzeURLResponse
	if err := s.client.Post(ctx, "/api/analyze/url", AnalyzeURLRequest{URL: target}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AnalyzeAuthor calls POST /api/analyze/author. Source defaults to twitter.
func (s *Service) AnalyzeAuthor(ctx context.Context, req AnalyzeAuthorRequest) (*AnalyzeAuthorResponse, error) {
	if req.AuthorID == "" {
		return nil, fmt.Errorf("author id is required")
	}
	if req.Source == "" {
		req.Source = SourceTwitter
	}

	var out AnalyzeAuthorResponse
	if err := s.client.Post(ctx, "/api/analyze/author", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
