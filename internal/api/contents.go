package api

import "context"

// ListContents calls GET /api/contents
func (s *Service) ListContents(ctx context.Context, f ContentFilter) (*ContentPage, error) {
	q := params{}.
		id("subscription_id", f.SubscriptionID).
		str("source", string(f.Source)).
		num("page", f.Page).
		num("page_size", f.PageSize)

	var out ContentPage
	if err := s.client.Get(ctx, "/api/contents", q.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListUnanalyzedContents calls GET /api/contents/unanalyzed
func (s *Service) ListUnanalyzedContents(ctx context.Context, limit int) ([]Content, error) {
	var out []Content
	if err := s.client.Get(ctx, "/api/contents/unanalyzed", params{}.num("limit", limit).values(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UserFeed calls GET /api/user/feed
func (s *Service) UserFeed(ctx context.Context, f FeedFilter) (*FeedPage, error) {
	q := params{}.
		num("page", f.Page).
		num("page_size", f.PageSize).
		flag("unread_only", f.UnreadOnly)

	var out FeedPage
	if err := s.client.Get(ctx, "/api/user/feed", q.values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkFeedRead calls POST /api/user/feed/{id}/read
func (s *Service) MarkFeedRead(ctx context.Context, contentID int64) error {
	return s.client.Post(ctx, pathf("/api/user/feed/%d/read", contentID), nil, nil)
}
