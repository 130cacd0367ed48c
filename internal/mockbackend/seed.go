package mockbackend

import (
	"github.com/devilmonastery/infohunter/internal/api"
)

var demoSubscriptions = []api.SubscriptionCreate{
	{Source: api.SourceTwitter, Type: api.SubscriptionKeyword, Target: "golang"},
	{Source: api.SourceTwitter, Type: api.SubscriptionAuthor, Target: "@golang"},
	{Source: api.SourceYouTube, Type: api.SubscriptionKeyword, Target: "gophercon"},
	{Source: api.SourceBlog, Type: api.SubscriptionFeed, Target: "https://go.dev/blog/feed.atom"},
}

// SeedDemoData fills the server with global subscriptions, collected content,
// credit records, fetch logs and system config. rounds is the number of
// simulated collection runs per subscription.
func (s *Server) SeedDemoData(rounds int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var subs []*api.Subscription
	for _, req := range demoSubscriptions {
		subs = append(subs, s.createSubscriptionLocked(req, 0))
	}
	for range rounds {
		for _, sub := range subs {
			s.collectLocked(sub, api.ContextSubscription)
		}
	}

	s.setConfigLocked("notify_mode", map[string]any{"mode": string(api.NotifyIncremental)}, "How new content is pushed")
	s.setConfigLocked("explore", map[string]any{"enabled": true, "daily_credit_limit": 100}, "Trend exploration settings")

	s.logger.Info("seeded demo data",
		"subscriptions", len(subs),
		"contents", len(s.contents),
		"credits", len(s.credits))
}
