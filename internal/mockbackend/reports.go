package mockbackend

import (
	"cmp"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/devilmonastery/infohunter/internal/api"
	"github.com/devilmonastery/infohunter/internal/pkg/format"
	"github.com/devilmonastery/infohunter/internal/pkg/textutil"
	"github.com/devilmonastery/infohunter/internal/pkg/timeutil"
)

const (
	defaultCreditDays = 7
	defaultLogLimit   = 50
	// creditsPerFetch is what one simulated collection run costs per source
	creditsPerFetch = 1.5
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := api.HealthResponse{
		Status:        "healthy",
		Subscriptions: len(s.subscriptions),
		Contents:      len(s.contents),
	}
	for _, c := range s.contents {
		switch c.Source {
		case api.SourceTwitter:
			resp.TwitterContents++
		case api.SourceYouTube:
			resp.YouTubeContents++
		case api.SourceBlog:
			resp.BlogContents++
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	now := s.now()

	s.mu.Lock()
	resp := api.StatsResponse{
		Subscriptions: api.SubscriptionStats{BySource: map[string]int{}},
		Contents:      api.ContentStats{BySource: map[string]int{}},
		Modules: map[string]any{
			"twitter": true,
			"youtube": true,
			"blog":    true,
			"push":    true,
		},
		Explore: map[string]any{"enabled": true},
		Schedule: map[string]any{
			"smart_collect": "hourly",
			"daily_report":  "09:00",
			"timezone":      s.timezone(),
		},
	}
	for _, sub := range s.subscriptions {
		resp.Subscriptions.Total++
		resp.Subscriptions.BySource[string(sub.Source)]++
		switch sub.Status {
		case api.StatusActive:
			resp.Subscriptions.Active++
		case api.StatusPaused:
			resp.Subscriptions.Paused++
		}
	}
	for _, c := range s.contents {
		resp.Contents.Total++
		resp.Contents.BySource[string(c.Source)]++
		if c.AIAnalysis != nil {
			resp.Contents.Analyzed++
		} else {
			resp.Contents.Unanalyzed++
		}
		if now.Sub(c.CreatedAt.Time) < 24*time.Hour {
			resp.Contents.Recent24h++
		}
		if c.Notified {
			resp.Notifications.TotalNotified++
		} else {
			resp.Notifications.Pending++
		}
	}
	today := timeutil.StartOfDay(now, s.timezone())
	var spentToday float64
	for _, rec := range s.credits {
		if rec.Source == string(api.SourceTwitter) && !rec.CreatedAt.Before(today) {
			spentToday += rec.Credits
		}
	}
	s.mu.Unlock()

	resp.TwitterCredits = map[string]any{"today": spentToday}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) timezone() string {
	if s.cfg.Timezone == "" {
		return "UTC"
	}
	return s.cfg.Timezone
}

// creditsSinceLocked returns credit records at or after since, optionally
// restricted to one source
func (s *Server) creditsSinceLocked(since time.Time, source string) []api.CreditRecord {
	var out []api.CreditRecord
	for _, rec := range s.credits {
		if rec.CreatedAt.Before(since) {
			continue
		}
		if source != "" && rec.Source != source {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func (s *Server) creditSummary(w http.ResponseWriter, r *http.Request) {
	days, ok := queryInt(w, r, "days", defaultCreditDays)
	if !ok {
		return
	}
	days = max(days, 1)
	since := timeutil.DaysBack(s.now(), days, s.timezone())

	s.mu.Lock()
	records := s.creditsSinceLocked(since, "")
	s.mu.Unlock()

	resp := api.CreditSummary{
		PeriodDays:  days,
		BySource:    map[string]float64{},
		ByOperation: map[string]float64{},
		ByContext:   map[string]float64{},
	}
	for _, rec := range records {
		resp.TotalCredits += rec.Credits
		resp.BySource[rec.Source] += rec.Credits
		resp.ByOperation[rec.Operation] += rec.Credits
		resp.ByContext[rec.Context] += rec.Credits
	}
	resp.DailyAverage = resp.TotalCredits / float64(days)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) creditRecords(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", defaultLogLimit)
	if !ok {
		return
	}
	source := r.URL.Query().Get("source")

	s.mu.Lock()
	records := s.creditsSinceLocked(time.Time{}, source)
	s.mu.Unlock()

	slices.SortStableFunc(records, func(a, b api.CreditRecord) int {
		return cmp.Compare(b.ID, a.ID)
	})
	writeJSON(w, http.StatusOK, paginate(nonNil(records), 1, max(limit, 1)))
}

// creditDaily totals credits per local date, oldest first
func (s *Server) creditDaily(w http.ResponseWriter, r *http.Request) {
	days, ok := queryInt(w, r, "days", defaultCreditDays)
	if !ok {
		return
	}
	days = max(days, 1)
	tz := s.timezone()
	now := s.now()
	since := timeutil.DaysBack(now, days, tz)

	s.mu.Lock()
	records := s.creditsSinceLocked(since, r.URL.Query().Get("source"))
	s.mu.Unlock()

	type bucket struct {
		credits float64
		count   int
	}
	buckets := make(map[string]*bucket)
	for _, rec := range records {
		date := timeutil.LocalDate(rec.CreatedAt.Time, tz)
		b := buckets[date]
		if b == nil {
			b = &bucket{}
			buckets[date] = b
		}
		b.credits += rec.Credits
		b.count++
	}

	rows := []api.CreditRow{}
	for day := since; !day.After(now); day = day.AddDate(0, 0, 1) {
		date := timeutil.LocalDate(day, tz)
		row := api.CreditRow{"date": date, "credits": 0.0, "count": 0}
		if b := buckets[date]; b != nil {
			row["credits"] = b.credits
			row["count"] = b.count
		}
		rows = append(rows, row)
	}
	writeJSON(w, http.StatusOK, rows)
}

// creditBreakdown totals credits per source, operation and context, largest first
func (s *Server) creditBreakdown(w http.ResponseWriter, r *http.Request) {
	days, ok := queryInt(w, r, "days", defaultCreditDays)
	if !ok {
		return
	}
	since := timeutil.DaysBack(s.now(), max(days, 1), s.timezone())

	s.mu.Lock()
	records := s.creditsSinceLocked(since, r.URL.Query().Get("source"))
	s.mu.Unlock()

	type group struct {
		source, operation, context string
	}
	totals := make(map[group]float64)
	counts := make(map[group]int)
	for _, rec := range records {
		g := group{rec.Source, rec.Operation, rec.Context}
		totals[g] += rec.Credits
		counts[g]++
	}

	groups := make([]group, 0, len(totals))
	for g := range totals {
		groups = append(groups, g)
	}
	slices.SortFunc(groups, func(a, b group) int {
		if n := cmp.Compare(totals[b], totals[a]); n != 0 {
			return n
		}
		return strings.Compare(a.source+a.operation+a.context, b.source+b.operation+b.context)
	})

	rows := make([]api.CreditRow, len(groups))
	for i, g := range groups {
		rows[i] = api.CreditRow{
			"source":    g.source,
			"operation": g.operation,
			"context":   g.context,
			"credits":   totals[g],
			"count":     counts[g],
		}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) listFetchLogs(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", defaultLogLimit)
	if !ok {
		return
	}
	subID, ok := queryInt(w, r, "subscription_id", 0)
	if !ok {
		return
	}

	s.mu.Lock()
	logs := []api.FetchLogRecord{}
	for _, l := range s.fetchLogs {
		if subID != 0 && (l.SubscriptionID == nil || *l.SubscriptionID != int64(subID)) {
			continue
		}
		logs = append(logs, l)
	}
	s.mu.Unlock()

	slices.SortStableFunc(logs, func(a, b api.FetchLogRecord) int {
		return cmp.Compare(b.ID, a.ID)
	})
	writeJSON(w, http.StatusOK, paginate(logs, 1, max(limit, 1)))
}

// smartCollect simulates a collection run: every active subscription yields
// one analyzed content item, a fetch log and a credit charge
func (s *Server) smartCollect(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	collected := 0
	for _, sub := range s.sortedSubscriptionsLocked() {
		if sub.Status != api.StatusActive {
			continue
		}
		s.collectLocked(sub, api.ContextSubscription)
		collected++
	}
	s.mu.Unlock()

	s.logger.Info("smart collect finished", "subscriptions", collected)
	writeJSON(w, http.StatusOK, api.TriggerResponse{
		Status:  "ok",
		Message: fmt.Sprintf("Collected from %d subscriptions", collected),
		Results: map[string]any{"subscriptions": collected, "new_items": collected},
	})
}

func (s *Server) collectLocked(sub *api.Subscription, ctx api.CreditContext) *api.Content {
	started := s.timestamp()
	subID := sub.ID

	c := s.addContentLocked(syntheticContent(sub, len(s.contents)+1))
	sub.LastFetchedAt = started

	duration := 0.8
	s.fetchLogs = append(s.fetchLogs, api.FetchLogRecord{
		ID:              s.id(),
		SubscriptionID:  &subID,
		Source:          string(sub.Source),
		Status:          string(api.FetchSuccess),
		TotalFetched:    1,
		NewItems:        1,
		StartedAt:       started,
		DurationSeconds: &duration,
	})

	op := api.CreditSubscription
	if sub.Type == api.SubscriptionKeyword {
		op = api.CreditKeywordSearch
	}
	s.chargeLocked(sub.Source, op, ctx, creditsPerFetch, sub.Target)
	return c
}

func (s *Server) chargeLocked(source api.Source, op api.CreditOperation, ctx api.CreditContext, credits float64, detail string) {
	rec := api.CreditRecord{
		ID:        s.id(),
		Source:    string(source),
		Operation: string(op),
		Credits:   credits,
		Context:   string(ctx),
		CreatedAt: s.timestamp(),
	}
	if detail != "" {
		rec.Detail = &detail
	}
	s.credits = append(s.credits, rec)
}

func syntheticContent(sub *api.Subscription, n int) api.Content {
	subID := sub.ID
	title := fmt.Sprintf("%s update #%d", sub.Target, n)
	body := fmt.Sprintf("Latest on #%s from the %s feed.", strings.ReplaceAll(sub.Target, " ", ""), format.SourceLabel(string(sub.Source)))
	author := strings.ToLower(strings.ReplaceAll(sub.Target, " ", "_"))
	link := fmt.Sprintf("https://example.com/%s/%d", sub.Source, n)
	importance := float64(n%10) / 10
	return api.Content{
		ContentItem: api.ContentItem{
			Source:  sub.Source,
			Author:  &author,
			Title:   &title,
			Content: &body,
			URL:     &link,
			AIAnalysis: &api.AIAnalysis{
				Summary:    fmt.Sprintf("New activity for %s.", sub.Target),
				KeyPoints:  []string{sub.Target},
				Sentiment:  "neutral",
				Importance: &importance,
				Topics:     textutil.ExtractHashtags(body),
			},
		},
		SubscriptionID: &subID,
	}
}

// dailyReport marks every pending content item as notified
func (s *Server) dailyReport(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	sent := 0
	for _, c := range s.contents {
		if !c.Notified {
			c.Notified = true
			sent++
		}
	}
	s.mu.Unlock()

	s.logger.Info("daily report sent", "contents", sent)
	writeJSON(w, http.StatusOK, api.TriggerResponse{
		Status:  "ok",
		Message: "Daily report sent",
		Results: map[string]any{"contents": sent},
	})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
