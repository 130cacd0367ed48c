package mockbackend

import (
	"cmp"
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"github.com/devilmonastery/infohunter/internal/api"
	"github.com/devilmonastery/infohunter/internal/pkg/idgen"
)

// AddContent stores a content item, assigning its IDs and timestamps when unset
func (s *Server) AddContent(c api.Content) api.Content {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.addContentLocked(c)
}

func (s *Server) addContentLocked(c api.Content) *api.Content {
	c.ID = s.id()
	if c.ContentID == "" {
		c.ContentID = strconv.FormatInt(idgen.NextID(), 10)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.timestamp()
	}
	if c.PostedAt.IsZero() {
		c.PostedAt = c.CreatedAt
	}
	if c.AIAnalysis != nil && c.AIAnalyzedAt.IsZero() {
		c.AIAnalyzedAt = c.CreatedAt
	}
	stored := &c
	s.contents = append(s.contents, stored)
	return stored
}

// newestFirstLocked returns contents matching keep, most recently posted first
func (s *Server) newestFirstLocked(keep func(*api.Content) bool) []*api.Content {
	out := make([]*api.Content, 0, len(s.contents))
	for _, c := range s.contents {
		if keep(c) {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b *api.Content) int {
		if n := b.PostedAt.Compare(a.PostedAt.Time); n != 0 {
			return n
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}

func items(contents []*api.Content) []api.ContentItem {
	out := make([]api.ContentItem, len(contents))
	for i, c := range contents {
		out[i] = c.ContentItem
	}
	return out
}

func (s *Server) listContents(w http.ResponseWriter, r *http.Request) {
	page, size, ok := pagination(w, r)
	if !ok {
		return
	}
	subID, ok := queryInt(w, r, "subscription_id", 0)
	if !ok {
		return
	}
	source := api.Source(r.URL.Query().Get("source"))

	s.mu.Lock()
	matched := s.newestFirstLocked(func(c *api.Content) bool {
		if subID != 0 && (c.SubscriptionID == nil || *c.SubscriptionID != int64(subID)) {
			return false
		}
		return source == "" || c.Source == source
	})
	resp := api.ContentPage{
		Items:    items(paginate(matched, page, size)),
		Total:    len(matched),
		Page:     page,
		PageSize: size,
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) unanalyzedContents(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", defaultPageSize)
	if !ok {
		return
	}

	s.mu.Lock()
	matched := s.newestFirstLocked(func(c *api.Content) bool { return c.AIAnalysis == nil })
	matched = paginate(matched, 1, max(limit, 1))
	out := make([]api.Content, len(matched))
	for i, c := range matched {
		out[i] = *c
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

// userFeed serves every content item in global mode, and only items from the
// caller's subscriptions in custom mode
func (s *Server) userFeed(w http.ResponseWriter, r *http.Request) {
	page, size, ok := pagination(w, r)
	if !ok {
		return
	}
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread_only"))
	uid := currentUser(r)

	s.mu.Lock()
	mode := s.users[uid].Mode
	linked := s.userSubs[uid]
	read := s.reads[uid]
	matched := s.newestFirstLocked(func(c *api.Content) bool {
		if mode == api.ModeCustom && (c.SubscriptionID == nil || !linked[*c.SubscriptionID]) {
			return false
		}
		return !unreadOnly || !read[c.ID]
	})
	resp := api.FeedPage{
		Items:    items(paginate(matched, page, size)),
		Total:    len(matched),
		Page:     page,
		PageSize: size,
		Mode:     mode,
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) markRead(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	uid := currentUser(r)

	s.mu.Lock()
	found := slices.ContainsFunc(s.contents, func(c *api.Content) bool { return c.ID == id })
	if found {
		if s.reads[uid] == nil {
			s.reads[uid] = make(map[int64]bool)
		}
		s.reads[uid][id] = true
	}
	s.mu.Unlock()

	if !found {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("Content %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, api.StatusResponse{Status: "ok"})
}
