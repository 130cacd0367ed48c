package mockbackend

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/devilmonastery/infohunter/internal/api"
	"github.com/devilmonastery/infohunter/internal/pkg/textutil"
	"github.com/devilmonastery/infohunter/internal/pkg/urlutil"
)

const authorRecentLimit = 5

// sourceForHost maps a link's host to the content source that would fetch it
func sourceForHost(host string) api.Source {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	switch host {
	case "x.com", "twitter.com", "mobile.twitter.com":
		return api.SourceTwitter
	case "youtube.com", "m.youtube.com", "youtu.be":
		return api.SourceYouTube
	default:
		return api.SourceBlog
	}
}

func (s *Server) analyzeURL(w http.ResponseWriter, r *http.Request) {
	var req api.AnalyzeURLRequest
	if !decodeBody(w, r, &req) {
		return
	}
	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		writeValidation(w, "url", "url must be an absolute http(s) URL")
		return
	}
	source := sourceForHost(u.Hostname())
	topics := textutil.URLTopics(req.URL)

	s.mu.Lock()
	s.chargeLocked(source, api.CreditAdvancedSearch, api.ContextManual, creditsPerFetch, req.URL)
	s.mu.Unlock()

	title := u.Hostname() + u.EscapedPath()
	writeJSON(w, http.StatusOK, api.AnalyzeURLResponse{
		URL:    req.URL,
		Source: string(source),
		Content: map[string]any{
			"title": title,
			"url":   req.URL,
		},
		Analysis: map[string]any{
			"summary":    fmt.Sprintf("Synthetic analysis of %s.", title),
			"key_points": []string{"Host: " + u.Hostname()},
			"topics":     topics,
			"hashtags":   textutil.FormatHashtags(topics),
			"sentiment":  "neutral",
			"importance": 0.5,
		},
	})
}

func (s *Server) analyzeAuthor(w http.ResponseWriter, r *http.Request) {
	var req api.AnalyzeAuthorRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Source == "" {
		req.Source = api.SourceTwitter
	}
	if strings.TrimSpace(req.AuthorID) == "" {
		writeValidation(w, "author_id", "author_id must not be empty")
		return
	}
	if !req.Source.Valid() {
		writeValidation(w, "source", "source must be one of twitter, youtube, blog")
		return
	}
	handle := strings.TrimPrefix(req.AuthorID, "@")

	s.mu.Lock()
	matched := s.newestFirstLocked(func(c *api.Content) bool {
		if c.Source != req.Source {
			return false
		}
		return (c.Author != nil && strings.EqualFold(*c.Author, handle)) ||
			(c.AuthorID != nil && strings.EqualFold(*c.AuthorID, req.AuthorID))
	})
	recent := make([]map[string]any, 0, authorRecentLimit)
	for _, c := range paginate(matched, 1, authorRecentLimit) {
		recent = append(recent, map[string]any{
			"id":        c.ID,
			"title":     c.DisplayTitle(),
			"url":       c.URL,
			"posted_at": c.PostedAt,
		})
	}
	s.chargeLocked(req.Source, api.CreditAuthorSearch, api.ContextManual, creditsPerFetch, req.AuthorID)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, api.AnalyzeAuthorResponse{
		AuthorID: req.AuthorID,
		Source:   string(req.Source),
		Profile: map[string]any{
			"username":    handle,
			"profile_url": urlutil.AuthorProfileURL(string(req.Source), req.AuthorID),
		},
		RecentContents: recent,
		Analysis: map[string]any{
			"summary":       fmt.Sprintf("%s has %d recent items.", handle, len(matched)),
			"content_count": len(matched),
		},
	})
}
