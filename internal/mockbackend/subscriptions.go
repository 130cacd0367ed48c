package mockbackend

import (
	"cmp"
	"net/http"
	"slices"
	"strings"

	"github.com/devilmonastery/infohunter/internal/api"
)

const defaultFetchInterval = 3600

func (s *Server) sortedSubscriptionsLocked() []*api.Subscription {
	subs := make([]*api.Subscription, 0, len(s.subscriptions))
	for _, sub := range s.subscriptions {
		subs = append(subs, sub)
	}
	slices.SortFunc(subs, func(a, b *api.Subscription) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return subs
}

// createSubscriptionLocked stores a new subscription. owner 0 means global.
func (s *Server) createSubscriptionLocked(req api.SubscriptionCreate, owner int64) *api.Subscription {
	now := s.timestamp()
	sub := &api.Subscription{
		ID:                  s.id(),
		Name:                req.Name,
		Source:              req.Source,
		Type:                req.Type,
		Target:              req.Target,
		Filters:             req.Filters,
		FetchInterval:       req.FetchInterval,
		AIAnalysisEnabled:   req.AIAnalysisEnabled == nil || *req.AIAnalysisEnabled,
		NotificationEnabled: req.NotificationEnabled == nil || *req.NotificationEnabled,
		Status:              api.StatusActive,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if sub.Filters == nil {
		sub.Filters = map[string]any{}
	}
	if sub.FetchInterval <= 0 {
		sub.FetchInterval = defaultFetchInterval
	}
	if sub.Name == "" {
		sub.Name = api.DefaultSubscriptionName(sub.Source, sub.Target)
	}
	s.subscriptions[sub.ID] = sub
	if owner != 0 {
		s.subOwner[sub.ID] = owner
	}
	return sub
}

func validateSubscription(w http.ResponseWriter, source api.Source, typ api.SubscriptionType, target string) bool {
	switch {
	case !source.Valid():
		writeValidation(w, "source", "source must be one of twitter, youtube, blog")
	case !typ.Valid():
		writeValidation(w, "type", "type must be one of keyword, author, topic, feed")
	case strings.TrimSpace(target) == "":
		writeValidation(w, "target", "target must not be empty")
	default:
		return true
	}
	return false
}

func (s *Server) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	source := api.Source(q.Get("source"))
	typ := api.SubscriptionType(q.Get("type"))
	status := api.SubscriptionStatus(q.Get("status"))

	s.mu.Lock()
	out := []api.Subscription{}
	for _, sub := range s.sortedSubscriptionsLocked() {
		if source != "" && sub.Source != source {
			continue
		}
		if typ != "" && sub.Type != typ {
			continue
		}
		if status != "" && sub.Status != status {
			continue
		}
		out = append(out, *sub)
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getSubscription(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	sub, ok := s.subscriptions[pathID(r)]
	var out api.Subscription
	if ok {
		out = *sub
	}
	s.mu.Unlock()

	if !ok {
		writeDetail(w, http.StatusNotFound, "Subscription not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createSubscription(w http.ResponseWriter, r *http.Request) {
	var req api.SubscriptionCreate
	if !decodeBody(w, r, &req) {
		return
	}
	if !validateSubscription(w, req.Source, req.Type, req.Target) {
		return
	}

	s.mu.Lock()
	out := *s.createSubscriptionLocked(req, 0)
	s.mu.Unlock()

	s.logger.Info("subscription created", "id", out.ID, "source", out.Source, "target", out.Target)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) updateSubscription(w http.ResponseWriter, r *http.Request) {
	var req api.SubscriptionUpdate
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Status != nil && !req.Status.Valid() {
		writeValidation(w, "status", "status must be one of active, paused, deleted")
		return
	}
	if req.Target != nil && strings.TrimSpace(*req.Target) == "" {
		writeValidation(w, "target", "target must not be empty")
		return
	}

	s.mu.Lock()
	sub, ok := s.subscriptions[pathID(r)]
	if ok {
		if req.Name != nil {
			sub.Name = *req.Name
		}
		if req.Target != nil {
			sub.Target = *req.Target
		}
		if req.Filters != nil {
			sub.Filters = req.Filters
		}
		if req.FetchInterval != nil {
			sub.FetchInterval = *req.FetchInterval
		}
		if req.AIAnalysisEnabled != nil {
			sub.AIAnalysisEnabled = *req.AIAnalysisEnabled
		}
		if req.NotificationEnabled != nil {
			sub.NotificationEnabled = *req.NotificationEnabled
		}
		if req.Status != nil {
			sub.Status = *req.Status
		}
		sub.UpdatedAt = s.timestamp()
	}
	var out api.Subscription
	if ok {
		out = *sub
	}
	s.mu.Unlock()

	if !ok {
		writeDetail(w, http.StatusNotFound, "Subscription not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deleteSubscription(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	s.mu.Lock()
	_, ok := s.subscriptions[id]
	if ok {
		s.deleteSubscriptionLocked(id)
	}
	s.mu.Unlock()

	if !ok {
		writeDetail(w, http.StatusNotFound, "Subscription not found")
		return
	}
	writeJSON(w, http.StatusOK, api.StatusResponse{Status: "deleted"})
}

func (s *Server) deleteSubscriptionLocked(id int64) {
	delete(s.subscriptions, id)
	delete(s.subOwner, id)
	for _, linked := range s.userSubs {
		delete(linked, id)
	}
}

// --- per-user subscriptions ---

func (s *Server) listUserSubscriptions(w http.ResponseWriter, r *http.Request) {
	uid := currentUser(r)

	s.mu.Lock()
	out := []api.UserSubscription{}
	for _, sub := range s.sortedSubscriptionsLocked() {
		if !s.userSubs[uid][sub.ID] {
			continue
		}
		owner, owned := s.subOwner[sub.ID]
		scope := api.ScopeGlobal
		if owned {
			scope = api.ScopeUser
		}
		out = append(out, api.UserSubscription{
			ID:            sub.ID,
			Name:          sub.Name,
			Source:        sub.Source,
			Type:          sub.Type,
			Target:        sub.Target,
			Status:        sub.Status,
			LastFetchedAt: sub.LastFetchedAt,
			Scope:         scope,
			IsMine:        owned && owner == uid,
		})
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

// createUserSubscription links the caller to a matching subscription when
// one exists, creating it otherwise
func (s *Server) createUserSubscription(w http.ResponseWriter, r *http.Request) {
	var req api.UserSubscriptionCreate
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Type == "" {
		req.Type = api.SubscriptionKeyword
	}
	if !validateSubscription(w, req.Source, req.Type, req.Target) {
		return
	}
	uid := currentUser(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userSubs[uid] == nil {
		s.userSubs[uid] = make(map[int64]bool)
	}

	for _, sub := range s.sortedSubscriptionsLocked() {
		if sub.Source != req.Source || sub.Type != req.Type || !strings.EqualFold(sub.Target, req.Target) {
			continue
		}
		if s.userSubs[uid][sub.ID] {
			writeJSON(w, http.StatusOK, api.UserSubscriptionCreated{
				Status: "exists", Message: "Already subscribed", SubscriptionID: sub.ID,
			})
			return
		}
		s.userSubs[uid][sub.ID] = true
		writeJSON(w, http.StatusOK, api.UserSubscriptionCreated{
			Status: "reused", Message: "Subscribed to existing subscription", SubscriptionID: sub.ID,
		})
		return
	}

	sub := s.createSubscriptionLocked(api.SubscriptionCreate{
		Name:   req.Name,
		Source: req.Source,
		Type:   req.Type,
		Target: req.Target,
	}, uid)
	s.userSubs[uid][sub.ID] = true
	writeJSON(w, http.StatusOK, api.UserSubscriptionCreated{
		Status: "created", Message: "Subscription created", SubscriptionID: sub.ID,
	})
}

func (s *Server) deleteUserSubscription(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	uid := currentUser(r)

	s.mu.Lock()
	linked := s.userSubs[uid][id]
	if linked {
		delete(s.userSubs[uid], id)
		if s.subOwner[id] == uid && !s.linkedByAnyoneLocked(id) {
			s.deleteSubscriptionLocked(id)
		}
	}
	s.mu.Unlock()

	if !linked {
		writeDetail(w, http.StatusNotFound, "Subscription not found")
		return
	}
	writeJSON(w, http.StatusOK, api.StatusResponse{Status: "deleted"})
}

func (s *Server) linkedByAnyoneLocked(id int64) bool {
	for _, linked := range s.userSubs {
		if linked[id] {
			return true
		}
	}
	return false
}
