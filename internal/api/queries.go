package api

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/devilmonastery/infohunter/internal/client"
	"github.com/devilmonastery/infohunter/internal/query"
)

// Query key roots
var (
	KeyHealth            = query.Key{"health"}
	KeyStats             = query.Key{"stats"}
	KeyCredits           = query.Key{"credits"}
	KeyLogs              = query.Key{"logs"}
	KeySubscriptions     = query.Key{"subscriptions"}
	KeyContents          = query.Key{"contents"}
	KeyMe                = query.Key{"auth", "me"}
	KeyUserSubscriptions = query.Key{"user", "subscriptions"}
	KeyUserFeed          = query.Key{"user", "feed"}
)

const (
	defaultRetries  = 3
	meStaleTime     = 5 * time.Minute
	mySubsStaleTime = 30 * time.Second
	feedStaleTime   = 60 * time.Second
)

// Queries is the cached read layer over Service. Mutations made through it
// invalidate the queries they affect.
type Queries struct {
	svc   *Service
	cache *query.Cache
}

// NewQueries wraps svc with cache
func NewQueries(svc *Service, cache *query.Cache) *Queries {
	return &Queries{svc: svc, cache: cache}
}

// Service returns the uncached endpoint layer
func (q *Queries) Service() *Service {
	return q.svc
}

// Cache returns the underlying cache, for manual invalidation
func (q *Queries) Cache() *query.Cache {
	return q.cache
}

// retryable is false for client errors, which will fail the same way again
func retryable(err error) bool {
	code := client.StatusCode(err)
	return code < 400 || code >= 500
}

func readOptions(stale time.Duration) query.Options {
	return query.Options{StaleTime: stale, Retry: defaultRetries, RetryIf: retryable}
}

func sub(root query.Key, parts ...string) query.Key {
	k := make(query.Key, 0, len(root)+len(parts))
	k = append(k, root...)
	return append(k, parts...)
}

func encode(p params) string {
	return url.Values(p).Encode()
}

// Health is always refetched
func (q *Queries) Health(ctx context.Context) (*HealthResponse, error) {
	return query.Fetch(ctx, q.cache, KeyHealth, readOptions(0), q.svc.Health)
}

// Stats returns system statistics, always refetched
func (q *Queries) Stats(ctx context.Context) (*StatsResponse, error) {
	return query.Fetch(ctx, q.cache, KeyStats, readOptions(0), q.svc.Stats)
}

// CreditSummary returns credit totals for the last days days
func (q *Queries) CreditSummary(ctx context.Context, days int) (*CreditSummary, error) {
	key := sub(KeyCredits, "summary", strconv.Itoa(days))
	return query.Fetch(ctx, q.cache, key, readOptions(0), func(ctx context.Context) (*CreditSummary, error) {
		return q.svc.CreditSummary(ctx, days)
	})
}

// CreditRecords lists individual credit charges
func (q *Queries) CreditRecords(ctx context.Context, f CreditRecordFilter) ([]CreditRecord, error) {
	key := sub(KeyCredits, "records", encode(params{}.num("limit", f.Limit).str("source", f.Source)))
	return query.Fetch(ctx, q.cache, key, readOptions(0), func(ctx context.Context) ([]CreditRecord, error) {
		return q.svc.CreditRecords(ctx, f)
	})
}

// FetchLogs lists collection runs, newest first
func (q *Queries) FetchLogs(ctx context.Context, f FetchLogFilter) ([]FetchLogRecord, error) {
	key := sub(KeyLogs, "list", encode(params{}.num("limit", f.Limit).id("subscription_id", f.SubscriptionID)))
	return query.Fetch(ctx, q.cache, key, readOptions(0), func(ctx context.Context) ([]FetchLogRecord, error) {
		return q.svc.FetchLogs(ctx, f)
	})
}

// Subscriptions lists subscriptions matching f
func (q *Queries) Subscriptions(ctx context.Context, f SubscriptionFilter) ([]Subscription, error) {
	p := params{}.str("source", string(f.Source)).str("type", string(f.Type)).str("status", string(f.Status))
	key := sub(KeySubscriptions, "list", encode(p))
	return query.Fetch(ctx, q.cache, key, readOptions(0), func(ctx context.Context) ([]Subscription, error) {
		return q.svc.ListSubscriptions(ctx, f)
	})
}

// Subscription returns one subscription by ID
func (q *Queries) Subscription(ctx context.Context, id int64) (*Subscription, error) {
	key := sub(KeySubscriptions, "detail", strconv.FormatInt(id, 10))
	return query.Fetch(ctx, q.cache, key, readOptions(0), func(ctx context.Context) (*Subscription, error) {
		return q.svc.GetSubscription(ctx, id)
	})
}

// Contents returns one page of collected content
func (q *Queries) Contents(ctx context.Context, f ContentFilter) (*ContentPage, error) {
	p := params{}.id("subscription_id", f.SubscriptionID).str("source", string(f.Source)).num("page", f.Page).num("page_size", f.PageSize)
	key := sub(KeyContents, "list", encode(p))
	return query.Fetch(ctx, q.cache, key, readOptions(0), func(ctx context.Context) (*ContentPage, error) {
		return q.svc.ListContents(ctx, f)
	})
}

// Me is never retried: a failure here means the session is gone
func (q *Queries) Me(ctx context.Context) (*User, error) {
	return query.Fetch(ctx, q.cache, KeyMe, query.Options{StaleTime: meStaleTime}, q.svc.Me)
}

// UserSubscriptions lists the current user's subscriptions, fresh for 30s
func (q *Queries) UserSubscriptions(ctx context.Context) ([]UserSubscription, error) {
	return query.Fetch(ctx, q.cache, KeyUserSubscriptions, readOptions(mySubsStaleTime), q.svc.ListUserSubscriptions)
}

// UserFeed returns one page of the current user's feed, fresh for 60s
func (q *Queries) UserFeed(ctx context.Context, f FeedFilter) (*FeedPage, error) {
	p := params{}.num("page", f.Page).num("page_size", f.PageSize).flag("unread_only", f.UnreadOnly)
	key := sub(KeyUserFeed, encode(p))
	return query.Fetch(ctx, q.cache, key, readOptions(feedStaleTime), func(ctx context.Context) (*FeedPage, error) {
		return q.svc.UserFeed(ctx, f)
	})
}

// --- Mutations ---

func (q *Queries) CreateSubscription(ctx context.Context, req SubscriptionCreate) (*Subscription, error) {
	out, err := q.svc.CreateSubscription(ctx, req)
	if err == nil {
		q.cache.Invalidate(KeySubscriptions)
	}
	return out, err
}

func (q *Queries) UpdateSubscription(ctx context.Context, id int64, req SubscriptionUpdate) (*Subscription, error) {
	out, err := q.svc.UpdateSubscription(ctx, id, req)
	if err == nil {
		q.cache.Invalidate(KeySubscriptions)
	}
	return out, err
}

func (q *Queries) DeleteSubscription(ctx context.Context, id int64) error {
	err := q.svc.DeleteSubscription(ctx, id)
	if err == nil {
		q.cache.Invalidate(KeySubscriptions)
	}
	return err
}

func (q *Queries) CreateUserSubscription(ctx context.Context, req UserSubscriptionCreate) (*UserSubscriptionCreated, error) {
	out, err := q.svc.CreateUserSubscription(ctx, req)
	if err == nil {
		q.cache.Invalidate(KeyUserSubscriptions)
		q.cache.Invalidate(KeyUserFeed)
	}
	return out, err
}

func (q *Queries) DeleteUserSubscription(ctx context.Context, id int64) error {
	err := q.svc.DeleteUserSubscription(ctx, id)
	if err == nil {
		q.cache.Invalidate(KeyUserSubscriptions)
		q.cache.Invalidate(KeyUserFeed)
	}
	return err
}

// UpdateUserMode switches feed mode, which changes the user, their
// subscription list and their feed
func (q *Queries) UpdateUserMode(ctx context.Context, mode UserMode) (*ModeResponse, error) {
	out, err := q.svc.UpdateUserMode(ctx, mode)
	if err == nil {
		q.cache.Invalidate(KeyMe)
		q.cache.Invalidate(KeyUserSubscriptions)
		q.cache.Invalidate(KeyUserFeed)
	}
	return out, err
}

func (q *Queries) MarkFeedRead(ctx context.Context, contentID int64) error {
	err := q.svc.MarkFeedRead(ctx, contentID)
	if err == nil {
		q.cache.Invalidate(KeyUserFeed)
	}
	return err
}

// Login signs in and seeds the current user
func (q *Queries) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	out, err := q.svc.Login(ctx, req)
	if err != nil {
		return nil, err
	}
	q.seed(out)
	return out, nil
}

// Register creates an account, signs in and seeds the current user
func (q *Queries) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	out, err := q.svc.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	q.seed(out)
	return out, nil
}

func (q *Queries) seed(tok *TokenResponse) {
	q.cache.Clear()
	user := tok.User
	q.cache.Set(KeyMe, &user)
}

// Logout clears the session and every cached query
func (q *Queries) Logout() {
	q.svc.Logout()
	q.cache.Clear()
}

// IsSessionExpired reports whether err means the user has to sign in again
func IsSessionExpired(err error) bool {
	return client.IsUnauthorized(err)
}
