// Package mockbackend is an in-memory InfoHunter backend for local development
// and end-to-end tests. It speaks the same JSON API as the real service,
// including bearer-token auth with short-lived access tokens and refresh tokens.
package mockbackend

import (
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"github.com/devilmonastery/infohunter/internal/api"
	"github.com/devilmonastery/infohunter/internal/auth"
)

const (
	defaultAccessTTL = 15 * time.Minute
	defaultPageSize  = 20
	maxPageSize      = 100
)

// Config configures a Server
type Config struct {
	// APIKey, when set, must be sent as X-API-Key on every request
	APIKey string
	// JWTSecret signs access tokens
	JWTSecret string
	// AccessTTL is the lifetime of access tokens
	AccessTTL time.Duration
	// BcryptCost is the password hashing cost; 0 uses bcrypt.DefaultCost
	BcryptCost int
	// Timezone buckets daily credit reports
	Timezone string
	Logger   *slog.Logger
	// Now replaces time.Now, for tests
	Now func() time.Time
}

// Metrics are request counters exposed for tests
type Metrics struct {
	Requests        int64
	Unauthorized    int64
	Refreshes       int64
	FailedRefreshes int64
	// Routes counts requests by "METHOD /route/{template}"
	Routes map[string]int64
}

type user struct {
	ID        int64
	Username  string
	Hash      []byte
	Role      api.Role
	Mode      api.UserMode
	CreatedAt time.Time
}

func (u *user) toAPI() api.User {
	return api.User{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		Mode:      u.Mode,
		CreatedAt: api.Time{Time: u.CreatedAt},
	}
}

type device struct {
	api.Device
	AppVersion string
}

// Server is the in-memory backend. It is an http.Handler.
type Server struct {
	cfg    Config
	logger *slog.Logger
	jwt    *auth.JWTManager
	router *mux.Router
	now    func() time.Time

	mu            sync.Mutex
	nextID        int64
	users         map[int64]*user
	usersByName   map[string]*user
	refreshTokens map[string]int64
	subscriptions map[int64]*api.Subscription
	// subOwner maps a subscription to the user who created it; absent means global
	subOwner  map[int64]int64
	userSubs  map[int64]map[int64]bool
	contents  []*api.Content
	reads     map[int64]map[int64]bool
	devices   map[int64]map[string]*device
	configs   map[string]*api.SystemConfig
	credits   []api.CreditRecord
	fetchLogs []api.FetchLogRecord

	requests        atomic.Int64
	unauthorized    atomic.Int64
	refreshes       atomic.Int64
	failedRefreshes atomic.Int64
	routesMu        sync.Mutex
	routes          map[string]int64
}

// New creates an empty server
func New(cfg Config) *Server {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "infohunter-dev-secret"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:           cfg,
		logger:        logger.With("component", "mockbackend"),
		jwt:           auth.NewJWTManager(cfg.JWTSecret, cfg.AccessTTL).WithClock(cfg.Now),
		now:           cfg.Now,
		users:         make(map[int64]*user),
		usersByName:   make(map[string]*user),
		refreshTokens: make(map[string]int64),
		subscriptions: make(map[int64]*api.Subscription),
		subOwner:      make(map[int64]int64),
		userSubs:      make(map[int64]map[int64]bool),
		reads:         make(map[int64]map[int64]bool),
		devices:       make(map[int64]map[string]*device),
		configs:       make(map[string]*api.SystemConfig),
		routes:        make(map[string]int64),
	}
	s.router = s.newRouter()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Metrics returns a snapshot of the request counters
func (s *Server) Metrics() Metrics {
	s.routesMu.Lock()
	routes := make(map[string]int64, len(s.routes))
	for k, v := range s.routes {
		routes[k] = v
	}
	s.routesMu.Unlock()

	return Metrics{
		Requests:        s.requests.Load(),
		Unauthorized:    s.unauthorized.Load(),
		Refreshes:       s.refreshes.Load(),
		FailedRefreshes: s.failedRefreshes.Load(),
		Routes:          routes,
	}
}

// RevokeRefreshTokens forgets every issued refresh token, so the next refresh fails
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshTokens = make(map[string]int64)
}

func (s *Server) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Server) timestamp() api.Time {
	return api.Time{Time: s.now().UTC()}
}

func (s *Server) newRouter() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
	r.Use(s.logRequests, s.countRequests, s.checkAPIKey)

	a := r.PathPrefix("/api").Subrouter()

	a.HandleFunc("/health", s.health).Methods(http.MethodGet)

	a.HandleFunc("/auth/register", s.register).Methods(http.MethodPost)
	a.HandleFunc("/auth/login", s.login).Methods(http.MethodPost)
	a.HandleFunc("/auth/refresh", s.refresh).Methods(http.MethodPost)
	a.Handle("/auth/me", s.authed(s.me)).Methods(http.MethodGet)

	a.Handle("/stats", s.authed(s.stats)).Methods(http.MethodGet)
	a.Handle("/trigger/smart-collect", s.admin(s.smartCollect)).Methods(http.MethodPost)
	a.Handle("/trigger/daily-report", s.admin(s.dailyReport)).Methods(http.MethodPost)

	a.Handle("/subscriptions", s.authed(s.listSubscriptions)).Methods(http.MethodGet)
	a.Handle("/subscriptions", s.authed(s.createSubscription)).Methods(http.MethodPost)
	a.Handle("/subscriptions/{id:[0-9]+}", s.authed(s.getSubscription)).Methods(http.MethodGet)
	a.Handle("/subscriptions/{id:[0-9]+}", s.authed(s.updateSubscription)).Methods(http.MethodPut)
	a.Handle("/subscriptions/{id:[0-9]+}", s.authed(s.deleteSubscription)).Methods(http.MethodDelete)

	a.Handle("/contents", s.authed(s.listContents)).Methods(http.MethodGet)
	a.Handle("/contents/unanalyzed", s.authed(s.unanalyzedContents)).Methods(http.MethodGet)

	a.Handle("/credits/summary", s.authed(s.creditSummary)).Methods(http.MethodGet)
	a.Handle("/credits/records", s.authed(s.creditRecords)).Methods(http.MethodGet)
	a.Handle("/credits/daily", s.authed(s.creditDaily)).Methods(http.MethodGet)
	a.Handle("/credits/breakdown", s.authed(s.creditBreakdown)).Methods(http.MethodGet)
	a.Handle("/logs/fetch", s.authed(s.listFetchLogs)).Methods(http.MethodGet)

	a.Handle("/config", s.authed(s.listConfigs)).Methods(http.MethodGet)
	a.Handle("/config/{key}", s.authed(s.getConfig)).Methods(http.MethodGet)
	a.Handle("/config/{key}", s.admin(s.putConfig)).Methods(http.MethodPut)
	a.Handle("/config/{key}", s.admin(s.deleteConfig)).Methods(http.MethodDelete)

	a.Handle("/analyze/url", s.authed(s.analyzeURL)).Methods(http.MethodPost)
	a.Handle("/analyze/author", s.authed(s.analyzeAuthor)).Methods(http.MethodPost)

	a.Handle("/user/feed", s.authed(s.userFeed)).Methods(http.MethodGet)
	a.Handle("/user/feed/{id:[0-9]+}/read", s.authed(s.markRead)).Methods(http.MethodPost)
	a.Handle("/user/mode", s.authed(s.updateMode)).Methods(http.MethodPut)
	a.Handle("/user/subscriptions", s.authed(s.listUserSubscriptions)).Methods(http.MethodGet)
	a.Handle("/user/subscriptions", s.authed(s.createUserSubscription)).Methods(http.MethodPost)
	a.Handle("/user/subscriptions/{id:[0-9]+}", s.authed(s.deleteUserSubscription)).Methods(http.MethodDelete)

	a.Handle("/devices/register", s.authed(s.registerDevice)).Methods(http.MethodPost)
	a.Handle("/devices", s.authed(s.listDevices)).Methods(http.MethodGet)
	a.Handle("/devices/{id}", s.authed(s.unregisterDevice)).Methods(http.MethodDelete)
	a.Handle("/push/test", s.authed(s.pushTest)).Methods(http.MethodPost)

	return r
}
