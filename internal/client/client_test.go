package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type statsPayload struct {
	Subscriptions struct {
		Total int `json:"total"`
	} `json:"subscriptions"`
}

// authBackend is a fake API that accepts a single valid access token and
// exchanges a single valid refresh token.
type authBackend struct {
	validAccess  string
	validRefresh string
	newAccess    string

	// rotatedRefresh, when set, is returned as the new refresh token
	rotatedRefresh string

	refreshCalls  atomic.Int32
	unauthorized  atomic.Int32
	authorized    atomic.Int32
	refreshStatus int

	// refreshGate, when set, is called by the refresh handler before it responds
	refreshGate func()
}

func newAuthBackend() *authBackend {
	return &authBackend{
		validAccess:   "new-token",
		validRefresh:  "valid-refresh",
		newAccess:     "new-token",
		refreshStatus: http.StatusOK,
	}
}

func (b *authBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.URL.Path == "/api/auth/refresh" {
		b.refreshCalls.Add(1)
		if b.refreshGate != nil {
			b.refreshGate()
		}
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if b.refreshStatus != http.StatusOK || req.RefreshToken != b.validRefresh {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"detail":"Invalid refresh token"}`)
			return
		}
		resp := map[string]string{
			"access_token": b.newAccess,
			"token_type":   "bearer",
		}
		if b.rotatedRefresh != "" {
			resp["refresh_token"] = b.rotatedRefresh
		}
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	if r.Header.Get("Authorization") != "Bearer "+b.validAccess {
		b.unauthorized.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail":"Could not validate credentials"}`)
		return
	}

	b.authorized.Add(1)
	_, _ = io.WriteString(w, `{"subscriptions":{"total":3}}`)
}

func newTestClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	c := New(NewSession(), opts...)
	if err := c.Configure(Config{BaseURL: baseURL, Timeout: 5 * time.Second}); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	return c
}

func TestRequestBeforeConfigure(t *testing.T) {
	c := New(NewSession())

	err := c.Get(context.Background(), "/api/stats", nil, nil)
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Get() error = %v, want ErrNotConfigured", err)
	}
	if c.Configured() {
		t.Error("Configured() = true before Configure")
	}
}

func TestConfigureValidation(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{name: "empty", baseURL: "", wantErr: true},
		{name: "relative", baseURL: "/api", wantErr: true},
		{name: "no scheme", baseURL: "api.test", wantErr: true},
		{name: "http", baseURL: "http://localhost:8000", wantErr: false},
		{name: "https with prefix", baseURL: "https://api.test/v1", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(NewSession()).Configure(Config{BaseURL: tt.baseURL})
			if (err != nil) != tt.wantErr {
				t.Errorf("Configure(%q) error = %v, wantErr %v", tt.baseURL, err, tt.wantErr)
			}
		})
	}
}

func TestAuthorizationHeaderLifecycle(t *testing.T) {
	var (
		mu      sync.Mutex
		headers []http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		headers = append(headers, r.Header.Clone())
		mu.Unlock()
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	c.SetTokens("A", "R")
	for i := 0; i < 2; i++ {
		if err := c.Get(ctx, "/api/stats", nil, nil); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
	}

	c.ClearTokens()
	if err := c.Get(ctx, "/api/health", nil, nil); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(headers) != 3 {
		t.Fatalf("server saw %d requests, want 3", len(headers))
	}
	for i := 0; i < 2; i++ {
		if got := headers[i].Get("Authorization"); got != "Bearer A" {
			t.Errorf("request %d Authorization = %q, want %q", i, got, "Bearer A")
		}
	}
	if _, ok := headers[2]["Authorization"]; ok {
		t.Errorf("request after ClearTokens carried Authorization %q", headers[2].Get("Authorization"))
	}
	if c.GetAccessToken() != "" {
		t.Errorf("GetAccessToken() = %q after ClearTokens", c.GetAccessToken())
	}
}

func TestAPIKeyHeader(t *testing.T) {
	var gotKey, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		gotAccept = r.Header.Get("Accept")
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	}))
	defer srv.Close()

	c := New(NewSession())
	if err := c.Configure(Config{BaseURL: srv.URL, APIKey: "secret-key"}); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	var out map[string]string
	if err := c.Get(context.Background(), "/api/health", nil, &out); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if gotKey != "secret-key" {
		t.Errorf("X-API-Key = %q, want %q", gotKey, "secret-key")
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q, want application/json", gotAccept)
	}
	if out["status"] != "ok" {
		t.Errorf("decoded status = %q, want ok", out["status"])
	}
}

func TestRefreshAndReplay(t *testing.T) {
	backend := newAuthBackend()
	srv := httptest.NewServer(backend)
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	var observed [][2]string
	c.Session().OnChange(func(access, refresh string) {
		observed = append(observed, [2]string{access, refresh})
	})

	c.SetTokens("expired-token", "valid-refresh")

	var stats statsPayload
	if err := c.Get(context.Background(), "/api/stats", nil, &stats); err != nil {
		t.Fatalf("Get() error = %v, want transparent recovery", err)
	}

	if stats.Subscriptions.Total != 3 {
		t.Errorf("stats.Subscriptions.Total = %d, want 3", stats.Subscriptions.Total)
	}
	if got := backend.refreshCalls.Load(); got != 1 {
		t.Errorf("refresh calls = %d, want 1", got)
	}
	if got := c.GetAccessToken(); got != "new-token" {
		t.Errorf("GetAccessToken() = %q, want new-token", got)
	}
	if got := c.Session().RefreshToken(); got != "valid-refresh" {
		t.Errorf("RefreshToken() = %q, want valid-refresh", got)
	}

	want := [][2]string{{"expired-token", "valid-refresh"}, {"new-token", "valid-refresh"}}
	if len(observed) != len(want) {
		t.Fatalf("observer calls = %v, want %v", observed, want)
	}
	for i := range want {
		if observed[i] != want[i] {
			t.Errorf("observer call %d = %v, want %v", i, observed[i], want[i])
		}
	}

	if state := c.current().refresh.State(); state != refreshIdle {
		t.Errorf("refresh state = %v after completion, want idle", state)
	}
}

func TestRefreshFailureTearsDownSession(t *testing.T) {
	backend := newAuthBackend()
	backend.refreshStatus = http.StatusBadRequest
	srv := httptest.NewServer(backend)
	defer srv.Close()

	var failures atomic.Int32
	c := newTestClient(t, srv.URL, WithRefreshFailedHandler(func() {
		failures.Add(1)
	}))
	c.SetTokens("expired-token", "valid-refresh")

	err := c.Get(context.Background(), "/api/stats", nil, nil)
	if err == nil {
		t.Fatal("Get() error = nil, want 401")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Get() error = %T %v, want *APIError", err, err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Path != "/api/stats" {
		t.Errorf("error = %d %s, want the original 401 on /api/stats", apiErr.StatusCode, apiErr.Path)
	}
	if apiErr.Detail != "Could not validate credentials" {
		t.Errorf("Detail = %q, want the original response detail", apiErr.Detail)
	}
	if got := failures.Load(); got != 1 {
		t.Errorf("refresh-failed callback fired %d times, want 1", got)
	}
	if got := c.GetAccessToken(); got != "" {
		t.Errorf("GetAccessToken() = %q, want empty", got)
	}
}

func TestConcurrentUnauthorizedSharesOneRefresh(t *testing.T) {
	const n = 8

	backend := newAuthBackend()
	// Hold the refresh until every request has been rejected once, so all of
	// them arrive while the refresh is in flight.
	backend.refreshGate = func() {
		deadline := time.Now().Add(5 * time.Second)
		for backend.unauthorized.Load() < n && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
	}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	var failures atomic.Int32
	c := newTestClient(t, srv.URL, WithRefreshFailedHandler(func() { failures.Add(1) }))
	c.SetTokens("expired-token", "valid-refresh")

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var stats statsPayload
			errs[i] = c.Get(context.Background(), "/api/stats", nil, &stats)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("request %d error = %v", i, err)
		}
	}
	if got := backend.refreshCalls.Load(); got != 1 {
		t.Errorf("refresh calls = %d, want exactly 1", got)
	}
	if got := backend.authorized.Load(); got != n {
		t.Errorf("replays with new token = %d, want %d", got, n)
	}
	if got := failures.Load(); got != 0 {
		t.Errorf("refresh-failed callback fired %d times, want 0", got)
	}
}

func TestConcurrentRefreshFailureRejectsEveryWaiter(t *testing.T) {
	const n = 5

	backend := newAuthBackend()
	backend.refreshStatus = http.StatusUnauthorized
	backend.refreshGate = func() {
		deadline := time.Now().Add(5 * time.Second)
		for backend.unauthorized.Load() < n && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
	}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	var failures atomic.Int32
	c := newTestClient(t, srv.URL, WithRefreshFailedHandler(func() { failures.Add(1) }))
	c.SetTokens("expired-token", "valid-refresh")

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.Get(context.Background(), "/api/stats", nil, nil)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if !IsUnauthorized(err) {
			t.Errorf("request %d error = %v, want original 401", i, err)
		}
	}
	if got := backend.refreshCalls.Load(); got != 1 {
		t.Errorf("refresh calls = %d, want 1", got)
	}
	if got := failures.Load(); got != 1 {
		t.Errorf("refresh-failed callback fired %d times, want 1", got)
	}
	if got := c.GetAccessToken(); got != "" {
		t.Errorf("GetAccessToken() = %q, want empty", got)
	}
}

func TestReplayIsNotRetriedTwice(t *testing.T) {
	var statsCalls, refreshCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/refresh":
			refreshCalls.Add(1)
			_, _ = io.WriteString(w, `{"access_token":"still-rejected","token_type":"bearer"}`)
		default:
			statsCalls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"second rejection"}`)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	c.SetTokens("expired-token", "valid-refresh")

	err := c.Get(context.Background(), "/api/stats", nil, nil)
	if !IsUnauthorized(err) {
		t.Fatalf("Get() error = %v, want 401", err)
	}
	if got := statsCalls.Load(); got != 2 {
		t.Errorf("stats calls = %d, want 2 (original + one replay)", got)
	}
	if got := refreshCalls.Load(); got != 1 {
		t.Errorf("refresh calls = %d, want 1", got)
	}
	if got := c.GetAccessToken(); got != "still-rejected" {
		t.Errorf("GetAccessToken() = %q, want the refreshed token", got)
	}
}

func TestAuthRoutesNeverRefresh(t *testing.T) {
	paths := []string{"/api/auth/me", "/api/auth/login", "/api/auth/register", "/api/auth/refresh"}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			var refreshCalls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/api/auth/refresh" {
					refreshCalls.Add(1)
				}
				w.WriteHeader(http.StatusUnauthorized)
			}))
			defer srv.Close()

			c := newTestClient(t, srv.URL)
			c.SetTokens("expired-token", "valid-refresh")

			err := c.Post(context.Background(), path, nil, nil)
			if !IsUnauthorized(err) {
				t.Fatalf("Post(%s) error = %v, want 401", path, err)
			}
			want := int32(0)
			if path == "/api/auth/refresh" {
				want = 1 // the request itself
			}
			if got := refreshCalls.Load(); got != want {
				t.Errorf("refresh endpoint hit %d times, want %d", got, want)
			}
			if c.GetAccessToken() != "expired-token" {
				t.Errorf("session changed on auth route 401")
			}
		})
	}
}

func TestUnauthorizedWithoutRefreshToken(t *testing.T) {
	backend := newAuthBackend()
	srv := httptest.NewServer(backend)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	c.SetTokens("expired-token", "")

	if err := c.Get(context.Background(), "/api/stats", nil, nil); !IsUnauthorized(err) {
		t.Fatalf("Get() error = %v, want 401", err)
	}
	if got := backend.refreshCalls.Load(); got != 0 {
		t.Errorf("refresh calls = %d, want 0", got)
	}
}

func TestNonAuthErrorsPassThrough(t *testing.T) {
	var refreshCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/refresh" {
			refreshCalls.Add(1)
		}
		switch r.URL.Path {
		case "/api/subscriptions/9":
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"detail":"Subscription not found"}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `internal error`)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	c.SetTokens("A", "R")

	tests := []struct {
		path       string
		wantStatus int
		wantDetail string
	}{
		{path: "/api/subscriptions/9", wantStatus: http.StatusNotFound, wantDetail: "Subscription not found"},
		{path: "/api/stats", wantStatus: http.StatusInternalServerError, wantDetail: ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			err := c.Get(context.Background(), tt.path, nil, nil)
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("Get() error = %v, want *APIError", err)
			}
			if apiErr.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.wantStatus)
			}
			if apiErr.Detail != tt.wantDetail {
				t.Errorf("Detail = %q, want %q", apiErr.Detail, tt.wantDetail)
			}
		})
	}

	if got := refreshCalls.Load(); got != 0 {
		t.Errorf("refresh calls = %d, want 0", got)
	}
}

func TestTimeoutIsTransportError(t *testing.T) {
	var refreshCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/refresh" {
			refreshCalls.Add(1)
			return
		}
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := New(NewSession())
	if err := c.Configure(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	c.SetTokens("A", "R")

	err := c.Get(context.Background(), "/api/stats", nil, nil)
	if err == nil {
		t.Fatal("Get() error = nil, want timeout")
	}

	var urlErr *url.Error
	if !errors.As(err, &urlErr) || !urlErr.Timeout() {
		t.Errorf("Get() error = %v, want a *url.Error timeout", err)
	}
	if StatusCode(err) != 0 {
		t.Errorf("StatusCode(err) = %d, want 0 for transport errors", StatusCode(err))
	}
	if got := refreshCalls.Load(); got != 0 {
		t.Errorf("refresh calls = %d, want 0", got)
	}
}

func TestReplayResendsBody(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []string
		types  []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/refresh" {
			_, _ = io.WriteString(w, `{"access_token":"new-token","token_type":"bearer"}`)
			return
		}
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(data))
		types = append(types, r.Header.Get("Content-Type"))
		mu.Unlock()

		if r.Header.Get("Authorization") != "Bearer new-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":1}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	c.SetTokens("expired-token", "valid-refresh")

	body := map[string]string{"name": "Twitter - golang", "target": "golang"}
	var out struct {
		ID int `json:"id"`
	}
	if err := c.Post(context.Background(), "/api/subscriptions", body, &out); err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if out.ID != 1 {
		t.Errorf("decoded id = %d, want 1", out.ID)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 2 {
		t.Fatalf("server saw %d bodies, want 2", len(bodies))
	}
	if bodies[0] == "" || bodies[0] != bodies[1] {
		t.Errorf("replayed body = %q, original = %q", bodies[1], bodies[0])
	}
	for i, ct := range types {
		if ct != "application/json" {
			t.Errorf("request %d Content-Type = %q, want application/json", i, ct)
		}
	}
}

func TestFormBody(t *testing.T) {
	var gotType, gotUser string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		_ = r.ParseForm()
		gotUser = r.PostForm.Get("username")
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	form := url.Values{"username": {"alice"}, "password": {"pw"}}
	if err := c.Post(context.Background(), "/api/auth/login", form, nil); err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if gotType != "application/x-www-form-urlencoded" {
		t.Errorf("Content-Type = %q, want form encoding", gotType)
	}
	if gotUser != "alice" {
		t.Errorf("username = %q, want alice", gotUser)
	}
}

func TestReconfigureDiscardsInFlightRefresh(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	backend := newAuthBackend()
	var once sync.Once
	backend.refreshGate = func() {
		once.Do(func() { close(entered) })
		<-release
	}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	var failures atomic.Int32
	c := newTestClient(t, srv.URL, WithRefreshFailedHandler(func() { failures.Add(1) }))
	c.SetTokens("expired-token", "valid-refresh")

	done := make(chan error, 1)
	go func() {
		done <- c.Get(context.Background(), "/api/stats", nil, nil)
	}()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("refresh never started")
	}

	if err := c.Configure(Config{BaseURL: srv.URL}); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if state := c.current().refresh.State(); state != refreshIdle {
		t.Errorf("new configuration refresh state = %v, want idle", state)
	}
	close(release)

	select {
	case err := <-done:
		if !IsUnauthorized(err) {
			t.Errorf("Get() error = %v, want original 401", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("request never completed")
	}

	if got := c.GetAccessToken(); got != "expired-token" {
		t.Errorf("GetAccessToken() = %q, want discarded refresh to leave session untouched", got)
	}
	if got := failures.Load(); got != 0 {
		t.Errorf("refresh-failed callback fired %d times, want 0", got)
	}
}

func TestWaiterContextCancelled(t *testing.T) {
	release := make(chan struct{})
	backend := newAuthBackend()
	backend.refreshGate = func() { <-release }
	srv := httptest.NewServer(backend)
	defer srv.Close()
	defer close(release)

	c := newTestClient(t, srv.URL)
	c.SetTokens("expired-token", "valid-refresh")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := c.Get(ctx, "/api/stats", nil, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Get() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestLateUnauthorizedReplaysWithCurrentToken(t *testing.T) {
	backend := newAuthBackend()
	var c *Client
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Another caller's refresh lands while this request is on the wire
		if r.Header.Get("Authorization") == "Bearer expired-token" {
			c.SetTokens("new-token", "valid-refresh")
		}
		backend.ServeHTTP(w, r)
	}))
	defer srv.Close()

	c = newTestClient(t, srv.URL)
	c.SetTokens("expired-token", "valid-refresh")

	var stats statsPayload
	if err := c.Get(context.Background(), "/api/stats", nil, &stats); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stats.Subscriptions.Total != 3 {
		t.Errorf("total = %d, want 3", stats.Subscriptions.Total)
	}
	if got := backend.refreshCalls.Load(); got != 0 {
		t.Errorf("refresh calls = %d, want 0 for a token that was already replaced", got)
	}
}

func TestCancelledCallerDoesNotFailSharedRefresh(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	backend := newAuthBackend()
	backend.refreshGate = func() {
		entered <- struct{}{}
		<-release
	}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	c.SetTokens("expired-token", "valid-refresh")

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() { first <- c.Get(ctx, "/api/stats", nil, nil) }()
	<-entered
	cancel()
	if err := <-first; !errors.Is(err, context.Canceled) {
		t.Fatalf("first Get() error = %v, want context.Canceled", err)
	}

	second := make(chan error, 1)
	go func() { second <- c.Get(context.Background(), "/api/stats", nil, nil) }()
	close(release)

	if err := <-second; err != nil {
		t.Fatalf("second Get() error = %v", err)
	}
	if got := backend.refreshCalls.Load(); got != 1 {
		t.Errorf("refresh calls = %d, want 1", got)
	}
	if got := c.GetAccessToken(); got != "new-token" {
		t.Errorf("GetAccessToken() = %q, want new-token", got)
	}
}

func TestRotatedRefreshToken(t *testing.T) {
	backend := newAuthBackend()
	backend.rotatedRefresh = "rotated-refresh"
	srv := httptest.NewServer(backend)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	c.SetTokens("expired-token", "valid-refresh")
	if err := c.Get(context.Background(), "/api/stats", nil, nil); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got := c.Session().RefreshToken(); got != "rotated-refresh" {
		t.Errorf("refresh token = %q, want rotated-refresh", got)
	}
}

func TestParseDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "string detail", body: `{"detail":"Not authenticated"}`, want: "Not authenticated"},
		{name: "validation list", body: `{"detail":[{"msg":"field required"},{"msg":"value is not a valid integer"}]}`, want: "field required; value is not a valid integer"},
		{name: "object detail", body: `{"detail":{"code":7}}`, want: `{"code":7}`},
		{name: "no detail", body: `{"error":"x"}`, want: ""},
		{name: "not json", body: `Bad Gateway`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseDetail([]byte(tt.body)); got != tt.want {
				t.Errorf("parseDetail(%s) = %q, want %q", tt.body, got, tt.want)
			}
		})
	}
}
