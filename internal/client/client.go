package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/devilmonastery/infohunter/internal/pkg/urlutil"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultAuthPrefix  = "/api/auth/"
	defaultRefreshPath = "/api/auth/refresh"
)

// Config describes the backend a Client talks to
type Config struct {
	BaseURL string
	APIKey  string        // sent as X-API-Key on every request when set
	Timeout time.Duration // per request; defaults to 30s
}

// Option configures a Client
type Option func(*Client)

// WithLogger sets the logger used for refresh and replay events
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRefreshFailedHandler registers a callback invoked once per failed refresh,
// after the session has been cleared.
func WithRefreshFailedHandler(fn func()) Option {
	return func(c *Client) {
		c.onRefreshFailed = fn
	}
}

// WithTransport sets the base RoundTripper for every request
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = rt
	}
}

// WithAuthPrefix sets the path fragment identifying authentication routes.
// A 401 from any path containing it never triggers a refresh.
func WithAuthPrefix(prefix string) Option {
	return func(c *Client) {
		c.authPrefix = prefix
	}
}

// WithRefreshPath sets the endpoint that exchanges a refresh token
func WithRefreshPath(path string) Option {
	return func(c *Client) {
		c.refreshPath = path
	}
}

// WithRefreshTimeout bounds a single refresh round trip
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.refreshTimeout = d
		}
	}
}

// Client issues JSON requests against the InfoHunter REST API, authorizing them
// from a Session and recovering transparently from expired access tokens.
type Client struct {
	session         *Session
	logger          *slog.Logger
	onRefreshFailed func()
	transport       http.RoundTripper
	authPrefix      string
	refreshPath     string
	refreshTimeout  time.Duration

	do func(ctx context.Context, conn *connection, r *encodedRequest) (*response, error)

	mu   sync.RWMutex
	conn *connection
}

// connection is everything Configure builds. It is replaced wholesale on
// reconfiguration, refresh state included.
type connection struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client
	refresh *refresher
}

// Request is a single API call
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is JSON-encoded, except url.Values which is sent as a form
	// and []byte / json.RawMessage which are sent as-is.
	Body   any
	Header http.Header
}

// encodedRequest is a Request with its body already serialized, so it can be
// sent more than once.
type encodedRequest struct {
	method      string
	path        string
	query       url.Values
	header      http.Header
	payload     []byte
	contentType string
	retried     bool
}

type response struct {
	status int
	header http.Header
	body   []byte
}

// New creates a client bound to session. No request can be issued until
// Configure is called.
func New(session *Session, opts ...Option) *Client {
	if session == nil {
		session = NewSession()
	}
	c := &Client{
		session:        session,
		logger:         slog.Default().With("component", "api-client"),
		authPrefix:     defaultAuthPrefix,
		refreshPath:    defaultRefreshPath,
		refreshTimeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.do = c.withTokenRefresh(c.send)
	return c
}

// Configure (re)initializes the transport. Reconfiguring discards the refresh
// state of the previous configuration.
func (c *Client) Configure(cfg Config) error {
	if cfg.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return fmt.Errorf("invalid base URL %q: scheme and host are required", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	conn := &connection{
		baseURL: base,
		apiKey:  cfg.APIKey,
		http: &http.Client{
			Timeout:   timeout,
			Transport: c.transport,
		},
		refresh: newRefresher(c.refreshTimeout),
	}

	c.mu.Lock()
	previous := c.conn
	c.conn = conn
	c.mu.Unlock()

	if previous != nil {
		c.logger.Info("api client reconfigured", "base_url", base.String())
	} else {
		c.logger.Debug("api client configured", "base_url", base.String(), "timeout", timeout)
	}
	return nil
}

// Configured reports whether Configure has succeeded
func (c *Client) Configured() bool {
	return c.current() != nil
}

// BaseURL returns the configured base URL, or "" before Configure
func (c *Client) BaseURL() string {
	conn := c.current()
	if conn == nil {
		return ""
	}
	return conn.baseURL.String()
}

// Session returns the session this client authorizes requests from
func (c *Client) Session() *Session {
	return c.session
}

// SetTokens installs new credentials. An empty access token removes the Authorization header.
func (c *Client) SetTokens(access, refresh string) {
	c.session.SetTokens(access, refresh)
}

// GetAccessToken returns the current access token, or "" when not authenticated
func (c *Client) GetAccessToken() string {
	return c.session.AccessToken()
}

// ClearTokens removes both tokens
func (c *Client) ClearTokens() {
	c.session.Clear()
}

// Get issues a GET and decodes the JSON response into out
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// Post issues a POST with body and decodes the JSON response into out
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Put issues a PUT with body and decodes the JSON response into out
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

// Delete issues a DELETE and decodes the JSON response into out
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path}, out)
}

// Do issues req. A 2xx response is decoded into out (which may be nil);
// any other status is returned as *APIError. Transport failures are returned unchanged.
func (c *Client) Do(ctx context.Context, req *Request, out any) error {
	conn := c.current()
	if conn == nil {
		return ErrNotConfigured
	}

	encoded, err := encodeRequest(req)
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, conn, encoded)
	if err != nil {
		return err
	}

	if resp.status < 200 || resp.status > 299 {
		return newAPIError(encoded.method, encoded.path, resp.status, resp.body)
	}
	if out == nil || resp.status == http.StatusNoContent || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", encoded.method, encoded.path, err)
	}
	return nil
}

func (c *Client) current() *connection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

// send performs one round trip with the given access token
func (c *Client) send(ctx context.Context, conn *connection, r *encodedRequest, token string) (*response, error) {
	var body io.Reader
	if r.payload != nil {
		body = bytes.NewReader(r.payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, r.method, urlutil.Join(conn.baseURL, r.path, r.query), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	for k, vs := range r.header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	if r.contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", r.contentType)
	}
	if conn.apiKey != "" {
		httpReq.Header.Set("X-API-Key", conn.apiKey)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	} else {
		httpReq.Header.Del("Authorization")
	}

	resp, err := conn.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &response{status: resp.StatusCode, header: resp.Header, body: data}, nil
}

func encodeRequest(req *Request) (*encodedRequest, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	r := &encodedRequest{
		method: method,
		path:   req.Path,
		query:  req.Query,
		header: req.Header,
	}

	switch b := req.Body.(type) {
	case nil:
	case url.Values:
		r.payload = []byte(b.Encode())
		r.contentType = "application/x-www-form-urlencoded"
	case json.RawMessage:
		r.payload = b
		r.contentType = "application/json"
	case []byte:
		r.payload = b
		r.contentType = "application/json"
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s %s body: %w", method, req.Path, err)
		}
		r.payload = data
		r.contentType = "application/json"
	}

	return r, nil
}
