package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/devilmonastery/infohunter/internal/api"
	"github.com/devilmonastery/infohunter/internal/client"
	"github.com/devilmonastery/infohunter/internal/mockbackend"
)

const testAccessTTL = time.Minute

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	backend *mockbackend.Server
	clock   *fakeClock
	home    string
}

// newTestEnv points a fresh HOME at an in-memory backend through a "test" context
func newTestEnv(t *testing.T, apiKey string) *testEnv {
	t.Helper()

	env := &testEnv{
		clock: &fakeClock{now: time.Now().UTC()},
		home:  t.TempDir(),
	}
	env.backend = mockbackend.New(mockbackend.Config{
		APIKey:     apiKey,
		AccessTTL:  testAccessTTL,
		BcryptCost: bcrypt.MinCost,
		Now:        env.clock.Now,
	})
	ts := httptest.NewServer(env.backend)
	t.Cleanup(ts.Close)

	t.Setenv("HOME", env.home)

	ctx := &Context{}
	ctx.Server.URL = ts.URL
	ctx.Server.APIKey = apiKey
	ctx.Server.Timeout = 5 * time.Second
	ctx.Rendering.Theme = "notty"
	config := &Config{CurrentContext: "test", Contexts: map[string]*Context{"test": ctx}}
	if err := SaveConfig(config); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}
	return env
}

// run executes the CLI with args and returns stdout and stderr
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, stderr, err := run(t, "", args...)
	if err != nil {
		t.Fatalf("infohunter %s: %v\nstderr: %s", strings.Join(args, " "), err, stderr)
	}
	return out
}

func (e *testEnv) register(t *testing.T, username string) {
	t.Helper()
	mustRun(t, "auth", "register", "-u", username, "-p", "secret123")
}

// createdID returns the ID from "✓ Created subscription ID (name)"
func createdID(t *testing.T, out string) string {
	t.Helper()
	fields := strings.Fields(out)
	if len(fields) < 4 {
		t.Fatalf("unexpected create output %q", out)
	}
	return fields[3]
}

func TestConfigContexts(t *testing.T) {
	newTestEnv(t, "")

	mustRun(t, "config", "add-context", "staging", "--url", "https://staging.example.com", "--api-key", "abcdef123456")

	out := mustRun(t, "config", "list-contexts")
	if !strings.Contains(out, "staging") || !strings.Contains(out, "********3456") {
		t.Errorf("list-contexts = %q, want staging with a masked key", out)
	}
	if strings.Contains(out, "abcdef") {
		t.Errorf("list-contexts leaked the API key: %q", out)
	}

	mustRun(t, "config", "use-context", "staging")
	if out := mustRun(t, "config", "current-context"); strings.TrimSpace(out) != "staging" {
		t.Errorf("current-context = %q, want staging", out)
	}

	if _, _, err := run(t, "", "config", "delete-context", "staging"); err == nil {
		t.Error("deleting the current context should fail")
	}
	mustRun(t, "config", "use-context", "test")
	mustRun(t, "config", "delete-context", "staging")

	if _, _, err := run(t, "", "config", "add-context", "bad", "--url", "localhost:8000"); err == nil {
		t.Error("add-context accepted a URL without scheme")
	}
}

func TestSetContextUpdatesOnlyGivenFields(t *testing.T) {
	env := newTestEnv(t, "")

	if _, _, err := run(t, "", "config", "set-context", "edge", "--api-key", "k"); err == nil {
		t.Error("creating a context without --url should fail")
	}

	out := mustRun(t, "config", "set-context", "test", "--timeout", "10s")
	if !strings.Contains(out, `Context "test" updated`) {
		t.Errorf("set-context = %q", out)
	}
	out = mustRun(t, "config", "show")
	for _, want := range []string{"Context: test (current)", "Timeout: 10s", "Theme: notty", "Signed in as: (nobody)"} {
		if !strings.Contains(out, want) {
			t.Errorf("show missing %q:\n%s", want, out)
		}
	}

	env.register(t, "alice")
	if out := mustRun(t, "config", "show", "test"); !strings.Contains(out, "Signed in as: alice") {
		t.Errorf("show after login = %q", out)
	}
	if out := mustRun(t, "config", "list-contexts"); !strings.Contains(out, "alice") {
		t.Errorf("list-contexts = %q, want the signed in user", out)
	}
	if _, _, err := run(t, "", "config", "show", "missing"); err == nil {
		t.Error("show accepted an unknown context")
	}
}

func TestLoginStoresCredentials(t *testing.T) {
	env := newTestEnv(t, "")
	if _, err := env.backend.AddUser("alice", "secret123", "admin"); err != nil {
		t.Fatalf("AddUser() error = %v", err)
	}

	// Password comes from stdin when not given as a flag
	out, _, err := run(t, "secret123\n", "auth", "login", "-u", "alice")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, "Logged in as alice (admin)") {
		t.Errorf("login output = %q", out)
	}

	path, _ := credentialsPathFor("test")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("credentials file missing: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("credentials mode = %o, want 600", perm)
	}

	creds, err := LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials() error = %v", err)
	}
	if creds.Username != "alice" || creds.Role != "admin" || creds.Token.RefreshToken == "" {
		t.Errorf("credentials = %+v, want alice/admin with a refresh token", creds)
	}
	if creds.Token.Expiry.IsZero() {
		t.Error("token expiry not read from the JWT")
	}

	if out := mustRun(t, "auth", "whoami"); !strings.Contains(out, "Username: alice") {
		t.Errorf("whoami = %q", out)
	}
	if out := mustRun(t, "auth", "token"); strings.TrimSpace(out) != creds.Token.AccessToken {
		t.Errorf("token = %q, want the stored access token", out)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t, "")
	if _, err := env.backend.AddUser("alice", "secret123", "user"); err != nil {
		t.Fatalf("AddUser() error = %v", err)
	}

	_, _, err := run(t, "", "auth", "login", "-u", "alice", "-p", "wrong-password")
	if err == nil || !strings.Contains(err.Error(), "invalid username or password") {
		t.Fatalf("login error = %v, want invalid credentials", err)
	}
	if _, err := LoadCredentials(); err != client.ErrNoCredentials {
		t.Errorf("LoadCredentials() error = %v, want ErrNoCredentials", err)
	}
	if got := env.backend.Metrics().Refreshes; got != 0 {
		t.Errorf("refreshes = %d, want 0 after a failed login", got)
	}
}

func TestCommandsRequireLogin(t *testing.T) {
	newTestEnv(t, "")

	_, _, err := run(t, "", "stats")
	if err == nil || !strings.Contains(err.Error(), "auth login") {
		t.Fatalf("stats error = %v, want a login hint", err)
	}
	if out := mustRun(t, "auth", "status"); !strings.Contains(out, "Not logged in") {
		t.Errorf("status = %q", out)
	}
}

func TestExpiredTokenIsRefreshedAndPersisted(t *testing.T) {
	env := newTestEnv(t, "")
	env.register(t, "alice")

	before, err := LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials() error = %v", err)
	}

	env.clock.Advance(testAccessTTL + time.Second)
	if out := mustRun(t, "stats"); !strings.Contains(out, "Subscriptions: 0 total") {
		t.Errorf("stats = %q", out)
	}
	mustRun(t, "subs", "list")

	after, err := LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials() error = %v", err)
	}
	if after.Token.AccessToken == before.Token.AccessToken {
		t.Error("access token was not rotated")
	}
	if after.Token.RefreshToken != before.Token.RefreshToken {
		t.Error("refresh token changed on refresh")
	}
	if after.Username != "alice" {
		t.Errorf("username = %q, user fields lost on refresh", after.Username)
	}
	// The second command reused the persisted token
	if got := env.backend.Metrics().Refreshes; got != 1 {
		t.Errorf("refreshes = %d, want 1", got)
	}
}

func TestRefreshFailureClearsCredentials(t *testing.T) {
	env := newTestEnv(t, "")
	env.register(t, "alice")

	env.backend.RevokeRefreshTokens()
	env.clock.Advance(testAccessTTL + time.Second)

	_, stderr, err := run(t, "", "stats")
	if err == nil {
		t.Fatal("stats succeeded with a revoked session")
	}
	if !strings.Contains(stderr, "session expired, please run 'infohunter auth login'") {
		t.Errorf("stderr = %q, want the session expired hint", stderr)
	}
	if _, err := LoadCredentials(); err != client.ErrNoCredentials {
		t.Errorf("LoadCredentials() error = %v, want the file removed", err)
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, "")
	env.register(t, "alice")

	if out := mustRun(t, "auth", "logout"); !strings.Contains(out, "Successfully logged out") {
		t.Errorf("logout = %q", out)
	}
	if _, err := LoadCredentials(); err != client.ErrNoCredentials {
		t.Errorf("LoadCredentials() error = %v, want ErrNoCredentials", err)
	}
	if out := mustRun(t, "auth", "logout"); !strings.Contains(out, "Not logged in") {
		t.Errorf("second logout = %q", out)
	}
}

func TestSubscriptionsAndFeed(t *testing.T) {
	env := newTestEnv(t, "")
	env.register(t, "admin")

	out := mustRun(t, "subs", "create", "golang", "--source", "twitter", "--type", "keyword")
	if !strings.Contains(out, "Created subscription") || !strings.Contains(out, "Twitter - golang") {
		t.Errorf("create = %q", out)
	}
	golang := createdID(t, out)
	blog := createdID(t, mustRun(t, "subs", "create", "https://go.dev/blog/feed.atom", "--source", "blog", "--type", "feed", "--name", "Go blog"))

	out = mustRun(t, "subs", "list")
	if !strings.Contains(out, "Twitter - golang") || !strings.Contains(out, "Go blog") {
		t.Errorf("subs list = %q", out)
	}
	if out := mustRun(t, "subs", "list", "--source", "blog"); strings.Contains(out, "Twitter - golang") {
		t.Errorf("source filter ignored: %q", out)
	}

	if out := mustRun(t, "subs", "pause", golang); !strings.Contains(out, "is paused") {
		t.Errorf("pause = %q", out)
	}
	if out := mustRun(t, "subs", "get", golang); !strings.Contains(out, "Status: paused") {
		t.Errorf("get after pause = %q", out)
	}
	mustRun(t, "subs", "resume", golang)

	if _, _, err := run(t, "", "subs", "update", golang); err == nil {
		t.Error("update without flags should fail")
	}
	if out := mustRun(t, "subs", "update", golang, "--name", "Gophers"); !strings.Contains(out, "Name: Gophers") {
		t.Errorf("update = %q", out)
	}

	if out := mustRun(t, "trigger", "smart-collect"); !strings.Contains(out, "Collected from 2 subscriptions") {
		t.Errorf("smart-collect = %q", out)
	}

	out = mustRun(t, "contents", "list")
	if !strings.Contains(out, "Page 1, 2 of 2 items") {
		t.Errorf("contents list = %q", out)
	}

	out = mustRun(t, "feed", "list", "--unread")
	if !strings.Contains(out, "global mode") {
		t.Errorf("feed list = %q", out)
	}
	item := env.backend.AddContent(api.Content{ContentItem: api.ContentItem{Source: api.SourceBlog}})
	if out := mustRun(t, "feed", "read", strconv.FormatInt(item.ID, 10)); !strings.Contains(out, "as read") {
		t.Errorf("feed read = %q", out)
	}
	if _, _, err := run(t, "", "feed", "read", "999999"); client.StatusCode(err) != 404 {
		t.Errorf("read unknown item error = %v, want 404", err)
	}

	out = mustRun(t, "logs")
	if !strings.Contains(out, "twitter") || !strings.Contains(out, "blog") {
		t.Errorf("logs = %q", out)
	}
	if out := mustRun(t, "credits", "summary"); !strings.Contains(out, "Last 7 days") {
		t.Errorf("credits summary = %q", out)
	}
	if out := mustRun(t, "credits", "breakdown"); !strings.Contains(out, "OPERATION") {
		t.Errorf("credits breakdown = %q", out)
	}

	mustRun(t, "subs", "delete", blog)
	if out := mustRun(t, "subs", "list"); strings.Contains(out, "Go blog") {
		t.Errorf("deleted subscription still listed: %q", out)
	}
}

func TestMySubsAndMode(t *testing.T) {
	env := newTestEnv(t, "")
	env.register(t, "alice")

	out := mustRun(t, "mysubs", "add", "rustlang")
	if !strings.Contains(out, "created") {
		t.Errorf("mysubs add = %q", out)
	}
	if out := mustRun(t, "mysubs", "list"); !strings.Contains(out, "Twitter - rustlang") {
		t.Errorf("mysubs list = %q", out)
	}

	if out := mustRun(t, "mode", "custom"); !strings.Contains(out, "Feed mode is custom") {
		t.Errorf("mode = %q", out)
	}
	if out := mustRun(t, "mode"); strings.TrimSpace(out) != "custom" {
		t.Errorf("mode = %q, want custom", out)
	}
	if _, _, err := run(t, "", "mode", "everything"); err == nil {
		t.Error("invalid mode accepted")
	}
}

func TestNonAdminIsForbidden(t *testing.T) {
	env := newTestEnv(t, "")
	env.register(t, "admin")
	mustRun(t, "auth", "logout")
	env.register(t, "bob")

	_, _, err := run(t, "", "trigger", "daily-report")
	if client.StatusCode(err) != 403 {
		t.Errorf("daily-report error = %v, want 403", err)
	}
	_, _, err = run(t, "", "settings", "set", "explore", `{"enabled": true}`)
	if client.StatusCode(err) != 403 {
		t.Errorf("settings set error = %v, want 403", err)
	}
}

func TestSettingsDevicesAndAnalyze(t *testing.T) {
	env := newTestEnv(t, "key-123")
	env.register(t, "admin")

	mustRun(t, "settings", "set", "notify_mode", `{"mode": "top_list", "top_n": 10}`, "--description", "Push mode")
	if out := mustRun(t, "settings", "get", "notify_mode"); !strings.Contains(out, `"top_n": 10`) {
		t.Errorf("settings get = %q", out)
	}
	if out := mustRun(t, "settings", "list"); !strings.Contains(out, "Push mode") {
		t.Errorf("settings list = %q", out)
	}
	if _, _, err := run(t, "", "settings", "set", "x", "not json"); err == nil {
		t.Error("settings set accepted a non-JSON value")
	}
	mustRun(t, "settings", "delete", "notify_mode")
	if _, _, err := run(t, "", "settings", "get", "notify_mode"); client.StatusCode(err) != 404 {
		t.Errorf("get deleted setting error = %v, want 404", err)
	}

	out := mustRun(t, "devices", "register", "token-abcdefghijklmnop", "--platform", "android")
	if !strings.Contains(out, "android-") || !strings.Contains(out, "registered") {
		t.Errorf("devices register = %q", out)
	}
	if out := mustRun(t, "push", "test"); !strings.Contains(out, "sent to 1 devices") {
		t.Errorf("push test = %q", out)
	}

	// Not a terminal, so the markdown is printed as is
	out = mustRun(t, "analyze", "url", "https://example.com/posts/golang-generics?tag=%23go")
	if !strings.Contains(out, "# example.com/posts/golang-generics") || !strings.Contains(out, "#generics") {
		t.Errorf("analyze url = %q", out)
	}
}

func TestFeedExport(t *testing.T) {
	env := newTestEnv(t, "")
	env.register(t, "admin")
	env.backend.SeedDemoData(1)

	dir := t.TempDir()
	htmlPath := filepath.Join(dir, "digest.html")
	mustRun(t, "feed", "export", "--format", "html", "-o", htmlPath)

	data, err := os.ReadFile(htmlPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	html := string(data)
	if !strings.Contains(html, "<!DOCTYPE html>") || !strings.Contains(html, "InfoHunter digest") {
		t.Errorf("html digest missing page chrome: %q", html)
	}
	if strings.Contains(html, "<script>") {
		t.Error("html digest contains unsanitized script")
	}

	out := mustRun(t, "feed", "export", "-o", "-")
	if !strings.HasPrefix(out, "# InfoHunter digest ") || !strings.Contains(out, "**Twitter**") {
		t.Errorf("markdown digest = %q", out)
	}

	if _, _, err := run(t, "", "feed", "export", "--format", "pdf"); err == nil {
		t.Error("unknown export format accepted")
	}
}

func TestDigestFileName(t *testing.T) {
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.Local)
	tests := []struct {
		format string
		want   string
	}{
		{"markdown", "infohunter-digest-2026-03-09.md"},
		{"html", "infohunter-digest-2026-03-09.html"},
	}
	for _, tt := range tests {
		if got := digestFileName(now, tt.format); got != tt.want {
			t.Errorf("digestFileName(%q) = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestDashboardAndMetricsFile(t *testing.T) {
	env := newTestEnv(t, "")
	env.register(t, "admin")
	env.backend.SeedDemoData(1)

	// The dashboard has to recover from an expired access token
	env.clock.Advance(testAccessTTL + time.Second)

	metricsPath := filepath.Join(t.TempDir(), "cli.prom")
	out := mustRun(t, "dashboard", "--metrics-file", metricsPath)
	for _, want := range []string{"InfoHunter · admin (admin, global mode)", "Backend: healthy", "Credits (7 days)", "Unread ("} {
		if !strings.Contains(out, want) {
			t.Errorf("dashboard missing %q:\n%s", want, out)
		}
	}

	data, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("metrics file: %v", err)
	}
	if !strings.Contains(string(data), "infohunter_api_calls_total") {
		t.Errorf("metrics file has no API call counter:\n%s", data)
	}
}

func TestMaskedAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", "(none)"},
		{"abc", "***"},
		{"abcdefgh", "****efgh"},
	}
	for _, tt := range tests {
		ctx := &Context{}
		ctx.Server.APIKey = tt.key
		if got := ctx.MaskedAPIKey(); got != tt.want {
			t.Errorf("MaskedAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestCommandGroup(t *testing.T) {
	root := NewRootCommand()
	tests := []struct {
		args []string
		want string
	}{
		{nil, ""},
		{[]string{"auth", "login"}, "auth"},
		{[]string{"config", "show"}, "config"},
		{[]string{"credits", "daily"}, "credits"},
		{[]string{"health"}, "health"},
	}
	for _, tt := range tests {
		cmd, _, err := root.Find(tt.args)
		if err != nil {
			t.Fatalf("Find(%v) error = %v", tt.args, err)
		}
		if got := commandGroup(cmd); got != tt.want {
			t.Errorf("commandGroup(%v) = %q, want %q", tt.args, got, tt.want)
		}
	}
}
