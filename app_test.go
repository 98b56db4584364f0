package folio

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

const testPassword = "correct horse"

func testConfig(t *testing.T) SiteConfig {
	t.Helper()
	dir := t.TempDir()
	return SiteConfig{
		Name:            "Jane's Portfolio",
		URL:             "https://jane.dev",
		DatabasePath:    filepath.Join(dir, "folio.db"),
		MediaDir:        filepath.Join(dir, "media"),
		AdminPassword:   testPassword,
		SessionSecret:   "test-session-secret",
		ReadRPS:         -1,
		ContentCacheTTL: time.Nanosecond,
	}
}

func newTestApp(t *testing.T, opts ...Option) *App {
	t.Helper()
	return newTestAppWithConfig(t, testConfig(t), opts...)
}

func newTestAppWithConfig(t *testing.T, cfg SiteConfig, opts ...Option) *App {
	t.Helper()
	a := New(cfg, opts...)
	if err := a.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

// testClient drives the Echo instance in-process and carries cookies and
// the CSRF token between requests.
type testClient struct {
	t       *testing.T
	app     *App
	ip      string
	csrf    string
	headers map[string]string
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, a *App) *testClient {
	return &testClient{t: t, app: a, cookies: map[string]*http.Cookie{}}
}

func (c *testClient) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	if c.ip != "" {
		req.RemoteAddr = c.ip + ":4321"
	}
	if c.csrf != "" {
		req.Header.Set("X-CSRF-Token", c.csrf)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.app.Echo.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return rec
}

func (c *testClient) get(path string) *httptest.ResponseRecorder {
	c.t.Helper()
	return c.do(http.MethodGet, path, nil, "")
}

func (c *testClient) sendJSON(method, path string, v any) *httptest.ResponseRecorder {
	c.t.Helper()
	var body string
	switch v := v.(type) {
	case string:
		body = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			c.t.Fatalf("marshal: %v", err)
		}
		body = string(b)
	}
	return c.do(method, path, strings.NewReader(body), echo.MIMEApplicationJSON)
}

// login fetches a CSRF token and signs in as admin.
func (c *testClient) login() {
	c.t.Helper()
	var sess struct {
		CSRFToken string `json:"csrf_token"`
	}
	decodeBody(c.t, c.get("/admin/api/session"), &sess)
	if sess.CSRFToken == "" {
		c.t.Fatal("session endpoint returned no csrf token")
	}
	c.csrf = sess.CSRFToken
	rec := c.sendJSON(http.MethodPost, "/admin/api/login", map[string]string{"password": testPassword})
	if rec.Code != http.StatusOK {
		c.t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

func TestSetupRequiresSecrets(t *testing.T) {
	cfg := testConfig(t)
	cfg.AdminPassword = ""
	if err := New(cfg).Setup(); err == nil {
		t.Fatal("Setup without AdminPassword should fail")
	}
	cfg = testConfig(t)
	cfg.SessionSecret = ""
	if err := New(cfg).Setup(); err == nil {
		t.Fatal("Setup without SessionSecret should fail")
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	a := New(SiteConfig{URL: "https://jane.dev/"})
	if a.Config.URL != "https://jane.dev" {
		t.Errorf("URL = %q, want trailing slash trimmed", a.Config.URL)
	}
	if a.Config.ContactMaxAttempts != 3 || a.Config.ContactWindow != time.Hour {
		t.Errorf("contact limit = %d per %s, want 3 per 1h", a.Config.ContactMaxAttempts, a.Config.ContactWindow)
	}
	if len(a.Config.AllowedOrigins) != 1 || a.Config.AllowedOrigins[0] != "https://jane.dev" {
		t.Errorf("AllowedOrigins = %v, want the site URL", a.Config.AllowedOrigins)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("FOLIO_ADDR", ":9000")
	t.Setenv("FRONTEND_URL", "https://jane.dev")
	t.Setenv("FOLIO_ALLOWED_ORIGINS", "https://a.dev, ,https://b.dev")
	t.Setenv("FOLIO_CONTACT_WINDOW", "30m")
	t.Setenv("APP_DEBUG", "true")

	cfg := ConfigFromEnv()
	if cfg.Addr != ":9000" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if want := []string{"https://jane.dev", "https://a.dev", "https://b.dev"}; strings.Join(cfg.AllowedOrigins, ",") != strings.Join(want, ",") {
		t.Errorf("AllowedOrigins = %v, want %v", cfg.AllowedOrigins, want)
	}
	if cfg.ContactWindow != 30*time.Minute {
		t.Errorf("ContactWindow = %s, want 30m", cfg.ContactWindow)
	}
	if !cfg.Debug {
		t.Error("Debug should be true")
	}
}

func TestCustomRoutes(t *testing.T) {
	a := newTestApp(t, WithCustomRoutes(func(a *App) {
		a.Echo.GET("/api/ping", func(c echo.Context) error {
			return c.String(http.StatusOK, "pong")
		})
	}))
	rec := newClient(t, a).get("/api/ping")
	expectStatus(t, rec, http.StatusOK)
	if rec.Body.String() != "pong" {
		t.Fatalf("body = %q, want pong", rec.Body.String())
	}
}

func stringsReader(s string) io.Reader {
	return strings.NewReader(s)
}
