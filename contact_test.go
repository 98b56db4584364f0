package folio

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/eringen/folio/ratelimit"
)

func validContact() map[string]string {
	return map[string]string{
		"name":    "Ann Example",
		"email":   "ann@example.com",
		"subject": "Hello",
		"message": "I like your work.",
	}
}

func contactCount(t *testing.T, a *App) int {
	t.Helper()
	msgs, err := a.Store.ListContactMessages(context.Background())
	if err != nil {
		t.Fatalf("ListContactMessages: %v", err)
	}
	return len(msgs)
}

func TestContactCreatesMessage(t *testing.T) {
	a := newTestApp(t)
	rec := newClient(t, a).sendJSON(http.MethodPost, "/api/contact", validContact())
	expectStatus(t, rec, http.StatusCreated)

	var body map[string]string
	decodeBody(t, rec, &body)
	if body["message"] != contactSentMessage {
		t.Errorf("message = %q", body["message"])
	}

	msgs, _ := a.Store.ListContactMessages(context.Background())
	if len(msgs) != 1 {
		t.Fatalf("expected 1 stored message, got %d", len(msgs))
	}
	m := msgs[0]
	if m.Name != "Ann Example" || m.Email != "ann@example.com" || m.Subject != "Hello" || m.IsRead {
		t.Errorf("unexpected message: %+v", m)
	}
}

func TestContactAcceptsFormEncoding(t *testing.T) {
	a := newTestApp(t)
	body := "name=Ann&email=ann%40example.com&subject=Hi&message=Hello+there"
	rec := newClient(t, a).do(http.MethodPost, "/api/contact", stringsReader(body), "application/x-www-form-urlencoded")
	expectStatus(t, rec, http.StatusCreated)
	if n := contactCount(t, a); n != 1 {
		t.Fatalf("stored %d messages, want 1", n)
	}
}

func TestContactDefaultSubject(t *testing.T) {
	a := newTestApp(t)
	c := newClient(t, a)

	sub := validContact()
	delete(sub, "subject")
	expectStatus(t, c.sendJSON(http.MethodPost, "/api/contact", sub), http.StatusCreated)

	msgs, _ := a.Store.ListContactMessages(context.Background())
	if len(msgs) != 1 || msgs[0].Subject != "Portfolio Inquiry from Ann Example" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
}

func TestContactValidation(t *testing.T) {
	a := newTestApp(t)
	c := newClient(t, a)

	rec := c.sendJSON(http.MethodPost, "/api/contact", map[string]string{"name": "Ann", "email": "not-an-email"})
	expectStatus(t, rec, http.StatusUnprocessableEntity)

	var body struct {
		Message string              `json:"message"`
		Errors  map[string][]string `json:"errors"`
	}
	decodeBody(t, rec, &body)
	if len(body.Errors["email"]) == 0 {
		t.Errorf("expected an email error, got %v", body.Errors)
	}
	if len(body.Errors["message"]) == 0 {
		t.Errorf("expected a message error, got %v", body.Errors)
	}
	if _, ok := body.Errors["name"]; ok {
		t.Errorf("name was valid, got %v", body.Errors["name"])
	}

	// A display name around the address is not an email address.
	named := validContact()
	named["email"] = "Ann <ann@example.com>"
	rec = c.sendJSON(http.MethodPost, "/api/contact", named)
	expectStatus(t, rec, http.StatusUnprocessableEntity)
	body.Errors = nil
	decodeBody(t, rec, &body)
	if len(body.Errors["email"]) == 0 {
		t.Errorf("expected an email error for %q, got %v", named["email"], body.Errors)
	}

	if n := contactCount(t, a); n != 0 {
		t.Fatalf("invalid submission stored %d messages", n)
	}

	// Rejected submissions do not use up the quota.
	for i := 0; i < 3; i++ {
		expectStatus(t, c.sendJSON(http.MethodPost, "/api/contact", validContact()), http.StatusCreated)
	}
}

func TestContactRejectsOverlongMessage(t *testing.T) {
	c := newClient(t, newTestApp(t))
	sub := validContact()
	long := make([]byte, 5001)
	for i := range long {
		long[i] = 'a'
	}
	sub["message"] = string(long)

	rec := c.sendJSON(http.MethodPost, "/api/contact", sub)
	expectStatus(t, rec, http.StatusUnprocessableEntity)
}

func TestContactMalformedJSON(t *testing.T) {
	c := newClient(t, newTestApp(t))
	rec := c.sendJSON(http.MethodPost, "/api/contact", `{"name":`)
	expectStatus(t, rec, http.StatusUnprocessableEntity)
}

func TestContactRateLimit(t *testing.T) {
	a := newTestApp(t)
	c := newClient(t, a)

	for i := 0; i < 3; i++ {
		expectStatus(t, c.sendJSON(http.MethodPost, "/api/contact", validContact()), http.StatusCreated)
	}

	rec := c.sendJSON(http.MethodPost, "/api/contact", validContact())
	expectStatus(t, rec, http.StatusTooManyRequests)
	retry, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	if err != nil || retry <= 0 || retry > 3600 {
		t.Errorf("Retry-After = %q, want seconds within the hour", rec.Header().Get("Retry-After"))
	}

	// Invalid input is limited too once the quota is gone.
	expectStatus(t, c.sendJSON(http.MethodPost, "/api/contact", map[string]string{}), http.StatusTooManyRequests)

	if n := contactCount(t, a); n != 3 {
		t.Fatalf("stored %d messages, want 3", n)
	}

	c.ip = "198.51.100.9"
	expectStatus(t, c.sendJSON(http.MethodPost, "/api/contact", validContact()), http.StatusCreated)
}

func TestContactHoneypot(t *testing.T) {
	a := newTestApp(t)
	c := newClient(t, a)

	bot := validContact()
	bot["website"] = "http://spam.example"
	for i := 0; i < 5; i++ {
		rec := c.sendJSON(http.MethodPost, "/api/contact", bot)
		expectStatus(t, rec, http.StatusCreated)
		var body map[string]string
		decodeBody(t, rec, &body)
		if body["message"] != contactSentMessage {
			t.Fatalf("honeypot response differs from success: %v", body)
		}
	}
	if n := contactCount(t, a); n != 0 {
		t.Fatalf("honeypot stored %d messages", n)
	}

	n, _, err := a.memCounter.Count(context.Background(), ratelimit.Key(contactAction, "192.0.2.1"))
	if err != nil || n != 0 {
		t.Fatalf("honeypot counted against the limit: n=%d err=%v", n, err)
	}
	for i := 0; i < 3; i++ {
		expectStatus(t, c.sendJSON(http.MethodPost, "/api/contact", validContact()), http.StatusCreated)
	}
}

func TestContactPersistenceFailureGivesAttemptBack(t *testing.T) {
	a := newTestApp(t)
	c := newClient(t, a)
	a.Store.Close()

	rec := c.sendJSON(http.MethodPost, "/api/contact", validContact())
	expectStatus(t, rec, http.StatusInternalServerError)
	var body map[string]any
	decodeBody(t, rec, &body)
	if body["message"] != "Failed to send message. Please try again later." {
		t.Errorf("message = %v", body["message"])
	}
	if _, ok := body["error"]; ok {
		t.Error("error detail leaked outside debug mode")
	}

	n, _, _ := a.memCounter.Count(context.Background(), ratelimit.Key(contactAction, "192.0.2.1"))
	if n != 0 {
		t.Fatalf("failed save still counted: n=%d", n)
	}
}

func TestContactPersistenceFailureDebugDetail(t *testing.T) {
	cfg := testConfig(t)
	cfg.Debug = true
	a := newTestAppWithConfig(t, cfg)
	a.Store.Close()

	rec := newClient(t, a).sendJSON(http.MethodPost, "/api/contact", validContact())
	expectStatus(t, rec, http.StatusInternalServerError)
	var body map[string]any
	decodeBody(t, rec, &body)
	if body["error"] == nil || body["error"] == "" {
		t.Fatalf("debug mode should include error detail, got %v", body)
	}
}

func TestContactLimitSharedThroughRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.RedisURL = "redis://" + mr.Addr()

	// Two app instances share one quota through Redis.
	first := newClient(t, newTestAppWithConfig(t, cfg))
	cfg2 := testConfig(t)
	cfg2.RedisURL = cfg.RedisURL
	second := newClient(t, newTestAppWithConfig(t, cfg2))

	expectStatus(t, first.sendJSON(http.MethodPost, "/api/contact", validContact()), http.StatusCreated)
	expectStatus(t, second.sendJSON(http.MethodPost, "/api/contact", validContact()), http.StatusCreated)
	expectStatus(t, first.sendJSON(http.MethodPost, "/api/contact", validContact()), http.StatusCreated)
	expectStatus(t, second.sendJSON(http.MethodPost, "/api/contact", validContact()), http.StatusTooManyRequests)

	key := "folio:ratelimit:" + ratelimit.Key(contactAction, "192.0.2.1")
	if !mr.Exists(key) {
		t.Fatalf("expected %s in redis, keys: %v", key, mr.Keys())
	}
	if got, _ := mr.Get(key); got != "3" {
		t.Errorf("counter = %q, want 3", got)
	}
	if ttl := mr.TTL(key); ttl <= 0 {
		t.Errorf("counter has no expiry: %s", ttl)
	}

	mr.FastForward(time.Hour + time.Second)
	expectStatus(t, second.sendJSON(http.MethodPost, "/api/contact", validContact()), http.StatusCreated)
}

func TestSetupFailsOnUnreachableRedis(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisURL = "redis://127.0.0.1:1"
	a := New(cfg)
	defer a.Close()
	if err := a.Setup(); err == nil {
		t.Fatal("Setup should fail when Redis is unreachable")
	}
}
