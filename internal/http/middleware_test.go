package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"github.com/veritas-stock/stockd/internal/auth"
	"github.com/veritas-stock/stockd/internal/config"
	"github.com/veritas-stock/stockd/internal/models"
	"github.com/veritas-stock/stockd/internal/ratelimit"
	"github.com/veritas-stock/stockd/internal/security"
)

const testTOTPSecret = "JBSWY3DPEHPK3PXP"

type staticPrincipals struct {
	admin *models.Admin
}

func (s staticPrincipals) FindActiveByUsername(_ context.Context, username string) (*models.Admin, error) {
	if s.admin != nil && s.admin.Username == username {
		return s.admin, nil
	}
	return nil, nil
}

func (s staticPrincipals) FindActiveByID(_ context.Context, id uint64) (*models.Admin, error) {
	if s.admin != nil && s.admin.ID == id {
		return s.admin, nil
	}
	return nil, nil
}

func newTestSequencer(t *testing.T) *auth.Sequencer {
	t.Helper()
	hash, errHash := security.HashPassword("secret123")
	if errHash != nil {
		t.Fatalf("hash password: %v", errHash)
	}
	principals := staticPrincipals{admin: &models.Admin{ID: 7, Username: "admin", Password: hash, TOTPSecret: testTOTPSecret, Active: true}}
	return auth.NewSequencer(
		principals,
		auth.NewMemorySessionStore(nil),
		security.NewSessionTokens("middleware-test-secret", nil),
		auth.Options{},
	)
}

func authenticatedToken(t *testing.T, seq *auth.Sequencer) string {
	t.Helper()
	ctx := context.Background()
	pending, _, errBegin := seq.BeginLogin(ctx, "", "admin", "secret123")
	if errBegin != nil {
		t.Fatalf("begin login: %v", errBegin)
	}
	code, errCode := totp.GenerateCode(testTOTPSecret, time.Now().UTC())
	if errCode != nil {
		t.Fatalf("generate code: %v", errCode)
	}
	token, _, errComplete := seq.CompleteLogin(ctx, pending, code)
	if errComplete != nil {
		t.Fatalf("complete login: %v", errComplete)
	}
	return token
}

func testCookie() SessionCookie {
	return NewSessionCookie(config.SessionConfig{CookieName: "stockd_session", SameSite: "lax"})
}

func TestRequireAuthenticatedRejectsMissingCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	seq := newTestSequencer(t)
	r := gin.New()
	r.GET("/private", RequireAuthenticated(seq, testCookie()), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "unauthorized") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestRequireAuthenticatedRejectsPendingSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	seq := newTestSequencer(t)
	cookie := testCookie()
	pending, _, errBegin := seq.BeginLogin(context.Background(), "", "admin", "secret123")
	if errBegin != nil {
		t.Fatalf("begin login: %v", errBegin)
	}

	r := gin.New()
	r.GET("/private", RequireAuthenticated(seq, cookie), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(&http.Cookie{Name: cookie.Name, Value: pending})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for pending session, got %d", w.Code)
	}
	if setCookie := w.Header().Get("Set-Cookie"); setCookie != "" {
		t.Fatalf("expected pending cookie to be kept, got %q", setCookie)
	}

	code, errCode := totp.GenerateCode(testTOTPSecret, time.Now().UTC())
	if errCode != nil {
		t.Fatalf("generate code: %v", errCode)
	}
	if _, _, errComplete := seq.CompleteLogin(context.Background(), pending, code); errComplete != nil {
		t.Fatalf("expected pending session to survive the rejected request: %v", errComplete)
	}
}

func TestRequireAuthenticatedClearsUnknownSessionCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	seq := newTestSequencer(t)
	cookie := testCookie()

	r := gin.New()
	r.GET("/private", RequireAuthenticated(seq, cookie), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(&http.Cookie{Name: cookie.Name, Value: "forged.token.value"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if setCookie := w.Header().Get("Set-Cookie"); !strings.Contains(setCookie, "Max-Age=0") {
		t.Fatalf("expected cookie to be cleared, got %q", setCookie)
	}
}

func TestRequireAuthenticatedSetsAdminID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	seq := newTestSequencer(t)
	cookie := testCookie()
	token := authenticatedToken(t, seq)

	var gotID uint64
	r := gin.New()
	r.GET("/private", RequireAuthenticated(seq, cookie), func(c *gin.Context) {
		gotID = c.GetUint64(ContextAdminID)
		c.Status(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(&http.Cookie{Name: cookie.Name, Value: token})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", w.Code, w.Body.String())
	}
	if gotID != 7 {
		t.Fatalf("expected admin id 7, got %d", gotID)
	}
}

func TestSessionCookieWriteIsHttpOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cookie := testCookie().WithClock(func() time.Time { return now })

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/admin/login", nil)
	cookie.Write(c, "token-value", now.Add(10*time.Minute))

	setCookie := w.Header().Get("Set-Cookie")
	for _, want := range []string{"stockd_session=token-value", "Max-Age=600", "HttpOnly", "SameSite=Lax"} {
		if !strings.Contains(setCookie, want) {
			t.Fatalf("expected %q in Set-Cookie %q", want, setCookie)
		}
	}
	if strings.Contains(setCookie, "Secure") {
		t.Fatalf("expected insecure cookie outside production, got %q", setCookie)
	}
}

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), ratelimit.Limits{LoginPerMinute: 2, PerHour: 100, PerDay: 1000}).
		WithClock(func() time.Time { return now })

	r := gin.New()
	r.POST("/admin/login", RateLimitMiddleware(limiter, ratelimit.ClassLogin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/login", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
		if w.Header().Get("X-RateLimit-Limit") == "" {
			t.Fatalf("request %d: missing rate limit headers", i+1)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/login", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "60" {
		t.Fatalf("expected Retry-After 60, got %q", got)
	}
	var body struct {
		Error      string `json:"error"`
		RetryAfter int    `json:"retry_after"`
	}
	if errDecode := json.NewDecoder(w.Body).Decode(&body); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if body.RetryAfter != 60 || body.Error == "" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestRateLimitMiddlewareNilLimiterPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/stock", RateLimitMiddleware(nil, ratelimit.ClassDefault), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stock", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRequestLoggerAssignsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextRequestID))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	generated := w.Header().Get(HeaderRequestID)
	if _, errParse := uuid.Parse(generated); errParse != nil {
		t.Fatalf("expected generated uuid, got %q", generated)
	}
	if w.Body.String() != generated {
		t.Fatalf("expected context request id %q, got %q", generated, w.Body.String())
	}

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, incoming)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(HeaderRequestID); got != incoming {
		t.Fatalf("expected incoming request id to be reused, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "not-a-uuid")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(HeaderRequestID); got == "not-a-uuid" {
		t.Fatalf("expected malformed request id to be replaced")
	}
}
