package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"github.com/veritas-stock/stockd/internal/auth"
	"github.com/veritas-stock/stockd/internal/config"
	apphttp "github.com/veritas-stock/stockd/internal/http"
	"github.com/veritas-stock/stockd/internal/models"
	"github.com/veritas-stock/stockd/internal/security"
)

const handlerTOTPSecret = "JBSWY3DPEHPK3PXP"

type singleAdmin struct {
	admin *models.Admin
}

func (s singleAdmin) FindActiveByUsername(_ context.Context, username string) (*models.Admin, error) {
	if s.admin.Username == username {
		return s.admin, nil
	}
	return nil, nil
}

func (s singleAdmin) FindActiveByID(_ context.Context, id uint64) (*models.Admin, error) {
	if s.admin.ID == id {
		return s.admin, nil
	}
	return nil, nil
}

func postJSON(t *testing.T, handler gin.HandlerFunc, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	raw, errMarshal := json.Marshal(body)
	if errMarshal != nil {
		t.Fatalf("marshal: %v", errMarshal)
	}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/admin/login", bytes.NewReader(raw))
	c.Request.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		c.Request.AddCookie(cookie)
	}
	handler(c)
	return w
}

func responseCookie(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("expected %s cookie", name)
	return nil
}

func TestAuthHandlerCookieFollowsIssuedExpiry(t *testing.T) {
	gin.SetMode(gin.TestMode)
	// The sequencer clock runs an hour ahead of wall time; the cookie must still carry
	// the lifetime of the issued session.
	issuedAt := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	clock := func() time.Time { return issuedAt }

	hash, errHash := security.HashPassword("secret123")
	if errHash != nil {
		t.Fatalf("hash password: %v", errHash)
	}
	seq := auth.NewSequencer(
		singleAdmin{admin: &models.Admin{ID: 1, Username: "admin", Password: hash, TOTPSecret: handlerTOTPSecret, Active: true}},
		auth.NewMemorySessionStore(clock),
		security.NewSessionTokens("handler-test-secret", clock),
		auth.Options{Now: clock},
	)
	cookie := apphttp.NewSessionCookie(config.SessionConfig{CookieName: "stockd_session", SameSite: "lax"}).WithClock(clock)
	handler := NewAuthHandler(seq, cookie)

	w := postJSON(t, handler.Login, gin.H{"username": "admin", "password": "secret123"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	pending := responseCookie(t, w, cookie.Name)
	if pending.MaxAge != int(auth.DefaultPendingTTL.Seconds()) {
		t.Fatalf("expected pending Max-Age %d, got %d", int(auth.DefaultPendingTTL.Seconds()), pending.MaxAge)
	}

	code, errCode := totp.GenerateCode(handlerTOTPSecret, issuedAt)
	if errCode != nil {
		t.Fatalf("generate code: %v", errCode)
	}
	w = postJSON(t, handler.SecondFactor, gin.H{"code": code}, pending)
	if w.Code != http.StatusOK {
		t.Fatalf("2fa: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	session := responseCookie(t, w, cookie.Name)
	if session.MaxAge != int(auth.DefaultSessionTTL.Seconds()) {
		t.Fatalf("expected session Max-Age %d, got %d", int(auth.DefaultSessionTTL.Seconds()), session.MaxAge)
	}
}
