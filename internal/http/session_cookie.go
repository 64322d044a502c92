package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/veritas-stock/stockd/internal/config"
)

// SessionCookie carries the admin session token between requests.
type SessionCookie struct {
	Name     string
	Path     string
	Secure   bool
	SameSite http.SameSite
	now      func() time.Time
}

// NewSessionCookie builds the cookie carrier from the session section.
func NewSessionCookie(cfg config.SessionConfig) SessionCookie {
	return SessionCookie{
		Name:     cfg.CookieName,
		Path:     "/",
		Secure:   cfg.Secure,
		SameSite: cfg.SameSiteMode(),
		now:      time.Now,
	}
}

// WithClock returns a copy using now for Max-Age computation.
func (s SessionCookie) WithClock(now func() time.Time) SessionCookie {
	if now != nil {
		s.now = now
	}
	return s
}

// Read returns the token sent by the client, or "".
func (s SessionCookie) Read(c *gin.Context) string {
	value, err := c.Cookie(s.Name)
	if err != nil {
		return ""
	}
	return value
}

// Write sets the token cookie until expiresAt. The cookie is always HttpOnly.
func (s SessionCookie) Write(c *gin.Context, token string, expiresAt time.Time) {
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	maxAge := int(expiresAt.Sub(now()).Seconds())
	if maxAge <= 0 {
		s.Clear(c)
		return
	}
	c.SetSameSite(s.SameSite)
	c.SetCookie(s.Name, token, maxAge, s.path(), "", s.Secure, true)
}

// Clear expires the token cookie.
func (s SessionCookie) Clear(c *gin.Context) {
	c.SetSameSite(s.SameSite)
	c.SetCookie(s.Name, "", -1, s.path(), "", s.Secure, true)
}

func (s SessionCookie) path() string {
	if s.Path == "" {
		return "/"
	}
	return s.Path
}
