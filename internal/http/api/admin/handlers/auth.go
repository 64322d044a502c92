package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/veritas-stock/stockd/internal/auth"
	apphttp "github.com/veritas-stock/stockd/internal/http"
)

// AuthHandler handles the admin login sequence.
type AuthHandler struct {
	seq    *auth.Sequencer
	cookie apphttp.SessionCookie
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(seq *auth.Sequencer, cookie apphttp.SessionCookie) *AuthHandler {
	return &AuthHandler{seq: seq, cookie: cookie}
}

// loginRequest defines the request body for the password step.
type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// secondFactorRequest defines the request body for the TOTP step.
type secondFactorRequest struct {
	Code string `json:"code" form:"code"`
}

// Login verifies username and password and starts the second-factor step.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBind(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	token, expiresAt, err := h.seq.BeginLogin(c.Request.Context(), h.cookie.Read(c), body.Username, body.Password)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	case errors.Is(err, auth.ErrAuthenticationFailed):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	default:
		respondInternal(c, err)
		return
	}

	h.cookie.Write(c, token, expiresAt)
	c.JSON(http.StatusOK, gin.H{"next": "2fa"})
}

// SecondFactor checks the TOTP code and promotes the session.
func (h *AuthHandler) SecondFactor(c *gin.Context) {
	var body secondFactorRequest
	if errBind := c.ShouldBind(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	token, expiresAt, err := h.seq.CompleteLogin(c.Request.Context(), h.cookie.Read(c), body.Code)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	case errors.Is(err, auth.ErrAuthenticationFailed):
		h.cookie.Clear(c)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid code"})
		return
	default:
		respondInternal(c, err)
		return
	}

	h.cookie.Write(c, token, expiresAt)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Logout discards the session and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	err := h.seq.Logout(c.Request.Context(), h.cookie.Read(c))
	h.cookie.Clear(c)
	if err != nil {
		respondInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Session reports the phase of the caller's session.
func (h *AuthHandler) Session(c *gin.Context) {
	state, err := h.seq.Current(c.Request.Context(), h.cookie.Read(c))
	if err != nil {
		respondInternal(c, err)
		return
	}
	resp := gin.H{
		"phase":         state.Phase.String(),
		"authenticated": state.Phase == auth.PhaseAuthenticated,
	}
	if state.Phase != auth.PhaseAnonymous {
		resp["expires_at"] = state.ExpiresAt
	}
	c.JSON(http.StatusOK, resp)
}

// respondInternal logs err and writes a generic 500.
func respondInternal(c *gin.Context, err error) {
	log.WithError(err).WithField("path", c.FullPath()).Error("admin request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
