package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/veritas-stock/stockd/internal/auth"
)

// Context keys set by RequireAuthenticated.
const (
	ContextAdminID = "adminID"
)

// RequireAuthenticated rejects requests without an authenticated admin session.
func RequireAuthenticated(seq *auth.Sequencer, cookie SessionCookie) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := cookie.Read(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		state, err := seq.Current(c.Request.Context(), token)
		if err != nil {
			log.WithError(err).Error("session lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if state.Phase != auth.PhaseAuthenticated {
			// A pending token stays usable for the second-factor step.
			if state.Phase == auth.PhaseAnonymous {
				cookie.Clear(c)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(ContextAdminID, state.PrincipalID)
		c.Next()
	}
}
