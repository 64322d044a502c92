package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	db    *gorm.DB
	redis redis.UniversalClient
}

// NewHealthHandler constructs a HealthHandler. rdb may be nil when Redis is not configured.
func NewHealthHandler(db *gorm.DB, rdb redis.UniversalClient) *HealthHandler {
	return &HealthHandler{db: db, redis: rdb}
}

// Healthz checks database and Redis connectivity and returns status.
func (h *HealthHandler) Healthz(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
		return
	}
	if errPing := sqlDB.PingContext(c.Request.Context()); errPing != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "database": false})
		return
	}
	if h.redis != nil {
		if errPing := h.redis.Ping(c.Request.Context()).Err(); errPing != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "redis": false})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
