package admin

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/veritas-stock/stockd/internal/auth"
	"github.com/veritas-stock/stockd/internal/catalog"
	apphttp "github.com/veritas-stock/stockd/internal/http"
	"github.com/veritas-stock/stockd/internal/http/api/admin/handlers"
	"github.com/veritas-stock/stockd/internal/ratelimit"
	"gorm.io/gorm"
)

// Deps carries the components behind the admin routes.
type Deps struct {
	DB        *gorm.DB
	Redis     redis.UniversalClient
	Sequencer *auth.Sequencer
	Cookie    apphttp.SessionCookie
	Limiter   *ratelimit.Limiter
	Catalog   *catalog.Service
}

// RegisterAdminRoutes registers the health check, the login sequence and the catalog edit routes.
func RegisterAdminRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.Sequencer == nil || deps.Catalog == nil {
		return
	}

	if deps.DB != nil {
		healthHandler := handlers.NewHealthHandler(deps.DB, deps.Redis)
		r.GET("/healthz", healthHandler.Healthz)
	}

	loginLimit := apphttp.RateLimitMiddleware(deps.Limiter, ratelimit.ClassLogin)
	defaultLimit := apphttp.RateLimitMiddleware(deps.Limiter, ratelimit.ClassDefault)

	authHandler := handlers.NewAuthHandler(deps.Sequencer, deps.Cookie)
	adminGroup := r.Group("/admin")
	adminGroup.POST("/login", loginLimit, authHandler.Login)
	adminGroup.POST("/2fa", loginLimit, authHandler.SecondFactor)
	adminGroup.POST("/logout", defaultLimit, authHandler.Logout)
	adminGroup.GET("/session", defaultLimit, authHandler.Session)

	stockHandler := handlers.NewStockHandler(deps.Catalog)
	authed := r.Group("/api/stock")
	authed.Use(defaultLimit, apphttp.RequireAuthenticated(deps.Sequencer, deps.Cookie))
	authed.POST("", stockHandler.Create)
	authed.PUT("/:id", stockHandler.Update)
	authed.DELETE("/:id", stockHandler.Delete)
	authed.POST("/:id/feature", stockHandler.Feature)
	authed.POST("/:id/unfeature", stockHandler.Unfeature)
}
