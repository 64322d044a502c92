package front

import (
	"github.com/gin-gonic/gin"
	"github.com/veritas-stock/stockd/internal/catalog"
	apphttp "github.com/veritas-stock/stockd/internal/http"
	"github.com/veritas-stock/stockd/internal/http/api/front/handlers"
	"github.com/veritas-stock/stockd/internal/ratelimit"
)

// RegisterFrontRoutes registers the public catalog reads.
func RegisterFrontRoutes(r *gin.Engine, service *catalog.Service, limiter *ratelimit.Limiter) {
	if r == nil || service == nil {
		return
	}

	front := r.Group("/api/stock")
	front.Use(apphttp.RateLimitMiddleware(limiter, ratelimit.ClassDefault))

	stockHandler := handlers.NewStockHandler(service)
	front.GET("", stockHandler.List)
	front.GET("/:id", stockHandler.Get)
}
