package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safelink/scan-gateway/internal/config"
	"github.com/safelink/scan-gateway/internal/httpserver"
	"github.com/safelink/scan-gateway/internal/middleware"
)

// redisPingTimeout bounds the health check round trip.
const redisPingTimeout = 2 * time.Second

// SetupRoutes configures all API routes.
func SetupRoutes(router *gin.Engine, cfg *config.Config, deps Dependencies) {
	checks := map[string]httpserver.HealthChecker{}
	if deps.RedisPing != nil {
		checks["redis"] = httpserver.RedisHealthChecker(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
			defer cancel()
			return deps.RedisPing(ctx)
		})
	}
	httpserver.RegisterHealthRoutes(router, httpserver.HealthOptions{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		Checks:         checks,
	})

	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	v1 := router.Group("/api/v1")

	// The scan route authenticates inside the admission pipeline; the IP
	// limiter in front of it keeps anonymous abuse away from token checks.
	scan := v1.Group("")
	window := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
	scan.Use(middleware.RateLimiter(cfg.RateLimit.MaxRequestsPerMinute, window, deps.Done))
	scan.POST("/scan", deps.ScanHandler.HandleScan)

	// Usage endpoints authenticate up front.
	usage := v1.Group("")
	usage.Use(middleware.Auth(deps.Verifier))
	usage.GET("/stats", deps.StatsHandler.HandleStats)
	usage.GET("/limits", deps.StatsHandler.HandleLimits)
}
