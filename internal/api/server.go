// Package api assembles the HTTP surface of the scan gateway: server
// construction, route registration, and health checks.
package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safelink/scan-gateway/internal/config"
	"github.com/safelink/scan-gateway/internal/handler"
	"github.com/safelink/scan-gateway/internal/httpserver"
	"github.com/safelink/scan-gateway/internal/identity"
	"github.com/safelink/scan-gateway/internal/logger"
	"github.com/safelink/scan-gateway/internal/metrics"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 60 * time.Second
)

// Dependencies holds everything the HTTP surface needs.
type Dependencies struct {
	ScanHandler  *handler.ScanHandler
	StatsHandler *handler.StatsHandler
	Verifier     identity.Verifier
	Metrics      *metrics.Metrics
	RedisPing    func(ctx context.Context) error
	Done         <-chan struct{}
}

// NewServer creates the gateway HTTP server with all routes registered.
func NewServer(cfg *config.Config, deps Dependencies, log logger.Logger) *httpserver.Server {
	srvCfg := &httpserver.Config{
		Port:           cfg.Service.Port,
		Debug:          cfg.Service.Debug,
		ReadTimeout:    defaultReadTimeout,
		WriteTimeout:   defaultWriteTimeout,
		IdleTimeout:    defaultIdleTimeout,
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		CORS: httpserver.CORSConfig{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
		},
	}

	return httpserver.New(srvCfg, log, func(router *gin.Engine) {
		SetupRoutes(router, cfg, deps)
	})
}
