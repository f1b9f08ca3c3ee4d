// Package http assembles the gin route tree and the server lifecycle.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/folira/folira/internal/infrastructure/monitoring/logging"
	"github.com/folira/folira/internal/interfaces/http/handlers"
	"github.com/folira/folira/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies for the
// complete route tree.  Nil handlers leave their routes unmounted so tests
// can build partial routers.
type RouterConfig struct {
	Mode string // gin mode: "debug" | "release" | "test"

	OptimizeHandler  *handlers.OptimizeHandler
	PortfolioHandler *handlers.PortfolioHandler
	HealthHandler    *handlers.HealthHandler
	MetricsHandler   http.Handler

	Logger logging.Logger
}

// NewRouter builds the route tree.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogging(cfg.Logger))

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	v1 := r.Group("/v1")
	if cfg.OptimizeHandler != nil {
		v1.POST("/optimize", cfg.OptimizeHandler.Optimize)
	}
	if cfg.PortfolioHandler != nil {
		v1.GET("/portfolios/:owner", cfg.PortfolioHandler.GetCurrent)
		v1.GET("/portfolios/versions/:id", cfg.PortfolioHandler.GetByID)
	}

	return r
}
