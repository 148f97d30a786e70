// Package http assembles the broker's HTTP surface.
package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/healthcoresys/core/internal/config"
	"github.com/healthcoresys/core/internal/infrastructure/monitoring"
	"github.com/healthcoresys/core/internal/infrastructure/ratelimit"
	"github.com/healthcoresys/core/internal/interfaces/http/handlers"
	"github.com/healthcoresys/core/internal/interfaces/http/middleware"
	"github.com/healthcoresys/core/pkg/constants"
	"github.com/healthcoresys/core/pkg/logger"
)

// RouterDeps collects everything the router mounts.
type RouterDeps struct {
	Config   *config.Config
	Tokens   *handlers.TokenHandler
	JWKS     *handlers.JWKSHandler
	Health   *handlers.HealthHandler
	Admitter ratelimit.Admitter
	Metrics  *monitoring.Metrics
	Registry prometheus.Gatherer
	Log      logger.Logger
}

// NewRouter builds the gin engine with the full middleware chain. Admission
// wraps only the mint route; the key set and health endpoints stay cheap
// and unthrottled.
func NewRouter(deps RouterDeps) *gin.Engine {
	if !deps.Config.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Log))

	if len(deps.Config.CORS.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     deps.Config.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
			ExposeHeaders:    []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/healthz", deps.Health.Healthz)
	r.GET(constants.JWKSWellKnownPath, deps.JWKS.KeySet)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	api.POST("/tokens/mint",
		middleware.RateLimit(deps.Admitter, deps.Metrics, deps.Log),
		deps.Tokens.Mint)

	if deps.Config.Server.Debug {
		pprof.Register(r)
	}

	return r
}
