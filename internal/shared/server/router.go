package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"scalpcare-backend/internal/services/health"
	"scalpcare-backend/internal/shared/metrics"
	"scalpcare-backend/internal/shared/server/middleware"
	"scalpcare-backend/internal/shared/server/respond"
)

// RouteRegistrar is implemented by every domain handler.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Options configures the shared middleware stack.
type Options struct {
	CORSAllowOrigins []string
	MaxBodyBytes     int64
	RateLimits       map[string]middleware.RateLimitRule
	RateLimitGroups  map[string]string
	Health           *health.Service
}

// DefaultRateLimits are per-client budgets for the expensive routes.
func DefaultRateLimits() (map[string]middleware.RateLimitRule, map[string]string) {
	rules := map[string]middleware.RateLimitRule{
		"CREATE":  {Rate: 0.5, Burst: 5},
		"PREVIEW": {Rate: 2, Burst: 20},
		"POLLING": {Rate: 5, Burst: 30},
	}
	groups := map[string]string{
		"POST /api/v1/customers/:phone/assessments": "CREATE",
		"POST /api/v1/assessments/preview":          "PREVIEW",
		"GET /api/v1/assessments/:id":               "POLLING",
	}
	return rules, groups
}

// NewRouter constructs the Gin engine with middleware, health routes and
// every registrar mounted under /api/v1.
func NewRouter(opts Options, registrars ...RouteRegistrar) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(opts.CORSAllowOrigins),
		middleware.BodyLimit(opts.MaxBodyBytes),
	)
	if len(opts.RateLimits) > 0 {
		r.Use(middleware.RateLimit(middleware.RateLimitConfig{
			Rules:    opts.RateLimits,
			GroupFor: middleware.GroupByRoute(opts.RateLimitGroups),
		}))
	}

	healthSvc := opts.Health
	if healthSvc == nil {
		healthSvc = health.NewService(nil)
	}

	r.GET("/healthz", func(c *gin.Context) {
		respond.OK(c, healthSvc.Liveness())
	})
	r.GET("/readyz", func(c *gin.Context) {
		report := healthSvc.Readiness(c.Request.Context())
		if !report.OK {
			respond.JSON(c, http.StatusServiceUnavailable, report)
			return
		}
		respond.OK(c, report)
	})
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.OK(c, healthSvc.Liveness())
	})
	for _, reg := range registrars {
		if reg != nil {
			reg.RegisterRoutes(api)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
