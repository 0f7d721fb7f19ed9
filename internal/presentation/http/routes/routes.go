package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/nedlia/placement-api/internal/config"
	"github.com/nedlia/placement-api/internal/coordination/idempotency"
	"github.com/nedlia/placement-api/internal/coordination/ratelimit"
	"github.com/nedlia/placement-api/internal/presentation/http/handler"
	"github.com/nedlia/placement-api/internal/presentation/http/middleware"
	"github.com/nedlia/placement-api/pkg/utils"
)

// Handlers holds all the HTTP handlers used for route registration.
type Handlers struct {
	Placement *handler.PlacementHandler
	Events    *handler.EventsHandler
	Health    *handler.HealthHandler
}

// Deps holds shared dependencies needed by the routes.
type Deps struct {
	JWTManager  *utils.JWTManager
	Cfg         *config.Config
	Coordinator *idempotency.Coordinator
	RateLimiter ratelimit.Limiter
}

// Setup creates the Gin router and registers all routes.
func Setup(h *Handlers, deps *Deps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.CORSMiddleware(&deps.Cfg.CORS))

	// Health probes sit in front of auth with only the cheap edge limiter.
	edgeLimiter := middleware.NewClientRateLimiter(middleware.DefaultClientRateLimiterConfig())
	router.GET("/health", edgeLimiter.Middleware(), h.Health.Live)
	router.GET("/health/ready", edgeLimiter.Middleware(), h.Health.Ready)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(deps.JWTManager))
		protected.Use(middleware.RateLimit(deps.RateLimiter))

		registerPlacementRoutes(protected, h, deps)
		registerInternalRoutes(protected, h)
	}

	return router
}

func registerPlacementRoutes(protected *gin.RouterGroup, h *Handlers, deps *Deps) {
	placements := protected.Group("/placements")
	{
		placements.GET("", h.Placement.List)
		placements.GET("/:id", h.Placement.Get)
		placements.GET("/:id/file", h.Placement.GetFile)
		placements.DELETE("/:id", h.Placement.Delete)

		// Writes run through the idempotency coordinator; the
		// Idempotency-Key header is mandatory on these routes.
		coordinated := placements.Group("")
		coordinated.Use(middleware.Idempotency(deps.Coordinator))
		coordinated.POST("", h.Placement.Create)
		coordinated.PUT("/:id", h.Placement.Update)
	}
}

func registerInternalRoutes(protected *gin.RouterGroup, h *Handlers) {
	internal := protected.Group("/internal")
	{
		// Batch deliveries carry per-event IDs, so the endpoint itself is
		// not idempotency-coordinated.
		internal.POST("/placement-events", h.Events.ProcessBatch)
	}
}
