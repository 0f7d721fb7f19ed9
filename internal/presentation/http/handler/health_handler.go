package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/nedlia/placement-api/pkg/resilience"
)

// HealthHandler reports process liveness and dependency readiness
type HealthHandler struct {
	db       *gorm.DB
	redis    redis.UniversalClient
	breakers *resilience.Registry
}

// NewHealthHandler creates a new health handler. The Redis client may be
// nil when the service runs on in-memory coordination stores.
func NewHealthHandler(db *gorm.DB, redisClient redis.UniversalClient, breakers *resilience.Registry) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient, breakers: breakers}
}

// Live handles the liveness probe
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready handles the readiness probe. It reports per-dependency health and
// the state of every circuit breaker; the probe fails only when the
// database is unreachable.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	healthy := true

	dbStatus := "ok"
	sqlDB, err := h.db.DB()
	if err != nil {
		dbStatus = err.Error()
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = err.Error()
	}
	if dbStatus != "ok" {
		healthy = false
	}
	checks["database"] = dbStatus

	if h.redis != nil {
		redisStatus := "ok"
		if err := h.redis.Ping(ctx).Err(); err != nil {
			// Coordination stores degrade gracefully, so a Redis outage
			// does not fail readiness.
			redisStatus = err.Error()
		}
		checks["redis"] = redisStatus
	}

	breakerStates := gin.H{}
	for name, state := range h.breakers.States() {
		breakerStates[name] = string(state)
	}
	checks["breakers"] = breakerStates

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	c.JSON(status, gin.H{"status": overall, "checks": checks})
}
