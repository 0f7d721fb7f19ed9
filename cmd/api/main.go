package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/nedlia/placement-api/internal/application/service"
	"github.com/nedlia/placement-api/internal/config"
	"github.com/nedlia/placement-api/internal/consumer"
	"github.com/nedlia/placement-api/internal/coordination/idempotency"
	"github.com/nedlia/placement-api/internal/coordination/ratelimit"
	"github.com/nedlia/placement-api/internal/infrastructure/database"
	"github.com/nedlia/placement-api/internal/infrastructure/filegen"
	"github.com/nedlia/placement-api/internal/infrastructure/repository"
	"github.com/nedlia/placement-api/internal/presentation/http/handler"
	"github.com/nedlia/placement-api/internal/presentation/http/routes"
	"github.com/nedlia/placement-api/pkg/resilience"
	"github.com/nedlia/placement-api/pkg/utils"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Connect to the shared coordination store. Without an address the
	// service runs on in-memory stores, which only bound one process.
	var redisClient redis.UniversalClient
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	} else {
		log.Println("Warning: REDIS_ADDR not set, using in-memory coordination stores")
	}

	// Initialize JWT manager
	jwtManager := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.ExpiryHours)

	// Initialize resilience primitives
	breakers := resilience.NewRegistry(resilience.BreakerSettings{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		RecoveryTimeout:  cfg.Breaker.RecoveryTimeout,
		HalfOpenMaxCalls: cfg.Breaker.HalfOpenMaxCalls,
	})
	retryPolicy := resilience.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
	}

	// Initialize the idempotency coordinator
	var idemStore idempotency.Store
	if redisClient != nil {
		idemStore = idempotency.NewRedisStore(redisClient)
	} else {
		idemStore = idempotency.NewMemoryStore()
	}
	coordinator := idempotency.NewCoordinator(idemStore, idempotency.Config{
		RecordTTL:     cfg.Idempotency.RecordTTL,
		ProcessingTTL: cfg.Idempotency.ProcessingTTL,
	})

	// Initialize the rate limiter
	limiterCfg := ratelimit.Config{
		Limit:  cfg.RateLimit.Requests,
		Window: cfg.RateLimit.Window(),
	}
	var limiter ratelimit.Limiter
	switch {
	case redisClient != nil && cfg.RateLimit.Algorithm == "sliding_window":
		limiter = ratelimit.NewSlidingWindowLimiter(redisClient, limiterCfg)
	case redisClient != nil:
		limiter = ratelimit.NewFixedWindowLimiter(redisClient, limiterCfg)
	case cfg.RateLimit.Algorithm == "sliding_window":
		limiter = ratelimit.NewMemorySlidingWindowLimiter(limiterCfg)
	default:
		limiter = ratelimit.NewMemoryFixedWindowLimiter(limiterCfg)
	}

	// Initialize repositories and services
	placementRepo := repository.NewPlacementRepository(db)
	fileGenClient := filegen.NewClient(cfg.FileGen, breakers.Get(filegen.BreakerName), retryPolicy)
	placementService := service.NewPlacementService(placementRepo, fileGenClient)

	// Initialize the batch event processor
	processor := consumer.NewProcessor(coordinator, handler.NewPlacementEventHandler(placementService))

	// Initialize handlers
	h := &routes.Handlers{
		Placement: handler.NewPlacementHandler(placementService),
		Events:    handler.NewEventsHandler(processor),
		Health:    handler.NewHealthHandler(db, redisClient, breakers),
	}

	router := routes.Setup(h, &routes.Deps{
		JWTManager:  jwtManager,
		Cfg:         cfg,
		Coordinator: coordinator,
		RateLimiter: limiter,
	})

	addr := ":" + cfg.App.Port
	log.Printf("Starting %s on %s", cfg.App.Name, addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
