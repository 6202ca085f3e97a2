package main

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"slots-backend/internal/config"
	"slots-backend/internal/handlers"
	"slots-backend/internal/middleware"
	"slots-backend/internal/services"
	"slots-backend/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var logger *zap.Logger
	if cfg.Env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	var gameStore store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pg.Close()
		gameStore = pg
		logger.Info("using postgres store")
	} else {
		gameStore = store.NewMemoryStore()
		logger.Warn("DATABASE_URL not set, using in-memory store")
	}

	var (
		sessions    services.SessionStore
		idempotency services.IdempotencyStore
		limiter     services.RateLimiter
	)
	if cfg.RedisAddr != "" {
		redisService, err := services.NewRedisService(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisService.Close()
		redisService.Configure(cfg.SessionTTL, cfg.IdempotencyTTL, cfg.SpinRateLimit, cfg.SpinRateWindow)
		sessions = redisService
		idempotency = redisService
		limiter = redisService
		logger.Info("using redis for sessions, idempotency and rate limits")
	} else {
		sessionManager := services.NewSessionManager(cfg.SessionTTL)
		idempotencyCache := services.NewIdempotencyCache(cfg.IdempotencyTTL)
		rateLimiter := services.NewSpinRateLimiter(cfg.SpinRateLimit, cfg.SpinRateWindow)
		sessions = sessionManager
		idempotency = idempotencyCache
		limiter = rateLimiter

		go func() {
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()

			for range ticker.C {
				sessionManager.Sweep()
				idempotencyCache.Sweep()
				rateLimiter.Sweep()
			}
		}()
	}

	jwtService := services.NewJWTService(cfg.JWTSecret, 24*time.Hour)
	orchestrator := services.NewSpinOrchestrator(gameStore, sessions, idempotency, limiter, logger)

	wsHandler := handlers.NewWebSocketHandler(logger)
	orchestrator.SetBroadcaster(wsHandler)

	gameHandler := handlers.NewGameHandler(orchestrator)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Idempotency-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	protected := router.Group("/api/v1")
	protected.Use(middleware.AuthMiddleware(jwtService))
	{
		protected.GET("/ws", wsHandler.HandleWebSocket)

		protected.POST("/game/init", gameHandler.InitGame)
		protected.POST("/spin", gameHandler.Spin)
		protected.GET("/history", gameHandler.History)
		protected.GET("/rounds/:id", gameHandler.RoundDetail)

		fairness := protected.Group("/provably-fair")
		{
			fairness.GET("", gameHandler.FairState)
			fairness.POST("/rotate", gameHandler.RotateSeeds)
			fairness.PUT("/client-seed", gameHandler.SetClientSeed)
		}
	}

	logger.Info("server starting", zap.String("port", cfg.Port))
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
