package main

import (
	"context"                           // Context for Redis and shutdown
	"errors"                            // Error matching
	"net/http"                          // HTTP server
	"os"                                // OS signals
	"os/signal"                         // Signal notification
	"referral_system/internal/api"      // Custom package for API handlers
	"referral_system/internal/config"   // Custom package for configuration
	"referral_system/internal/db"       // Custom package for database access
	"referral_system/internal/referral" // Custom package for referral accounting
	"referral_system/internal/registry" // Custom package for the user registry
	"referral_system/internal/utils"    // Custom package for caching helpers
	"syscall"                           // Signal numbers
	"time"                              // Timeouts

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{}) // Machine readable logs in production
	}

	// Connect to the database
	gormDB, err := db.Open(cfg.DSN())
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Registry writes are serialized across every server sharing this Redis
	viewCache := utils.NewViewCache(redisClient, "referral:views", cfg.CacheTTL)
	reg := registry.New(gormDB,
		registry.WithLocker(registry.NewRedisLocker(redisClient, "referral:registry:lock", cfg.LockTTL)),
		registry.WithViewCache(viewCache),
	)
	svc := referral.NewService(reg, viewCache)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := api.NewRouter(api.Deps{
		Service: svc,         // Referral accounting
		DB:      gormDB,      // Database for health checks
		Redis:   redisClient, // Redis for health checks
		Admin: api.AdminCredentials{
			Username:     cfg.AdminUsername,     // Admin login name
			PasswordHash: cfg.AdminPasswordHash, // Admin password hash
			JWTSecret:    cfg.JWTSecret,         // Token secret
		},
	})

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort, // Listen address
		Handler:           r,                 // Gin engine
		ReadHeaderTimeout: 10 * time.Second,  // Slow client guard
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logrus.WithField("port", cfg.AppPort).Info("Server running") // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done() // Wait for a shutdown signal

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("server shutdown: %v", err)
	}
	_ = redisClient.Close() // Release Redis connections
	logrus.Info("Server stopped")
}
