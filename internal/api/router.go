package api

import (
	"referral_system/internal/middleware" // Custom middleware
	"referral_system/internal/referral"   // Referral accounting

	"github.com/gin-gonic/gin"                                // Gin web framework
	"github.com/prometheus/client_golang/prometheus/promhttp" // Metrics exposition
	"github.com/redis/go-redis/v9"                            // Redis client
	"gorm.io/gorm"                                            // GORM ORM library
)

// Deps are the collaborators the HTTP layer needs
type Deps struct {
	Service *referral.Service // Referral accounting
	DB      *gorm.DB          // Database, for health checks
	Redis   *redis.Client     // Redis, for health checks, may be nil
	Admin   AdminCredentials  // Operator credentials
}

// NewRouter registers every route on a new gin engine
func NewRouter(d Deps) *gin.Engine {
	r := gin.Default()                               // Gin router instance with logger and recovery
	r.Use(middleware.MetricsMiddleware())            // Request metrics
	r.GET("/healthz", HealthHandler(d.DB, d.Redis))  // Health endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler())) // Prometheus endpoint

	apiGroup := r.Group("/api")
	apiGroup.POST("/user", CreateUserHandler(d.Service))               // Create-or-touch endpoint
	apiGroup.GET("/user/:walletAddress", GetUserHandler(d.Service))    // Fetch endpoint, auto-creates
	apiGroup.PUT("/user/:walletAddress", UpdateUserHandler(d.Service)) // Profile update endpoint
	apiGroup.GET("/leaderboard", LeaderboardHandler(d.Service))        // Leaderboard endpoint
	apiGroup.GET("/stats", StatsHandler(d.Service))                    // Stats endpoint

	// Admin routes (protected, admin only)
	apiGroup.POST("/admin/login", AdminLoginHandler(d.Admin)) // Admin login endpoint
	adminGroup := apiGroup.Group("/admin")
	adminGroup.Use(middleware.JWTAuthMiddleware(d.Admin.JWTSecret), middleware.AdminOnlyMiddleware())
	adminGroup.GET("/users", ListUsersHandler(d.Service)) // List users endpoint

	return r
}
