package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"time"    // For durations

	"github.com/joho/godotenv" // For loading .env files
)

// DefaultAppPort is the port used when APP_PORT is unset
const DefaultAppPort = "3000"

// Config holds the application configuration
type Config struct {
	AppPort           string        // Application port
	DBUser            string        // Database user
	DBPassword        string        // Database password
	DBHost            string        // Database host
	DBPort            string        // Database port
	DBName            string        // Database name
	RedisAddr         string        // Redis server address
	RedisPass         string        // Redis password
	RedisDB           int           // Redis database number
	IsProd            bool          // Is production environment
	JWTSecret         string        // JWT secret key for admin tokens
	AdminUsername     string        // Admin login name
	AdminPasswordHash string        // Bcrypt hash of the admin password
	LockTTL           time.Duration // Registry write lock lifetime
	CacheTTL          time.Duration // Cached view lifetime
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	return &Config{
		AppPort:           getEnv("APP_PORT", DefaultAppPort),     // Application port
		DBUser:            getEnv("DB_USER", "root"),              // Database user
		DBPassword:        os.Getenv("DB_PASSWORD"),               // Database password
		DBHost:            getEnv("DB_HOST", "127.0.0.1"),         // Database host
		DBPort:            getEnv("DB_PORT", "3306"),              // Database port
		DBName:            getEnv("DB_NAME", "referral_system"),   // Database name
		RedisAddr:         getEnv("REDIS_ADDR", "127.0.0.1:6379"), // Redis server address
		RedisPass:         os.Getenv("REDIS_PASS"),                // Redis password
		RedisDB:           getEnvInt("REDIS_DB", 0),               // Redis database number
		IsProd:            os.Getenv("IS_PROD") == "true",         // Is production environment
		JWTSecret:         os.Getenv("JWT_SECRET"),                // JWT secret key
		AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),      // Admin login name
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),       // Admin password hash
		LockTTL:           getEnvSeconds("LOCK_TTL_SECONDS", 10),  // Write lock lifetime
		CacheTTL:          getEnvSeconds("CACHE_TTL_SECONDS", 60), // Cached view lifetime
	}
}

// DSN returns the MySQL data source name
func (c *Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}

// getEnv returns the variable or fallback when unset or empty
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

// getEnvInt parses an integer variable, using fallback when unset or invalid
func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

// getEnvSeconds parses a positive number of seconds
func getEnvSeconds(key string, fallback int) time.Duration {
	v := getEnvInt(key, fallback)
	if v <= 0 {
		v = fallback
	}
	return time.Duration(v) * time.Second
}
