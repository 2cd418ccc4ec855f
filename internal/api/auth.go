package api

import (
	"net/http"                       // HTTP status codes
	"referral_system/internal/utils" // Utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"golang.org/x/crypto/bcrypt" // Password hashing
)

// AdminCredentials are the operator credentials loaded from configuration
type AdminCredentials struct {
	Username     string // Admin login name
	PasswordHash string // Bcrypt hash of the admin password
	JWTSecret    string // Secret used to sign tokens
}

// enabled reports whether admin login is configured
func (a AdminCredentials) enabled() bool {
	return a.PasswordHash != "" && a.JWTSecret != ""
}

// LoginRequest represents an admin login
type LoginRequest struct {
	Username string `json:"username" binding:"required"` // Username must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// AdminLoginHandler authenticates the operator and returns a JWT token
func AdminLoginHandler(creds AdminCredentials) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Refuse when no credentials are configured
		if !creds.enabled() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Admin login disabled"})
			return
		}
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, ErrMalformed) // If binding fails, return bad request
			return
		}
		// Compare provided credentials with the configured ones
		if req.Username != creds.Username ||
			bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(req.Password)) != nil {
			logrus.WithFields(logrus.Fields{
				"username":  req.Username, // Attempted username
				"client_ip": c.ClientIP(), // Caller address
			}).Warn("Admin login rejected")
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid credentials"})
			return
		}
		// Generate JWT token
		token, err := utils.GenerateJWT(req.Username, utils.RoleAdmin, creds.JWTSecret)
		if err != nil {
			respondError(c, err) // If token generation fails, return internal server error
			return
		}
		respondOK(c, gin.H{"token": token}) // Return the token in the response
	}
}
