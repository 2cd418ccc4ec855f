package api

import (
	"errors"                            // Error matching
	"net/http"                          // HTTP status codes
	"referral_system/internal/referral" // Referral accounting
	"referral_system/internal/registry" // User registry

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// ErrMalformed marks a request body that is missing required fields or is not valid JSON
var ErrMalformed = errors.New("malformed request")

// respondOK writes a success payload with the given extra fields
func respondOK(c *gin.Context, fields gin.H) {
	body := gin.H{"success": true} // Success flag
	for k, v := range fields {
		body[k] = v // Copy payload fields
	}
	c.JSON(http.StatusOK, body)
}

// respondError maps an error onto a status code and a {success:false, error} payload
func respondError(c *gin.Context, err error) {
	status, msg := http.StatusInternalServerError, "Internal server error" // Default to a generic failure
	switch {
	case errors.Is(err, registry.ErrNotFound):
		status, msg = http.StatusNotFound, "User not found"
	case errors.Is(err, registry.ErrUsernameTaken):
		status, msg = http.StatusBadRequest, "Username already taken"
	case errors.Is(err, registry.ErrReferralCodeTaken):
		status, msg = http.StatusBadRequest, "Referral code already taken"
	case errors.Is(err, referral.ErrInvalidAddress):
		status, msg = http.StatusBadRequest, "walletAddress is required"
	case errors.Is(err, ErrMalformed):
		status, msg = http.StatusBadRequest, "Invalid request"
	}
	// Unexpected failures are logged with request context
	if status == http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"method": c.Request.Method,   // HTTP method
			"path":   c.Request.URL.Path, // Request path
			"error":  err.Error(),        // Error message
		}).Error("Request failed")
	}
	c.JSON(status, gin.H{"success": false, "error": msg})
}
