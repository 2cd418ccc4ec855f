package middleware

import (
	"net/http"                       // HTTP status codes
	"referral_system/internal/utils" // Role constants

	"github.com/gin-gonic/gin" // Gin web framework
)

// AdminOnlyMiddleware checks the role claim set by JWTAuthMiddleware
func AdminOnlyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("role") // Get role from context
		// Check if role exists in context
		if !exists {
			// If not, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized"})
			return
		}
		// Check if role is admin
		if role != utils.RoleAdmin {
			// If not admin, abort with forbidden status
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "Admin access required"})
			return
		}
		// If admin, proceed to the next handler
		c.Next()
	}
}
