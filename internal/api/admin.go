package api

import (
	"referral_system/internal/referral" // Referral accounting
	"strconv"                           // String conversion

	"github.com/gin-gonic/gin" // Gin web framework
)

const (
	defaultPageSize = 20  // Default page size
	maxPageSize     = 100 // Largest allowed page size
)

// ListUsersHandler returns the registry page by page, in registry order
func ListUsersHandler(svc *referral.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := 1                   // Default page number
		pageSize := defaultPageSize // Default page size
		if p := c.Query("page"); p != "" {
			if v, err := strconv.Atoi(p); err == nil && v > 0 {
				page = v // Set page if valid
			}
		}
		// Check and set page size within limits
		if ps := c.Query("page_size"); ps != "" {
			if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= maxPageSize {
				pageSize = v // Set page size
			}
		}
		result, cached, err := svc.ListUsers(c.Request.Context(), page, pageSize)
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, gin.H{
			"users":       result.Users,      // Users on this page
			"page":        result.Page,       // Current page
			"page_size":   result.PageSize,   // Page size
			"total":       result.Total,      // Total number of users
			"total_pages": result.TotalPages, // Total pages
			"cached":      cached,            // Whether the page came from cache
		})
	}
}
