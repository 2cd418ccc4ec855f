package api

import (
	"referral_system/internal/referral" // Referral accounting

	"github.com/gin-gonic/gin" // Gin web framework
)

// LeaderboardHandler returns the top users by referral count
func LeaderboardHandler(svc *referral.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		board, err := svc.Leaderboard(c.Request.Context(), referral.DefaultLeaderboardSize)
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, gin.H{"leaderboard": board})
	}
}

// StatsHandler returns total users and total referrals
func StatsHandler(svc *referral.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := svc.Stats(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, gin.H{"stats": stats})
	}
}
