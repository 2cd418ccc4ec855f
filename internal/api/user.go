package api

import (
	"referral_system/internal/referral" // Referral accounting
	"referral_system/internal/registry" // User registry

	"github.com/gin-gonic/gin" // Gin web framework
)

// CreateUserRequest represents a create-or-fetch request
type CreateUserRequest struct {
	WalletAddress string  `json:"walletAddress" binding:"required,max=128"` // Wallet address must be provided
	ReferredBy    *string `json:"referredBy"`                               // Optional referral code, stored as given
}

// UpdateProfileRequest represents a profile update. A present avatarUrl is applied even when empty
type UpdateProfileRequest struct {
	Username     string  `json:"username" binding:"max=64"`     // New username, ignored when empty
	ReferralCode string  `json:"referralCode" binding:"max=32"` // New referral code, ignored when empty
	AvatarURL    *string `json:"avatarUrl"`                     // New avatar, nil when absent
}

// CreateUserHandler creates the user on first sight, crediting the referrer, or touches an existing one
func CreateUserHandler(svc *referral.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateUserRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, ErrMalformed) // Missing walletAddress or invalid JSON
			return
		}
		user, _, err := svc.ResolveOrCreateUser(c.Request.Context(), req.WalletAddress, req.ReferredBy)
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, gin.H{"user": user}) // Return the user record
	}
}

// GetUserHandler returns the user for the path address, auto-creating it without referral credit
func GetUserHandler(svc *referral.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := svc.FetchUser(c.Request.Context(), c.Param("walletAddress"))
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, gin.H{"user": user}) // Return the user record
	}
}

// UpdateUserHandler updates username, referral code and avatar of an existing user
func UpdateUserHandler(svc *referral.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req UpdateProfileRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, ErrMalformed) // Invalid JSON
			return
		}
		upd := registry.ProfileUpdate{
			Username:     req.Username,     // Requested username
			ReferralCode: req.ReferralCode, // Requested referral code
			AvatarURL:    req.AvatarURL,    // Requested avatar
		}
		user, err := svc.UpdateProfile(c.Request.Context(), c.Param("walletAddress"), upd)
		if err != nil {
			respondError(c, err) // 404 unknown user, 400 conflict
			return
		}
		respondOK(c, gin.H{"user": user}) // Return the updated record
	}
}
