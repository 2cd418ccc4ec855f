package domain

import (
	"time" // Timestamps

	"gorm.io/gorm" // GORM ORM library
)

// ReferralReward is the number of reward points credited per successful referral
const ReferralReward = 100

// User Model, one row per wallet address. ID defines the registry order
type User struct {
	ID            uint      `gorm:"primaryKey" json:"-"`                                // Primary key, registry order
	WalletAddress string    `gorm:"size:128;uniqueIndex;not null" json:"walletAddress"` // Unique wallet address
	Username      string    `gorm:"size:64;uniqueIndex;not null" json:"username"`       // Unique display name
	ReferralCode  string    `gorm:"size:32;uniqueIndex;not null" json:"referralCode"`   // Unique referral code
	ReferredBy    *string   `gorm:"type:text" json:"referredBy"`                        // Code used at signup, stored as given
	ReferralCount int       `gorm:"not null;default:0" json:"referralCount"`            // Successful referrals
	TotalRewards  int       `gorm:"not null;default:0" json:"totalRewards"`             // Points earned from referrals
	Level         string    `gorm:"size:16;not null;default:bronze" json:"level"`       // Tier derived from ReferralCount
	JoinedAt      time.Time `gorm:"not null" json:"joinedAt"`                           // Creation time
	LastActive    time.Time `gorm:"not null" json:"lastActive"`                         // Last create or fetch
	AvatarURL     string    `gorm:"type:text;not null" json:"avatarUrl"`                // Free-form avatar link
}

// BeforeSave keeps Level in lockstep with ReferralCount on every full-row write
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Level = LevelFor(u.ReferralCount) // Recompute derived tier
	return nil
}
