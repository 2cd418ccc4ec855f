// Package referral applies referral credit on signup and derives leaderboard and
// stats views. It keeps no state of its own; every call goes through the registry.
package referral

import (
	"context"                           // Request scoped cancellation
	"errors"                            // Sentinel errors
	"fmt"                               // Error wrapping and view names
	"referral_system/internal/domain"   // Importing domain models
	"referral_system/internal/metrics"  // Signup counters
	"referral_system/internal/registry" // User registry
	"referral_system/internal/utils"    // View cache
	"strings"                           // Address trimming

	"github.com/sirupsen/logrus" // Logging library
)

// DefaultLeaderboardSize is the number of entries returned by the leaderboard endpoint
const DefaultLeaderboardSize = 10

// ErrInvalidAddress is returned for an empty wallet address
var ErrInvalidAddress = errors.New("wallet address is required")

// Stats aggregates the whole registry
type Stats struct {
	TotalUsers     int `json:"totalUsers"`     // Number of registered users
	TotalReferrals int `json:"totalReferrals"` // Sum of every referral count
}

// UserPage is one page of the registry in registry order
type UserPage struct {
	Users      []domain.User `json:"users"`       // Records on this page
	Page       int           `json:"page"`        // Page number, starting at 1
	PageSize   int           `json:"page_size"`   // Records per page
	Total      int64         `json:"total"`       // Records in the registry
	TotalPages int           `json:"total_pages"` // Number of pages
}

// Service implements referral accounting over a registry
type Service struct {
	registry *registry.Registry // Authoritative store
	cache    *utils.ViewCache   // Derived views, may be nil
}

// NewService creates a Service. cache may be nil
func NewService(reg *registry.Registry, cache *utils.ViewCache) *Service {
	return &Service{registry: reg, cache: cache}
}

// ResolveOrCreateUser returns the user for address, creating it if needed. referredBy is
// only considered on creation: a matching referrer is credited once, an unknown code is
// stored as given. The boolean reports whether the user was created
func (s *Service) ResolveOrCreateUser(ctx context.Context, address string, referredBy *string) (*domain.User, bool, error) {
	address = strings.TrimSpace(address) // Ignore surrounding whitespace
	if address == "" {
		return nil, false, ErrInvalidAddress
	}
	if referredBy != nil && *referredBy == "" {
		referredBy = nil // An empty code means no referral
	}

	var (
		user    *domain.User // Resolved record
		created bool         // Whether this call created it
		outcome string       // Referral outcome for metrics
	)
	err := s.registry.Update(ctx, func(tx *registry.Tx) error {
		existing, err := tx.FindByWallet(address)
		if err != nil {
			return err
		}
		if existing != nil {
			user, created = existing, false // Known user, referral is ignored
			return tx.Touch(existing)
		}

		newUser, err := tx.Create(address, referredBy)
		if err != nil {
			return err
		}
		user, created, outcome = newUser, true, metrics.SignupDirect

		if referredBy == nil {
			return nil // Direct signup
		}
		referrer, err := tx.FindByReferralCode(*referredBy)
		if err != nil {
			return err
		}
		if referrer == nil || referrer.ID == newUser.ID {
			outcome = metrics.SignupOrphaned // Nobody to credit, code is kept as given
			return nil
		}
		if err := tx.CreditReferral(referrer); err != nil {
			return err
		}
		outcome = metrics.SignupCredited

		logrus.WithFields(logrus.Fields{
			"referrer":       referrer.WalletAddress, // Credited user
			"referred":       address,                // New user
			"referral_count": referrer.ReferralCount, // Count after credit
			"level":          referrer.Level,         // Tier after credit
		}).Info("Referral credited")
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("resolve user %s: %w", address, err)
	}

	if created {
		metrics.RecordSignup(outcome)
		logrus.WithFields(logrus.Fields{
			"wallet_address": user.WalletAddress, // New wallet
			"username":       user.Username,      // Generated username
			"referral_code":  user.ReferralCode,  // Generated code
			"referral":       outcome,            // Referral outcome
		}).Info("User created")
	}
	return user, created, nil
}

// FetchUser returns the user for address, auto-creating it without referral attribution
func (s *Service) FetchUser(ctx context.Context, address string) (*domain.User, error) {
	user, _, err := s.ResolveOrCreateUser(ctx, address, nil) // Never credits
	return user, err
}

// UpdateProfile changes the profile of an existing user. Unknown addresses are not created
func (s *Service) UpdateProfile(ctx context.Context, address string, upd registry.ProfileUpdate) (*domain.User, error) {
	var user *domain.User
	err := s.registry.Update(ctx, func(tx *registry.Tx) error {
		existing, err := tx.FindByWallet(address)
		if err != nil {
			return err
		}
		if existing == nil {
			return registry.ErrNotFound // Only existing users are updated
		}
		if err := tx.UpdateProfile(existing, upd); err != nil {
			return err // Conflicts leave the record untouched
		}
		user = existing
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update profile %s: %w", address, err)
	}

	logrus.WithFields(logrus.Fields{
		"wallet_address": user.WalletAddress, // Updated wallet
		"username":       user.Username,      // Current username
		"referral_code":  user.ReferralCode,  // Current code
	}).Info("Profile updated")
	return user, nil
}

// Leaderboard returns the topN users by referral count
func (s *Service) Leaderboard(ctx context.Context, topN int) ([]domain.User, error) {
	board, _, err := utils.Cached(ctx, s.cache, fmt.Sprintf("leaderboard:%d", topN), func() ([]domain.User, error) {
		users, err := s.snapshot(ctx)
		if err != nil {
			return nil, err
		}
		return RankUsers(users, topN), nil
	})
	return board, err
}

// Stats returns the registry totals
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	stats, _, err := utils.Cached(ctx, s.cache, "stats", func() (Stats, error) {
		users, err := s.snapshot(ctx)
		if err != nil {
			return Stats{}, err
		}
		return Summarize(users), nil
	})
	return stats, err
}

// ListUsers returns one page of the registry. The boolean reports a cache hit
func (s *Service) ListUsers(ctx context.Context, page, pageSize int) (UserPage, bool, error) {
	name := fmt.Sprintf("users:page=%d:size=%d", page, pageSize) // One entry per page shape
	return utils.Cached(ctx, s.cache, name, func() (UserPage, error) {
		result := UserPage{Page: page, PageSize: pageSize}
		err := s.registry.View(ctx, func(tx *registry.Tx) error {
			total, err := tx.Count()
			if err != nil {
				return err
			}
			users, err := tx.Page((page-1)*pageSize, pageSize)
			if err != nil {
				return err
			}
			result.Total = total // Registry size
			result.Users = users // Records on this page
			return nil
		})
		if err != nil {
			return UserPage{}, err
		}
		result.TotalPages = (int(result.Total) + pageSize - 1) / pageSize // Round up
		return result, nil
	})
}

// snapshot loads every record in registry order
func (s *Service) snapshot(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := s.registry.View(ctx, func(tx *registry.Tx) error {
		var err error
		users, err = tx.Snapshot()
		return err
	})
	return users, err
}
