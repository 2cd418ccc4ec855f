// Package registry is the authoritative store of users keyed by wallet address.
// All writes run inside Registry.Update, which holds the global writer lock for the
// whole load-check-mutate-store sequence.
package registry

import (
	"context"                         // Request scoped cancellation
	"errors"                          // Error matching
	"fmt"                             // Error wrapping
	"referral_system/internal/domain" // Importing domain models
	"referral_system/internal/utils"  // View cache
	"sync"                            // In-process writer lock
	"time"                            // Timestamps

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
)

// Registry owns all mutation of user records
type Registry struct {
	db     *gorm.DB         // Backing store
	mu     sync.Mutex       // Writer lock within this process
	locker Locker           // Writer lock across processes, optional
	cache  *utils.ViewCache // Views invalidated after every commit, optional
	now    func() time.Time // Time source
	codes  CodeGenerator    // Referral code source
}

// Option configures a Registry
type Option func(*Registry)

// WithLocker adds a cross-process lock taken after the in-process mutex
func WithLocker(l Locker) Option {
	return func(r *Registry) { r.locker = l }
}

// WithViewCache makes every committed write invalidate the cached views
func WithViewCache(c *utils.ViewCache) Option {
	return func(r *Registry) { r.cache = c }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithCodeGenerator overrides the referral code source
func WithCodeGenerator(gen CodeGenerator) Option {
	return func(r *Registry) { r.codes = gen }
}

// New creates a Registry backed by db
func New(db *gorm.DB, opts ...Option) *Registry {
	r := &Registry{
		db:    db,                                           // Backing store
		now:   func() time.Time { return time.Now().UTC() }, // Wall clock in UTC
		codes: NewReferralCode,                              // Random referral codes
	}
	for _, opt := range opts {
		opt(r) // Apply options
	}
	return r
}

// Update runs fn as one transaction under the global writer lock. Nothing fn wrote is
// kept if it returns an error
func (r *Registry) Update(ctx context.Context, fn func(tx *Tx) error) error {
	r.mu.Lock()         // Serialize writers in this process
	defer r.mu.Unlock() // Released after the views are invalidated

	if r.locker != nil {
		unlock, err := r.locker.Lock(ctx) // Serialize writers across processes
		if err != nil {
			return fmt.Errorf("lock registry: %w", err)
		}
		defer unlock() // Release the shared lock last
	}

	// Run the whole sequence in a single database transaction
	err := r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(r.newTx(db))
	})
	if err != nil {
		return err // Rolled back, views are still current
	}

	if r.cache != nil {
		// The write is committed, so invalidate even if the caller went away
		if err := r.cache.Invalidate(context.WithoutCancel(ctx)); err != nil {
			logrus.WithFields(logrus.Fields{
				"error": err.Error(), // Error message
			}).Warn("Failed to invalidate registry views, serving them uncached")
		}
	}
	return nil
}

// View runs fn against the current committed state without taking the writer lock
func (r *Registry) View(ctx context.Context, fn func(tx *Tx) error) error {
	return fn(r.newTx(r.db.WithContext(ctx)))
}

func (r *Registry) newTx(db *gorm.DB) *Tx {
	return &Tx{db: db, now: r.now, codes: r.codes}
}

// Tx exposes registry operations bound to one Update or View scope
type Tx struct {
	db    *gorm.DB         // Transaction or plain session
	now   func() time.Time // Time source
	codes CodeGenerator    // Referral code source
}

// ProfileUpdate carries the mutable profile fields. Empty Username or ReferralCode
// leaves the field unchanged; a non-nil AvatarURL is always applied, even when empty
type ProfileUpdate struct {
	Username     string  // Requested username
	ReferralCode string  // Requested referral code
	AvatarURL    *string // Requested avatar, nil when absent
}

// FindByWallet returns the record for address, or nil if there is none
func (t *Tx) FindByWallet(address string) (*domain.User, error) {
	return t.findOne("wallet_address = ?", address)
}

// FindByReferralCode returns the record currently holding code, or nil
func (t *Tx) FindByReferralCode(code string) (*domain.User, error) {
	return t.findOne("referral_code = ?", code)
}

// FindByUsername returns the record currently holding name, or nil
func (t *Tx) FindByUsername(name string) (*domain.User, error) {
	return t.findOne("username = ?", name)
}

// findOne loads a single record by an exact match condition
func (t *Tx) findOne(query string, arg any) (*domain.User, error) {
	var user domain.User
	err := t.db.Where(query, arg).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // No record is not an error here
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &user, nil
}

// Create inserts a new record for address with generated identifiers
func (t *Tx) Create(address string, referredBy *string) (*domain.User, error) {
	existing, err := t.FindByWallet(address)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, address)
	}

	username, err := t.uniqueUsername(address) // Default username, suffixed on collision
	if err != nil {
		return nil, err
	}
	code, err := t.uniqueReferralCode() // Fresh referral code
	if err != nil {
		return nil, err
	}

	now := t.now()
	user := &domain.User{
		WalletAddress: address,            // Wallet address as given
		Username:      username,           // Generated username
		ReferralCode:  code,               // Generated referral code
		Level:         domain.LevelFor(0), // Starting tier
		JoinedAt:      now,                // Creation time
		LastActive:    now,                // Seen now
	}
	if referredBy != nil {
		ref := *referredBy     // Copy so the caller's string is not shared
		user.ReferredBy = &ref // Stored verbatim, even when nobody holds it
	}

	if err := t.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// uniqueUsername finds a free username derived from address
func (t *Tx) uniqueUsername(address string) (string, error) {
	for attempt := 0; attempt < MaxGenerateAttempts; attempt++ {
		candidate, err := usernameCandidate(address, attempt)
		if err != nil {
			return "", err
		}
		holder, err := t.FindByUsername(candidate)
		if err != nil {
			return "", err
		}
		if holder == nil {
			return candidate, nil // Free
		}
	}
	return "", fmt.Errorf("%w: username for %s", ErrIdentifierExhausted, address)
}

// uniqueReferralCode draws codes until one is free
func (t *Tx) uniqueReferralCode() (string, error) {
	for attempt := 0; attempt < MaxGenerateAttempts; attempt++ {
		candidate, err := t.codes()
		if err != nil {
			return "", err
		}
		holder, err := t.FindByReferralCode(candidate)
		if err != nil {
			return "", err
		}
		if holder == nil {
			return candidate, nil // Free
		}
	}
	return "", fmt.Errorf("%w: referral code", ErrIdentifierExhausted)
}

// Touch marks the record as seen now
func (t *Tx) Touch(user *domain.User) error {
	now := t.now()
	if err := t.db.Model(user).Update("last_active", now).Error; err != nil {
		return fmt.Errorf("touch user: %w", err)
	}
	user.LastActive = now // Keep the loaded copy in sync
	return nil
}

// UpdateProfile applies upd to user. Uniqueness of every requested identifier is
// checked before anything is written
func (t *Tx) UpdateProfile(user *domain.User, upd ProfileUpdate) error {
	changes := map[string]any{} // Columns to write

	if upd.Username != "" {
		holder, err := t.FindByUsername(upd.Username)
		if err != nil {
			return err
		}
		if holder != nil && holder.ID != user.ID {
			return ErrUsernameTaken // Held by someone else
		}
		changes["username"] = upd.Username
	}

	if upd.ReferralCode != "" {
		holder, err := t.FindByReferralCode(upd.ReferralCode)
		if err != nil {
			return err
		}
		if holder != nil && holder.ID != user.ID {
			return ErrReferralCodeTaken // Held by someone else
		}
		changes["referral_code"] = upd.ReferralCode
	}

	if upd.AvatarURL != nil {
		changes["avatar_url"] = *upd.AvatarURL // Empty string clears the avatar
	}

	if len(changes) == 0 {
		return nil // Nothing requested
	}
	if err := t.db.Model(user).Updates(changes).Error; err != nil {
		return fmt.Errorf("update profile: %w", err)
	}

	// Mirror the written columns on the loaded copy
	if upd.Username != "" {
		user.Username = upd.Username
	}
	if upd.ReferralCode != "" {
		user.ReferralCode = upd.ReferralCode
	}
	if upd.AvatarURL != nil {
		user.AvatarURL = *upd.AvatarURL
	}
	return nil
}

// CreditReferral records one successful referral for referrer
func (t *Tx) CreditReferral(referrer *domain.User) error {
	referrer.ReferralCount++                                 // One more referral
	referrer.TotalRewards += domain.ReferralReward           // Fixed reward per referral
	referrer.Level = domain.LevelFor(referrer.ReferralCount) // Recompute tier

	// Increment in SQL, the row is only ever written under the writer lock
	err := t.db.Model(referrer).Updates(map[string]any{
		"referral_count": gorm.Expr("referral_count + ?", 1),
		"total_rewards":  gorm.Expr("total_rewards + ?", domain.ReferralReward),
		"level":          referrer.Level,
	}).Error
	if err != nil {
		return fmt.Errorf("credit referral: %w", err)
	}
	return nil
}

// Snapshot returns every record in registry order
func (t *Tx) Snapshot() ([]domain.User, error) {
	var users []domain.User
	if err := t.db.Order("id asc").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	return users, nil
}

// Count returns the number of records
func (t *Tx) Count() (int64, error) {
	var total int64
	if err := t.db.Model(&domain.User{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return total, nil
}

// Page returns up to limit records in registry order starting at offset
func (t *Tx) Page(offset, limit int) ([]domain.User, error) {
	var users []domain.User
	if err := t.db.Order("id asc").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("select users page: %w", err)
	}
	return users, nil
}
