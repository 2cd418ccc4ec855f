package registry

import (
	"errors" // Sentinel errors
	"fmt"    // Wrapped conflict errors
)

var (
	// ErrNotFound is returned when a wallet address has no record
	ErrNotFound = errors.New("user not found")
	// ErrConflict is returned when a unique identifier belongs to another record
	ErrConflict = errors.New("conflict")
	// ErrAlreadyExists is returned when creating a record for a registered wallet address
	ErrAlreadyExists = errors.New("user already exists")
	// ErrIdentifierExhausted is returned when no free username or referral code was found
	ErrIdentifierExhausted = errors.New("could not generate a unique identifier")
	// ErrLockTimeout is returned when the registry write lock could not be acquired in time
	ErrLockTimeout = errors.New("registry lock timeout")

	// Conflicts on a specific identifier, both match ErrConflict
	ErrUsernameTaken     = fmt.Errorf("%w: username already taken", ErrConflict)
	ErrReferralCodeTaken = fmt.Errorf("%w: referral code already taken", ErrConflict)
)
