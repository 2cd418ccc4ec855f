package registry

import (
	"crypto/rand" // Random source for codes
	"fmt"         // Error wrapping
	"math/big"    // Uniform index selection
)

const (
	// UsernamePrefix is prepended to the wallet address suffix for default usernames
	UsernamePrefix = "User_"
	// ReferralCodeLength is the length of generated referral codes
	ReferralCodeLength = 8
	// MaxGenerateAttempts bounds the regeneration loop on identifier collisions
	MaxGenerateAttempts = 10

	usernameSuffixLength = 8                                      // Address characters kept in a default username
	codeAlphabet         = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789" // Referral code characters
	digits               = "0123456789"                           // Username suffix characters
)

// CodeGenerator produces candidate referral codes
type CodeGenerator func() (string, error)

// DefaultUsername derives the initial username from the last 8 characters of the address
func DefaultUsername(address string) string {
	if len(address) <= usernameSuffixLength {
		return UsernamePrefix + address // Short address, use it whole
	}
	return UsernamePrefix + address[len(address)-usernameSuffixLength:]
}

// NewReferralCode returns a random 8 character uppercase alphanumeric code
func NewReferralCode() (string, error) {
	return randomString(codeAlphabet, ReferralCodeLength)
}

// randomString draws n characters uniformly from alphabet
func randomString(alphabet string, n int) (string, error) {
	b := make([]byte, n)
	limit := big.NewInt(int64(len(alphabet))) // Exclusive upper bound of an index
	for i := range b {
		idx, err := rand.Int(rand.Reader, limit) // Unbiased index
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b), nil
}

// usernameCandidate returns the default username on the first attempt and a suffixed variant afterwards
func usernameCandidate(address string, attempt int) (string, error) {
	base := DefaultUsername(address)
	if attempt == 0 {
		return base, nil
	}
	suffix, err := randomString(digits, 4) // Four random digits
	if err != nil {
		return "", err
	}
	return base + "_" + suffix, nil
}
