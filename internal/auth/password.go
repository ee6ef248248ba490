// Package auth — password hashing utilities.
//
// WHY BCRYPT?
// bcrypt is a password hashing function specifically designed to be slow.
// That slowness is a security feature: it makes brute-force attacks expensive.
//
// bcrypt automatically:
//   - Generates a random salt (so two users with the same password get different hashes)
//   - Embeds the salt in the output hash (no separate salt column needed)
//   - Controls the work factor via "cost" (higher = slower = harder to crack)
//
// THE 72-BYTE LIMIT:
// bcrypt only looks at the first 72 bytes of its input. Rather than reject
// longer passwords, Hash and Verify both truncate to 72 bytes before calling
// into bcrypt, using the exact same rule on both paths. A password longer
// than the limit therefore still verifies against its own hash. The cut
// respects UTF-8: a multi-byte character split by the 72-byte boundary is
// dropped entirely instead of leaving an invalid trailing fragment.
package auth

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor.
//
// Cost 12 takes roughly ~250ms on a modern server. Negligible for a login,
// brutal for an attacker iterating a password list.
const defaultCost = 12

// maxPasswordBytes is bcrypt's effective input limit.
const maxPasswordBytes = 72

// ErrHashFormat is returned by Verify when the stored digest cannot be
// parsed as a bcrypt hash at all. This indicates a corrupt database row,
// not a wrong password, and must surface as a server error.
var ErrHashFormat = errors.New("auth: malformed password hash")

// PasswordService provides bcrypt hashing and verification.
//
// It's a struct (not free functions) so that the cost can be injected in
// tests. Cost 4 (the bcrypt minimum) makes tests run in milliseconds
// instead of ~250ms per hash.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the default cost (12).
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// newPasswordServiceWithCost creates a PasswordService with a custom cost.
// Unexported helper used by the tests in this package.
func newPasswordServiceWithCost(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// NewPasswordServiceForTest creates a PasswordService with a low bcrypt
// cost for use in tests in other packages. Do NOT use in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash hashes the given plaintext password with bcrypt.
//
// The output is a self-contained string like:
//
//	$2a$12$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy
//
// Store this string directly in the database. It includes the salt and
// cost — bcrypt.CompareHashAndPassword knows how to decode it.
//
// Input longer than 72 bytes is truncated (see the package comment), so
// Hash never fails on a well-formed string.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword(truncatePassword(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify checks whether a plaintext password matches a stored bcrypt hash.
//
// Returns (true, nil) on a match and (false, nil) on a mismatch. A wrong
// password is an expected outcome, not an error. The only error case is a
// digest bcrypt cannot parse, reported as ErrHashFormat.
//
// TIMING SAFETY:
// bcrypt.CompareHashAndPassword uses a constant-time comparison internally,
// so an attacker can't tell from response time how close a guess was.
func (p *PasswordService) Verify(hash, plaintext string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), truncatePassword(plaintext))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %v", ErrHashFormat, err)
}

// truncatePassword returns the UTF-8 bytes of the password, cut to the
// bcrypt limit. Both Hash and Verify must use this same function; any
// divergence would lock out every user with a long password.
func truncatePassword(plaintext string) []byte {
	b := []byte(plaintext)
	if len(b) <= maxPasswordBytes {
		return b
	}
	b = b[:maxPasswordBytes]

	// Drop a trailing partial rune left by the byte cut.
	for len(b) > 0 {
		r, size := utf8.DecodeLastRune(b)
		if r != utf8.RuneError || size > 1 {
			break
		}
		b = b[:len(b)-1]
	}
	return b
}
