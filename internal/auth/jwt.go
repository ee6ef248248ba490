// Package auth — JWT generation and validation.
//
// WHY JWT?
// JWT (JSON Web Token) is stateless: the server stores no session data.
// Everything needed (subject, expiry) lives inside the signed token, and
// the signature ensures nobody can tamper with it without the secret key.
// Validity is purely a function of signature and expiry at verification
// time; there is no revocation list and no server-side session.
//
// THE SUBJECT CLAIM:
// The "sub" claim carries the user's username, or the email for accounts
// that never set a username (Google-only logins). Whoever validates the
// token must resolve that subject with the same username-then-email
// lookup that login uses, since either key may have been the one embedded
// at issuance time.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL applies when a caller doesn't request a specific
// lifetime. The interactive login endpoints pass the configured TTL
// (24 hours by default) through GenerateWithTTL instead.
const DefaultTokenTTL = 15 * time.Minute

const tokenIssuer = "bienestar-api"

// ErrInvalidToken is returned by Validate for every failure mode: bad
// signature, malformed envelope, expired, or missing subject. Callers
// must not distinguish between them in client-visible responses.
var ErrInvalidToken = errors.New("auth: invalid token")

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key used to sign and verify tokens. The secret
// is process-wide configuration with no rotation: compromise of the key
// invalidates the entire trust model. That is a known, accepted weakness
// of the bearer-token design here, not an oversight.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: SECRET_KEY=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims is the JWT payload. It embeds jwt.RegisteredClaims which includes
// standard fields like Issuer, Subject, ExpiresAt, IssuedAt.
type claims struct {
	jwt.RegisteredClaims
}

// Generate creates and signs a JWT for the given subject with the
// default 15-minute lifetime.
//
// Signing algorithm: HS256 (HMAC-SHA256), symmetric, fixed. There is no
// per-token algorithm negotiation.
func (s *TokenService) Generate(subject string) (string, error) {
	return s.GenerateWithTTL(subject, DefaultTokenTTL)
}

// GenerateWithTTL creates a token with a custom expiry duration.
// The login and Google callback endpoints use this to issue the
// longer-lived interactive tokens.
func (s *TokenService) GenerateWithTTL(subject string, ttl time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string.
// Returns the subject claim if the token is valid.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired (ExpiresAt is in the future)
//   - Issuer matches (prevents tokens minted by other apps sharing a key)
//   - Algorithm is HS256
//
// ALGORITHM CONFUSION ATTACK:
// Without pinning the algorithm, an attacker could send a token signed
// with "none" and the library might accept it. jwt.WithValidMethods
// prevents this.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: expired", ErrInvalidToken)
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("%w: bad claims", ErrInvalidToken)
	}

	// A token without a subject identifies nobody. Same error as any
	// other invalid token.
	if c.Subject == "" {
		return "", fmt.Errorf("%w: no subject", ErrInvalidToken)
	}

	return c.Subject, nil
}
