package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// MinSecretLength is the minimum required length for signing secrets.
	// This ensures sufficient entropy for security (41 chars = ~246 bits when base64-encoded).
	MinSecretLength = 41

	// DefaultSecretBytes is the number of random bytes to generate for secrets.
	// 32 bytes = 256 bits of entropy, which base64-encodes to 44 characters.
	DefaultSecretBytes = 32

	// Issuer is the "iss" claim of every token minted by this package.
	Issuer = "kabinet"

	// DefaultTTL is the lifetime of tokens issued without an explicit TTL.
	DefaultTTL = 24 * time.Hour
)

var (
	// ErrSecretTooShort indicates the signing secret lacks entropy.
	ErrSecretTooShort = errors.New("secret too short")

	// ErrMalformed indicates the token could not be parsed or its signature is invalid.
	ErrMalformed = errors.New("malformed token")

	// ErrExpired indicates the token is past its expiry.
	ErrExpired = errors.New("token expired")

	// ErrInvalidClaims indicates required claims are missing or wrong.
	ErrInvalidClaims = errors.New("invalid token claims")
)

// Claims are the verified claims of a token.
type Claims struct {
	// Subject identifies the caller (a backend instance or a user).
	Subject string

	// ID is the unique token ID.
	ID string

	// Scopes are the permission scopes granted to the caller.
	Scopes []string

	// IssuedAt is when the token was minted.
	IssuedAt time.Time

	// ExpiresAt is when the token stops being accepted.
	ExpiresAt time.Time
}

// HasScope reports whether the claims grant scope.
func (c Claims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// tokenClaims is the internal claims type used for JWT signing and parsing.
type tokenClaims struct {
	jwt.RegisteredClaims
	Scopes []string `json:"scopes,omitempty"`
}

// GenerateSecret creates a cryptographically secure random signing secret.
// The secret is base64-URL-encoded and will be at least MinSecretLength characters.
func GenerateSecret() (string, error) {
	return GenerateSecretWithLength(DefaultSecretBytes)
}

// GenerateSecretWithLength creates a random secret of numBytes random bytes.
//
// Parameters:
//   - numBytes: Number of random bytes to generate (minimum 32 for security)
func GenerateSecretWithLength(numBytes int) (string, error) {
	if numBytes < DefaultSecretBytes {
		return "", fmt.Errorf("%w: secret length must be at least %d bytes", ErrSecretTooShort, DefaultSecretBytes)
	}

	b := make([]byte, numBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	secret := base64.URLEncoding.EncodeToString(b)
	if err := ValidateSecret(secret); err != nil {
		return "", err
	}
	return secret, nil
}

// ValidateSecret checks if a secret meets the minimum length requirement.
func ValidateSecret(secret string) error {
	if len(secret) < MinSecretLength {
		return fmt.Errorf("%w: got %d characters, need at least %d", ErrSecretTooShort, len(secret), MinSecretLength)
	}
	return nil
}

// Issue mints a token for subject valid for ttl (DefaultTTL when zero).
//
// Example:
//
//	raw, err := token.Issue(secret, "backend-1", time.Hour, "pods:write")
//	if err != nil {
//	    return fmt.Errorf("failed to issue token: %w", err)
//	}
func Issue(secret, subject string, ttl time.Duration, scopes ...string) (string, error) {
	return issueAt(time.Now(), secret, subject, ttl, scopes)
}

func issueAt(now time.Time, secret, subject string, ttl time.Duration, scopes []string) (string, error) {
	if err := ValidateSecret(secret); err != nil {
		return "", err
	}
	if strings.TrimSpace(subject) == "" {
		return "", fmt.Errorf("%w: subject is required", ErrInvalidClaims)
	}
	if ttl == 0 {
		ttl = DefaultTTL
	}

	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Scopes: scopes,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, issuer and expiry of raw and returns its claims.
func Verify(secret, raw string) (Claims, error) {
	if err := ValidateSecret(secret); err != nil {
		return Claims{}, err
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, fmt.Errorf("%w: token is required", ErrMalformed)
	}

	var parsed tokenClaims
	_, err := jwt.ParseWithClaims(raw, &parsed, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	if parsed.Subject == "" || parsed.ID == "" {
		return Claims{}, fmt.Errorf("%w: subject and jti are required", ErrInvalidClaims)
	}

	claims := Claims{
		Subject:   parsed.Subject,
		ID:        parsed.ID,
		Scopes:    parsed.Scopes,
		ExpiresAt: parsed.ExpiresAt.Time,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time
	}
	return claims, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenNotValidYet):
		return fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	}
	return fmt.Errorf("%w: %v", ErrMalformed, err)
}
