// ABOUTME: Short-lived bearer token minting for authenticated sessions
// ABOUTME: Uses HS256 signing with a configurable secret

package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// DefaultLifetime is how long minted tokens stay valid.
const DefaultLifetime = 5 * time.Minute

// Minter issues and verifies HS256 signed tokens for principal identifiers.
type Minter struct {
	secret   []byte
	lifetime time.Duration
}

// New creates a Minter with the given secret. A zero lifetime falls back to
// DefaultLifetime.
func New(secret []byte, lifetime time.Duration) *Minter {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	return &Minter{secret: secret, lifetime: lifetime}
}

// Mint creates a token carrying the principal identifier in the "sub" claim.
func (m *Minter) Mint(identifier string) (token string, expiresAt time.Time, err error) {
	now := time.Now()
	expiresAt = now.Add(m.lifetime)

	claims := jwt.MapClaims{
		"sub": identifier,
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Verify validates the token and extracts the principal identifier from the
// "sub" claim.
func (m *Minter) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	return sub, nil
}
