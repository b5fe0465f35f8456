// Package jwtx signs and verifies the session tokens used by the API. Tokens
// are HS256-signed with a single process-wide secret and carry only a subject,
// an issue time, an expiry and a token kind. Nothing is stored server-side;
// expiry and the password-change staleness check (done by the caller) are the
// only invalidation mechanisms.
package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token kinds. A refresh token is never accepted where an access token is
// required and vice versa; callers enforce this via Claims.TokenType.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Default token lifetimes. Access tokens live a day, refresh tokens a week.
const (
	DefaultAccessTokenTTL  = 24 * time.Hour
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

var (
	// ErrMalformed reports a token that is not structurally a JWT.
	ErrMalformed = errors.New("jwtx: malformed token")
	// ErrInvalidSig reports a token whose signature does not verify, which
	// includes tokens signed with a different algorithm or key.
	ErrInvalidSig = errors.New("jwtx: invalid signature")
	// ErrExpired reports a cryptographically valid token past its expiry.
	// Kept distinct from ErrInvalidSig so callers can word the rejection
	// differently ("log in again" vs "invalid token").
	ErrExpired = errors.New("jwtx: token expired")
)

// Claims are the session token claims.
type Claims struct {
	jwt.RegisteredClaims

	// TokenType marks the kind of token: "access" or "refresh".
	// Absent on tokens issued before the field existed, treated as access.
	TokenType string `json:"token_type,omitempty"`
}

// IsRefresh reports whether the claims belong to a refresh-kind token.
func (c *Claims) IsRefresh() bool { return c.TokenType == TokenTypeRefresh }

// Signer issues and verifies HS256 tokens with a shared symmetric secret.
// The secret is fixed for the life of the process; there is no rotation.
type Signer struct {
	secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// NewSigner builds a Signer. Zero TTLs fall back to the package defaults.
func NewSigner(secret string, accessTTL, refreshTTL time.Duration) *Signer {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTokenTTL
	}
	return &Signer{
		secret:     []byte(secret),
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
	}
}

// SignAccess issues an access token for subject, issued now.
func (s *Signer) SignAccess(subject string) (string, error) {
	return s.SignAccessAt(subject, time.Now().UTC())
}

// SignAccessAt issues an access token with an explicit issue time. Exposed so
// tests can exercise expiry boundaries without sleeping.
func (s *Signer) SignAccessAt(subject string, now time.Time) (string, error) {
	return s.sign(subject, TokenTypeAccess, now, s.AccessTTL)
}

// SignRefresh issues a refresh token for subject, issued now.
func (s *Signer) SignRefresh(subject string) (string, error) {
	return s.SignRefreshAt(subject, time.Now().UTC())
}

// SignRefreshAt issues a refresh token with an explicit issue time.
func (s *Signer) SignRefreshAt(subject string, now time.Time) (string, error) {
	return s.sign(subject, TokenTypeRefresh, now, s.RefreshTTL)
}

func (s *Signer) sign(subject, kind string, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenType: kind,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks the signature and expiry of a token and returns its claims.
// Failures map to exactly one of ErrMalformed, ErrInvalidSig or ErrExpired.
func (s *Signer) Verify(tokenString string) (Claims, error) {
	var claims Claims

	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, ErrMalformed
		default:
			// Signature failures, alg confusion, tampered payloads.
			return Claims{}, ErrInvalidSig
		}
	}

	return claims, nil
}
