// Package auth provides GitHub OAuth sign-in and JWT session tokens.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. User visits /auth/github/login → redirected to GitHub
//  2. GitHub calls back /auth/github/callback with a code
//  3. Server exchanges the code for the user's GitHub profile AND OAuth
//     access token, upserts the user in the DB (token included — the sync
//     engine replays it against GitHub's GraphQL API later)
//  4. Server issues a JWT access token, stores it in an HttpOnly cookie
//  5. On subsequent API calls, middleware reads the cookie, validates the
//     JWT, and sets the userID in the request context
//
// Two tokens are in play and they must not be confused:
//   - the GitHub OAuth access token — OUR credential for calling GitHub as
//     the user; persisted server-side, never sent to the browser
//   - the JWT — the USER's credential for calling us; lives only in the
//     HttpOnly cookie, never persisted server-side
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "mergequest"

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key used to sign and verify tokens. The same
// secret must be used for both operations.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims is the JWT payload. We use "sub" (Subject) to store the internal
// user ID — the standard claim for identifying who the token belongs to.
type claims struct {
	jwt.RegisteredClaims
}

// Generate creates and signs a new JWT access token for the given userID.
//
// Token lifetime: 24 hours. After expiry the client goes back through the
// OAuth flow; GitHub remembers the authorization, so re-login is one redirect.
//
// Signing algorithm: HS256 (HMAC-SHA256) — symmetric, same key signs and
// verifies. Fine for a single-server deployment.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, 24*time.Hour)
}

// GenerateWithDuration creates a token with a custom expiry duration.
// Used in tests to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
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
// Returns the userID (stored in the "sub" claim) if the token is valid.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired (ExpiresAt is in the future)
//   - Issuer matches ours (prevents tokens from other apps)
//   - Algorithm is HS256 (prevents algorithm confusion attacks, where an
//     attacker submits a token signed with "none")
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
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}

	userID := c.Subject
	if userID == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}

	return userID, nil
}
