// Package auth carries a logged-in visitor's identity from one request to the next.
//
// AUTHENTICATION FLOW OVERVIEW:
// 1. Visitor submits their email → we store a Token and email a login link
// 2. Visitor clicks the link (/accounts/login?token=UID)
// 3. The service resolves UID → email → User (creating the user on first login)
// 4. We issue a signed session token and store it in an HttpOnly cookie
// 5. On every later request, middleware validates the cookie and rehydrates
//    the User by email
//
// WHY JWT FOR SESSIONS?
// The session needs to remember exactly one fact: which email logged in. A
// signed JWT holds that fact without a sessions table. The signature means
// nobody can change the email without the secret key.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: algorithm + token type → {"alg":"HS256","typ":"JWT"}
//	- Payload: claims (data) → {"sub":"edith@example.com","exp":1234567890}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "superlists"

// DefaultSessionMaxAge is how long a session lasts when config doesn't say.
// Two weeks, the same as a typical "remember me" cookie.
const DefaultSessionMaxAge = 14 * 24 * time.Hour

// SessionService signs and verifies session tokens.
//
// It holds the HMAC secret key used for both operations, keep it safe,
// rotate it periodically in production. Rotating it logs everybody out.
type SessionService struct {
	secret []byte
	maxAge time.Duration
}

// NewSessionService creates a SessionService with the given secret and lifetime.
// A zero maxAge means DefaultSessionMaxAge.
func NewSessionService(secret string, maxAge time.Duration) (*SessionService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	if maxAge <= 0 {
		maxAge = DefaultSessionMaxAge
	}
	return &SessionService{secret: []byte(secret), maxAge: maxAge}, nil
}

// MaxAge is the session lifetime. The cookie expiry matches it.
func (s *SessionService) MaxAge() time.Duration {
	return s.maxAge
}

// claims is the JWT payload. We use "sub" (Subject) to store the email.
type claims struct {
	jwt.RegisteredClaims
}

// Generate creates and signs a session token for email, valid for MaxAge.
func (s *SessionService) Generate(email string) (string, error) {
	return s.GenerateWithDuration(email, s.maxAge)
}

// GenerateWithDuration creates a token with a custom expiry duration.
// Used in tests to mint already-expired sessions.
func (s *SessionService) GenerateWithDuration(email string, d time.Duration) (string, error) {
	if email == "" {
		return "", errors.New("auth: session email must not be empty")
	}

	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing session: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a session token and returns the email it names.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired
//   - Issuer matches "superlists"
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
func (s *SessionService) Validate(tokenStr string) (string, error) {
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
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: session expired")
		}
		return "", fmt.Errorf("auth: invalid session: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid session claims")
	}

	if c.Subject == "" {
		return "", fmt.Errorf("auth: session has no subject")
	}

	return c.Subject, nil
}
