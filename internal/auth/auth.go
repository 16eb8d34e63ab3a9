// Package auth mints and verifies session credentials.
//
// A credential embeds the identity claims fixed at login time (Discord id,
// username, avatar). Roles are deliberately absent: they can change between
// mint and use, so the authorization guard re-reads them from the account
// store on every check.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "wordsofdeath"

// ErrInvalidToken indicates the token failed validation.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the identity fields embedded in a session credential.
// Subject carries the stable Discord user id.
type Claims struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	jwt.RegisteredClaims
}

// DiscordID returns the stable identity-provider id the credential was
// minted for.
func (c *Claims) DiscordID() string {
	return c.Subject
}

// Sessions issues and verifies signed session credentials using HS256.
// The signing secret is process-wide configuration, loaded once at startup
// and never rotated at runtime.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// SessionsOption configures Sessions behavior.
type SessionsOption func(*Sessions)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) SessionsOption {
	return func(s *Sessions) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewSessions constructs a Sessions issuer/verifier. A zero ttl produces
// non-expiring credentials.
func NewSessions(secret string, ttl time.Duration, opts ...SessionsOption) (*Sessions, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	if ttl < 0 {
		return nil, errors.New("session ttl must not be negative")
	}
	s := &Sessions{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Expiring reports whether issued credentials carry an expiry.
func (s *Sessions) Expiring() bool {
	return s.ttl > 0
}

// Issue signs a credential for the given identity. The returned time is
// zero when credentials do not expire.
func (s *Sessions) Issue(discordID, username, avatar string) (string, time.Time, error) {
	discordID = strings.TrimSpace(discordID)
	username = strings.TrimSpace(username)
	if discordID == "" || username == "" {
		return "", time.Time{}, errors.New("discord id and username are required")
	}

	now := s.now().UTC()
	claims := Claims{
		Username: username,
		Avatar:   avatar,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuer,
			Subject:  discordID,
			IssuedAt: jwt.NewNumericDate(now),
			ID:       uuid.NewString(),
		},
	}
	var expiresAt time.Time
	if s.ttl > 0 {
		expiresAt = now.Add(s.ttl)
		claims.ExpiresAt = jwt.NewNumericDate(expiresAt)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks the signature and required claims and returns the embedded
// identity unchanged. It performs no database lookup.
func (s *Sessions) Verify(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now().UTC() }))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if err := s.validateClaims(claims); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Sessions) validateClaims(claims *Claims) error {
	if claims.Issuer != issuer {
		return errors.New("unexpected issuer")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return errors.New("subject missing")
	}
	if strings.TrimSpace(claims.Username) == "" {
		return errors.New("username missing")
	}
	if claims.IssuedAt == nil {
		return errors.New("issued-at missing")
	}
	now := s.now().UTC()
	// Allow a small clock skew of 5 seconds when validating issued-at.
	if claims.IssuedAt.Time.After(now.Add(5 * time.Second)) {
		return errors.New("token issued in the future")
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Time.Before(claims.IssuedAt.Time) {
		return errors.New("token expiry precedes issued-at")
	}
	return nil
}
