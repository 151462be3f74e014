package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is how long a desktop session token stays valid when the
// caller does not configure one. It matches the shell's own session window.
const DefaultSessionTTL = 6 * time.Hour

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrUnknownKID  = errors.New("jwtx: unknown kid")
	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
)

// Claims are the session-token claims. Subject carries the user id and SID
// the session token id held by the tracker.
type Claims struct {
	jwt.RegisteredClaims

	// Session ID
	SID string `json:"sid,omitempty"`

	// Role the session was opened with: "doctor" or "pharmacy"
	Role string `json:"role,omitempty"`

	// Username for the authenticated user
	Username string `json:"username,omitempty"`
}

// NewSessionClaims builds claims for a session. A zero expiresAt leaves the
// token without an exp claim.
func NewSessionClaims(subject, sid, role, username, issuer string, issuedAt, expiresAt time.Time) Claims {
	c := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ID:        sid,
		},
		SID:      sid,
		Role:     role,
		Username: username,
	}
	if !expiresAt.IsZero() {
		c.ExpiresAt = jwt.NewNumericDate(expiresAt)
	}
	return c
}

// Check validates the issuer (when expected is non-empty) and the exp and
// nbf claims at now, tolerating leeway of clock skew in both directions.
func (c *Claims) Check(expectedIssuer string, now time.Time, leeway time.Duration) error {
	if expectedIssuer != "" && c.Issuer != expectedIssuer {
		return ErrIssuer
	}
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}
