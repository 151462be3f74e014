package jwtx

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ClockLeeway is the skew tolerated on exp and nbf.
const ClockLeeway = 30 * time.Second

// Verifier validates EdDSA session tokens issued under a single key.
type Verifier struct {
	kid    string
	pub    ed25519.PublicKey
	issuer string
}

// NewVerifierEdDSA creates a verifier for tokens carrying the given kid.
func NewVerifierEdDSA(kid string, pub ed25519.PublicKey, issuer string) *Verifier {
	return &Verifier{kid: kid, pub: pub, issuer: issuer}
}

// Verify validates the JWT string and returns its parsed Claims.
func (v *Verifier) Verify(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithLeeway(ClockLeeway),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid != v.kid {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKID, kid)
		}
		return v.pub, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("jwtx: parse or verify: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMalformed
	}

	if err := claims.Check(v.issuer, time.Now(), ClockLeeway); err != nil {
		return nil, err
	}
	if claims.Subject == "" || claims.SID == "" {
		return nil, ErrMalformed
	}

	return claims, nil
}
