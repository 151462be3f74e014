package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aussiebroadwan/pharmacy/internal/account/domain"
	"github.com/aussiebroadwan/pharmacy/internal/account/session"
	"github.com/aussiebroadwan/pharmacy/pkg/idx"
	"github.com/aussiebroadwan/pharmacy/pkg/jwtx"
	"github.com/aussiebroadwan/pharmacy/pkg/slogx"
)

// ErrSessionNotActive is returned for a well-formed token whose session has
// been replaced by a later login or ended by logout.
var ErrSessionNotActive = errors.New("session: token does not belong to the active session")

// SessionService binds logins to the process session tracker and mints the
// bearer tokens the HTTP API accepts.
type SessionService struct {
	Tracker *session.Tracker
	Signer  *jwtx.Signer
	Issuer  string

	// TTL of a session; 0 means jwtx.DefaultSessionTTL, negative means none.
	TTL time.Duration

	// Now defaults to time.Now.
	Now func() time.Time

	verifierOnce sync.Once
	verifier     *jwtx.Verifier
}

func (s *SessionService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *SessionService) ttl() time.Duration {
	if s.TTL == 0 {
		return jwtx.DefaultSessionTTL
	}
	return s.TTL
}

// Start makes id the process's session, replacing any other, and returns a
// signed token for it.
func (s *SessionService) Start(ctx context.Context, id domain.Identity) (string, session.Session, error) {
	now := s.now().Truncate(time.Second)

	sess := session.Session{
		UserID:   id.UserID,
		Username: id.Username,
		Role:     id.Role,
		Hospital: id.Hospital,
		Phone:    id.Phone,
		Address:  id.Address,
		TokenID:  idx.NewAt(now).String(),
		IssuedAt: now,
	}
	if ttl := s.ttl(); ttl > 0 {
		sess.ExpiresAt = now.Add(ttl)
	}

	token, err := s.Signer.Sign(jwtx.NewSessionClaims(
		sess.UserID, sess.TokenID, sess.Role.String(), sess.Username, s.Issuer, sess.IssuedAt, sess.ExpiresAt,
	))
	if err != nil {
		return "", session.Session{}, fmt.Errorf("session: sign token: %w", err)
	}

	s.Tracker.Login(sess)
	slogx.FromContext(ctx).Info("session started", "user_id", sess.UserID, "role", sess.Role.String(), "expires_at", sess.ExpiresAt)
	return token, sess, nil
}

// Resolve verifies token and returns the session it belongs to. Tokens of
// replaced or ended sessions are rejected.
func (s *SessionService) Resolve(ctx context.Context, token string) (session.Session, error) {
	s.verifierOnce.Do(func() { s.verifier = s.Signer.Verifier(s.Issuer) })

	claims, err := s.verifier.Verify(token)
	if err != nil {
		return session.Session{}, err
	}

	cur, err := s.Tracker.Current()
	if err != nil {
		return session.Session{}, err
	}
	if cur.TokenID != claims.SID || cur.UserID != claims.Subject {
		return session.Session{}, ErrSessionNotActive
	}
	return cur, nil
}

// ResolveToken adapts Resolve for the bearer-token middleware.
func (s *SessionService) ResolveToken(ctx context.Context, token string) (string, string, error) {
	sess, err := s.Resolve(ctx, token)
	if err != nil {
		return "", "", err
	}
	return sess.UserID, sess.TokenID, nil
}

// Current returns the held session, if any.
func (s *SessionService) Current() (session.Session, error) {
	return s.Tracker.Current()
}

// End logs out whoever is logged in.
func (s *SessionService) End(ctx context.Context) {
	s.Tracker.Logout()
	slogx.FromContext(ctx).Info("session ended")
}
