package service

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/pharmacy/internal/account/domain"
	"github.com/aussiebroadwan/pharmacy/internal/account/mailer"
	"github.com/aussiebroadwan/pharmacy/internal/account/store"
	"github.com/aussiebroadwan/pharmacy/pkg/cryptox"
	"github.com/aussiebroadwan/pharmacy/pkg/slogx"
)

// DefaultOTPTTL is how long an issued code stays valid.
const DefaultOTPTTL = 10 * time.Minute

// OTPService issues and checks the six digit codes that prove ownership of
// an email address. Codes for existing accounts live on the user record;
// codes for registrations that are not committed yet live on a pending
// signup record keyed by email.
type OTPService struct {
	Store  store.Store
	Mailer mailer.Dispatcher
	TTL    time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

func (s *OTPService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *OTPService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultOTPTTL
}

// IssueOTP sends a fresh code to the account registered under email,
// replacing any code issued before. If the mail cannot be delivered the code
// is withdrawn again and a DispatchError is returned.
func (s *OTPService) IssueOTP(ctx context.Context, email string) error {
	log := slogx.FromContext(ctx)
	email = domain.NormalizeEmail(email)

	if _, err := s.Store.Users().GetByEmail(ctx, email); err != nil {
		return storeError(err)
	}

	code, err := cryptox.GenerateNumericCode()
	if err != nil {
		return domain.NewError(domain.HashingError, err)
	}

	if err := s.Store.Users().SetOTP(ctx, email, code, s.now().Add(s.ttl())); err != nil {
		return storeError(err)
	}

	if err := s.Mailer.Send(ctx, mailer.OTPMessage(email, code)); err != nil {
		log.Error("otp dispatch failed, withdrawing code", "error", err)
		if rbErr := s.Store.Users().ClearOTP(ctx, email, code); rbErr != nil && !errors.Is(rbErr, store.ErrNotFound) {
			log.Error("otp rollback failed", "error", rbErr)
		}
		return domain.NewError(domain.DispatchError, err)
	}

	log.Info("otp issued", "purpose", "password_reset")
	return nil
}

// ValidateOTP consumes the code held by the account registered under email.
// It succeeds at most once per issued code.
func (s *OTPService) ValidateOTP(ctx context.Context, email, code string) error {
	_, err := s.consume(ctx, email, code)
	return err
}

// consume is ValidateOTP returning the account the code belonged to.
func (s *OTPService) consume(ctx context.Context, email, code string) (domain.User, error) {
	email = domain.NormalizeEmail(email)

	u, err := s.Store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, domain.ErrInvalidOrExpiredOTP
		}
		return domain.User{}, storeError(err)
	}

	if !u.HasOTP() || !s.now().Before(*u.OTPExpiry) || !cryptox.EqualCodes(code, *u.OTP) {
		return domain.User{}, domain.ErrInvalidOrExpiredOTP
	}

	// Conditional clear: a concurrent validation of the same code loses here.
	if err := s.Store.Users().ClearOTP(ctx, email, *u.OTP); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, domain.ErrInvalidOrExpiredOTP
		}
		return domain.User{}, storeError(err)
	}

	u.OTP, u.OTPExpiry = nil, nil
	return u, nil
}

// IssueSignupOTP sends a code for a registration that has not been committed
// yet. It never touches an existing user record.
func (s *OTPService) IssueSignupOTP(ctx context.Context, email, username string) error {
	log := slogx.FromContext(ctx)

	code, err := cryptox.GenerateNumericCode()
	if err != nil {
		return domain.NewError(domain.HashingError, err)
	}

	now := s.now()
	p := domain.PendingSignup{
		Email:     email,
		Username:  username,
		OTP:       code,
		OTPExpiry: now.Add(s.ttl()),
		CreatedAt: now,
	}
	if err := s.Store.PendingSignups().Upsert(ctx, p); err != nil {
		return storeError(err)
	}

	if err := s.Mailer.Send(ctx, mailer.OTPMessage(email, code)); err != nil {
		log.Error("signup otp dispatch failed, withdrawing code", "error", err)
		if rbErr := s.Store.PendingSignups().Consume(ctx, email, code); rbErr != nil && !errors.Is(rbErr, store.ErrNotFound) {
			log.Error("signup otp rollback failed", "error", rbErr)
		}
		return domain.NewError(domain.DispatchError, err)
	}

	log.Info("otp issued", "purpose", "signup")
	return nil
}

// ValidateSignupOTP consumes the pending registration for email. The code
// only completes the registration for the username it was issued to.
func (s *OTPService) ValidateSignupOTP(ctx context.Context, email, username, code string) error {
	p, err := s.Store.PendingSignups().Get(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.ErrInvalidOrExpiredOTP
		}
		return storeError(err)
	}

	if !s.now().Before(p.OTPExpiry) || !cryptox.EqualCodes(code, p.OTP) {
		return domain.ErrInvalidOrExpiredOTP
	}
	if p.Username != username {
		return domain.Invalid("username", "does not match the pending registration")
	}

	if err := s.Store.PendingSignups().Consume(ctx, email, p.OTP); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.ErrInvalidOrExpiredOTP
		}
		return storeError(err)
	}
	return nil
}
