package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/pharmacy/internal/account/domain"
	"github.com/aussiebroadwan/pharmacy/internal/account/store"
	"github.com/aussiebroadwan/pharmacy/pkg/cryptox"
	"github.com/aussiebroadwan/pharmacy/pkg/slogx"
)

// AccountService owns the account lifecycle: signup (direct or gated by an
// emailed code), role-aware login, password reset and profile changes.
type AccountService struct {
	Store store.Store
	OTP   *OTPService

	// Now defaults to time.Now.
	Now func() time.Time
}

func (s *AccountService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Signup creates the account described by req. Email is checked before
// username so an address that is already registered is always reported as
// such. The unique indexes of the store remain the real guard against two
// signups racing past the checks.
func (s *AccountService) Signup(ctx context.Context, req domain.SignupRequest) (domain.User, error) {
	log := slogx.FromContext(ctx)

	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return domain.User{}, err
	}
	if err := s.checkAvailable(ctx, req.Email, req.Username); err != nil {
		return domain.User{}, err
	}

	docHash, err := cryptox.HashPassword(req.PasswordDoc)
	if err != nil {
		return domain.User{}, domain.NewError(domain.HashingError, err)
	}
	pharmaHash, err := cryptox.HashPassword(req.PasswordPharma)
	if err != nil {
		return domain.User{}, domain.NewError(domain.HashingError, err)
	}

	now := s.now()
	u, err := s.Store.Users().Create(ctx, domain.User{
		Name:               req.Name,
		Username:           req.Username,
		Email:              req.Email,
		Mobile:             req.Mobile,
		Hospital:           req.Hospital,
		Address:            req.Address,
		PasswordHashDoc:    docHash,
		PasswordHashPharma: pharmaHash,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if err != nil {
		return domain.User{}, storeError(err)
	}

	if err := s.Store.PendingSignups().Delete(ctx, u.Email); err != nil {
		log.Warn("failed to drop pending signup", "email", u.Email, "error", err)
	}

	log.Info("account created", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// BeginSignup validates req and mails a code to its email without creating
// anything but a pending registration. VerifySignup completes it.
func (s *AccountService) BeginSignup(ctx context.Context, req domain.SignupRequest) error {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}
	if err := s.checkAvailable(ctx, req.Email, req.Username); err != nil {
		return err
	}
	return s.OTP.IssueSignupOTP(ctx, req.Email, req.Username)
}

// VerifySignup checks the code mailed by BeginSignup and then performs the
// same insert as Signup. The code is spent even if the insert then fails.
func (s *AccountService) VerifySignup(ctx context.Context, req domain.SignupRequest, code string) (domain.User, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return domain.User{}, err
	}
	if err := s.OTP.ValidateSignupOTP(ctx, req.Email, req.Username, code); err != nil {
		return domain.User{}, err
	}
	return s.Signup(ctx, req)
}

func (s *AccountService) checkAvailable(ctx context.Context, email, username string) error {
	users := s.Store.Users()

	if _, err := users.GetByEmail(ctx, email); err == nil {
		return domain.ErrDuplicateEmail
	} else if !errors.Is(err, store.ErrNotFound) {
		return storeError(err)
	}

	if _, err := users.GetByUsername(ctx, username); err == nil {
		return domain.ErrDuplicateUsername
	} else if !errors.Is(err, store.ErrNotFound) {
		return storeError(err)
	}

	return nil
}

// Login checks password against the credential of role. "Doctor" selects the
// doctor credential; any other role name selects the pharmacy credential.
// Unknown users and wrong passwords fail identically.
func (s *AccountService) Login(ctx context.Context, username, password, role string) (domain.Identity, error) {
	log := slogx.FromContext(ctx)

	username = domain.NormalizeUsername(username)
	if username == "" || password == "" {
		return domain.Identity{}, domain.ErrInvalidCredentials
	}
	r := domain.ParseRole(role)

	u, err := s.Store.Users().GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info("login failed", "reason", "unknown_user")
			return domain.Identity{}, domain.ErrInvalidCredentials
		}
		return domain.Identity{}, storeError(err)
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash(r)); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			log.Error("stored password hash unusable", "user_id", u.ID, "role", r.String(), "error", err)
		}
		log.Info("login failed", "reason", "password_mismatch", "user_id", u.ID, "role", r.String())
		return domain.Identity{}, domain.ErrInvalidCredentials
	}

	log.Info("login succeeded", "user_id", u.ID, "role", r.String())
	return domain.IdentityOf(u, r), nil
}

// ForgotPassword mails a reset code to the account registered under email.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return domain.Invalid("email", "email is required")
	}
	return s.OTP.IssueOTP(ctx, email)
}

// ResetPassword spends code and replaces the credential of role only; the
// other role's password is left as it was.
func (s *AccountService) ResetPassword(ctx context.Context, email, code, newPassword, role string) error {
	log := slogx.FromContext(ctx)

	if newPassword == "" {
		return domain.Invalid("newPassword", "newPassword is required")
	}
	if len(newPassword) > 256 {
		return domain.Invalid("newPassword", "newPassword must be at most 256 characters")
	}

	u, err := s.OTP.consume(ctx, email, code)
	if err != nil {
		return err
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return domain.NewError(domain.HashingError, err)
	}

	r := domain.ParseRole(role)
	if err := s.Store.Users().UpdatePasswordHash(ctx, u.ID, r, hash); err != nil {
		return storeError(err)
	}

	log.Info("password reset", "user_id", u.ID, "role", r.String())
	return nil
}

// GetProfile returns the account with id userID.
func (s *AccountService) GetProfile(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Store.Users().GetByID(ctx, userID)
	if err != nil {
		return domain.User{}, storeError(err)
	}
	return u, nil
}

// UpdateProfile writes the present fields of patch. A patch with no fields
// is a ValidationError.
func (s *AccountService) UpdateProfile(ctx context.Context, userID string, patch domain.ProfilePatch) (domain.User, error) {
	patch = trimPatch(patch)
	if patch.IsEmpty() {
		return domain.User{}, &domain.Error{Kind: domain.ValidationError, Msg: "no fields to update"}
	}
	if err := domain.ValidateStruct(patch); err != nil {
		return domain.User{}, err
	}

	if err := s.Store.Users().UpdateProfile(ctx, userID, patch); err != nil {
		return domain.User{}, storeError(err)
	}

	slogx.FromContext(ctx).Info("profile updated", "user_id", userID)
	return s.GetProfile(ctx, userID)
}

func trimPatch(p domain.ProfilePatch) domain.ProfilePatch {
	trim := func(v *string) *string {
		if v == nil {
			return nil
		}
		t := strings.TrimSpace(*v)
		return &t
	}
	return domain.ProfilePatch{
		Name:     trim(p.Name),
		Mobile:   trim(p.Mobile),
		Hospital: trim(p.Hospital),
		Address:  trim(p.Address),
	}
}
