package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/pharmacy/internal/account/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// DuplicateError reports a unique-index violation on a named field
// ("username" or "email"). It unwraps to ErrAlreadyExists.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string { return "store: duplicate " + e.Field }
func (e *DuplicateError) Unwrap() error { return ErrAlreadyExists }

// Store is the root data access interface. Concrete drivers (mongo, sqlite)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable.
//
// Every write is a single-record operation. Uniqueness of username and email
// is enforced by the driver's indexes, not by the callers' pre-checks.
type Store interface {
	Users() Users
	PendingSignups() PendingSignups

	// EnsureSchema creates indexes (mongo) or applies migrations (sqlite).
	EnsureSchema(ctx context.Context) error

	// Close releases any underlying resources.
	Close(ctx context.Context) error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

type Users interface {
	// GetByID returns a user by its store-assigned id.
	GetByID(ctx context.Context, id string) (domain.User, error)

	// GetByUsername expects an already normalized username.
	GetByUsername(ctx context.Context, username string) (domain.User, error)

	// GetByEmail expects an already normalized email.
	GetByEmail(ctx context.Context, email string) (domain.User, error)

	// Create inserts u and returns it with the id assigned by the store.
	// A unique violation is reported as *DuplicateError.
	Create(ctx context.Context, u domain.User) (domain.User, error)

	// SetOTP stores code and expiry in one update, replacing any prior code.
	SetOTP(ctx context.Context, email, code string, expiry time.Time) error

	// ClearOTP unsets both OTP fields, but only while the stored code is
	// still code. Returns ErrNotFound when nothing matched, which is how a
	// concurrent second use of the same code loses.
	ClearOTP(ctx context.Context, email, code string) error

	// UpdatePasswordHash overwrites the credential of one role only.
	UpdatePasswordHash(ctx context.Context, userID string, role domain.Role, hash string) error

	// UpdateProfile writes the present fields of patch and bumps updated_at.
	UpdateProfile(ctx context.Context, userID string, patch domain.ProfilePatch) error

	// ClearExpiredOTPs is housekeeping; returns the number of users touched.
	ClearExpiredOTPs(ctx context.Context, now time.Time) (int64, error)
}

type PendingSignups interface {
	// Upsert stores p, replacing any pending registration for the same email.
	Upsert(ctx context.Context, p domain.PendingSignup) error

	// Get returns the pending registration for email.
	Get(ctx context.Context, email string) (domain.PendingSignup, error)

	// Consume deletes the pending registration for email if its code is
	// still code. Returns ErrNotFound when nothing matched.
	Consume(ctx context.Context, email, code string) error

	// Delete removes the pending registration for email, if any.
	Delete(ctx context.Context, email string) error

	// DeleteExpired is housekeeping; returns the number of rows removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
