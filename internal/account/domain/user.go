package domain

import (
	"strings"
	"time"
)

// User is one registered account. The same record carries two independent
// credentials, one per Role.
type User struct {
	ID                 string
	Name               string
	Username           string // lower-cased, trimmed
	Email              string // lower-cased, trimmed
	Mobile             string
	Hospital           string
	Address            string
	PasswordHashDoc    string
	PasswordHashPharma string
	OTP                *string    // set and cleared together with OTPExpiry
	OTPExpiry          *time.Time // code is invalid once this has passed
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// PasswordHash returns the stored credential for role.
func (u *User) PasswordHash(r Role) string {
	if r == RoleDoctor {
		return u.PasswordHashDoc
	}
	return u.PasswordHashPharma
}

// HasOTP reports whether a code is currently held.
func (u *User) HasOTP() bool {
	return u.OTP != nil && u.OTPExpiry != nil
}

// NormalizeUsername is applied to usernames on every write and lookup.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeEmail is applied to emails on every write and lookup.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
