package domain

import "time"

// PendingSignup is an email-verification challenge for a registration that
// has not been committed yet. It is keyed by email and holds no credentials;
// the full request is submitted again on verification.
type PendingSignup struct {
	Email     string
	Username  string
	OTP       string
	OTPExpiry time.Time
	CreatedAt time.Time
}
