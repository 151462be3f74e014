package accountsdk

import "time"

// Role names accepted by the API. Any value other than RoleDoctor logs in
// against the pharmacy credential.
const (
	RoleDoctor     = "Doctor"
	RolePharmacist = "Pharmacist"
)

// SignupRequest registers an account with one password per role.
type SignupRequest struct {
	Name           string `json:"name"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Mobile         string `json:"mobile"`
	Hospital       string `json:"hospital"`
	Address        string `json:"address"`
	PasswordDoc    string `json:"passwordDoc"`
	PasswordPharma string `json:"passwordPharma"`
}

// VerifySignupRequest completes a signup that was held for email verification.
type VerifySignupRequest struct {
	SignupRequest
	OTP string `json:"otp"`
}

// SignupResponse is returned by both signup endpoints. Pending is true when
// the account will only be created after VerifySignup.
type SignupResponse struct {
	UserID  string `json:"userId,omitempty"`
	Pending bool   `json:"pending"`
	Message string `json:"message"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// LoginResponse carries the identity payload the desktop shell keeps for the
// lifetime of the session, plus the bearer token for authenticated calls.
type LoginResponse struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Hospital  string    `json:"hospital"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
	Role        string `json:"role"`
}

// MessageResponse is the body of operations that only report success.
type MessageResponse struct {
	Message string `json:"message"`
}

// SessionResponse reports the state of the process-wide session.
type SessionResponse struct {
	LoggedIn  bool      `json:"loggedIn"`
	UserID    string    `json:"userId,omitempty"`
	Username  string    `json:"username,omitempty"`
	Role      string    `json:"role,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
}

type ProfileResponse struct {
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Mobile    string    `json:"mobile"`
	Hospital  string    `json:"hospital"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProfileUpdateRequest changes only the fields that are present.
type ProfileUpdateRequest struct {
	Name     *string `json:"name,omitempty"`
	Mobile   *string `json:"mobile,omitempty"`
	Hospital *string `json:"hospital,omitempty"`
	Address  *string `json:"address,omitempty"`
}

type HealthResponse struct {
	Status  string            `json:"status"`
	Uptime  string            `json:"uptime,omitempty"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}
