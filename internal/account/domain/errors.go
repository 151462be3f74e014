package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failures an account operation can report.
type ErrorKind int

const (
	UnknownError ErrorKind = iota
	DuplicateField
	NotFound
	InvalidCredentials
	InvalidOrExpiredOtp
	HashingError
	StoreError
	ValidationError
	DispatchError
)

// String is the human-readable form shown to the user.
func (k ErrorKind) String() string {
	switch k {
	case DuplicateField:
		return "already registered"
	case NotFound:
		return "no account found"
	case InvalidCredentials:
		return "invalid username or password"
	case InvalidOrExpiredOtp:
		return "invalid or expired OTP"
	case HashingError:
		return "failed to process password"
	case StoreError:
		return "database error"
	case ValidationError:
		return "invalid input"
	case DispatchError:
		return "failed to send email"
	default:
		return "unknown error"
	}
}

// Error is the error type returned by the account services.
type Error struct {
	Kind  ErrorKind
	Field string // offending input, for DuplicateField and ValidationError
	Msg   string // optional detail shown in place of the kind text
	Err   error  // underlying cause, never shown to the user
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Field != "" && e.Kind == DuplicateField {
		msg = e.Field + " " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Display returns the message for the user, without the underlying cause.
func (e *Error) Display() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Field != "" && e.Kind == DuplicateField {
		return e.Field + " " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, and of the same field when the
// target names one. It lets the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Field == "" || t.Field == e.Field
}

var (
	ErrDuplicateEmail      = &Error{Kind: DuplicateField, Field: "email"}
	ErrDuplicateUsername   = &Error{Kind: DuplicateField, Field: "username"}
	ErrNotFound            = &Error{Kind: NotFound}
	ErrInvalidCredentials  = &Error{Kind: InvalidCredentials}
	ErrInvalidOrExpiredOTP = &Error{Kind: InvalidOrExpiredOtp}
	ErrValidation          = &Error{Kind: ValidationError}
	ErrDispatch            = &Error{Kind: DispatchError}
)

// NewError wraps cause as an error of the given kind.
func NewError(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, Err: cause}
}

// Invalid reports a validation failure on field.
func Invalid(field, msg string) *Error {
	return &Error{Kind: ValidationError, Field: field, Msg: msg}
}

// KindOf returns the kind of err, or UnknownError when err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return UnknownError
}
