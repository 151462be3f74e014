package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// SignupRequest is everything needed to create an account.
type SignupRequest struct {
	Name           string `json:"name" validate:"required,max=128"`
	Username       string `json:"username" validate:"required,min=3,max=64,excludesall=@"`
	Email          string `json:"email" validate:"required,email,max=254"`
	Mobile         string `json:"mobile" validate:"required,max=32"`
	Hospital       string `json:"hospital" validate:"required,max=256"`
	Address        string `json:"address" validate:"required,max=512"`
	PasswordDoc    string `json:"passwordDoc" validate:"required,max=256"`
	PasswordPharma string `json:"passwordPharma" validate:"required,max=256"`
}

// Normalize lower-cases and trims the unique keys and trims profile fields.
// Passwords are left exactly as typed.
func (r SignupRequest) Normalize() SignupRequest {
	r.Username = NormalizeUsername(r.Username)
	r.Email = NormalizeEmail(r.Email)
	r.Name = strings.TrimSpace(r.Name)
	r.Mobile = strings.TrimSpace(r.Mobile)
	r.Hospital = strings.TrimSpace(r.Hospital)
	r.Address = strings.TrimSpace(r.Address)
	return r
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator. Field errors are reported with the
// json name of the field.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return strings.ToLower(f.Name)
			}
			return name
		})
	})
	return validate
}

// Validate checks the normalized request.
func (r SignupRequest) Validate() error {
	return ValidateStruct(r)
}

// ValidateStruct runs the validator over v and converts the first failure
// into a ValidationError naming the field.
func ValidateStruct(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &Error{Kind: ValidationError, Err: err}
	}

	fe := verrs[0]
	return Invalid(fe.Field(), describe(fe))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "email address is not valid"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "excludesall":
		return fmt.Sprintf("%s must not contain @", fe.Field())
	default:
		return fmt.Sprintf("%s is not valid", fe.Field())
	}
}
