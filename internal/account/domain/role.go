package domain

import "strings"

// Role selects which of an account's two credentials is in use.
type Role int

const (
	RolePharmacy Role = iota
	RoleDoctor
)

// ParseRole maps a role name from the shell onto a Role. Only "Doctor"
// (any case) selects the doctor credential; every other value, including
// "Pharmacist" and the empty string, selects the pharmacy credential.
func ParseRole(s string) Role {
	if strings.EqualFold(strings.TrimSpace(s), "doctor") {
		return RoleDoctor
	}
	return RolePharmacy
}

func (r Role) String() string {
	if r == RoleDoctor {
		return "doctor"
	}
	return "pharmacy"
}
