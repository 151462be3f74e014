package http

import (
	"github.com/aussiebroadwan/pharmacy/internal/account/domain"
	"github.com/aussiebroadwan/pharmacy/pkg/accountsdk"
)

func toSignupRequest(in accountsdk.SignupRequest) domain.SignupRequest {
	return domain.SignupRequest{
		Name:           in.Name,
		Username:       in.Username,
		Email:          in.Email,
		Mobile:         in.Mobile,
		Hospital:       in.Hospital,
		Address:        in.Address,
		PasswordDoc:    in.PasswordDoc,
		PasswordPharma: in.PasswordPharma,
	}
}

// roleName is the display name the shell uses for r.
func roleName(r domain.Role) string {
	if r == domain.RoleDoctor {
		return accountsdk.RoleDoctor
	}
	return accountsdk.RolePharmacist
}

func toProfileResponse(u domain.User) accountsdk.ProfileResponse {
	return accountsdk.ProfileResponse{
		UserID:    u.ID,
		Name:      u.Name,
		Username:  u.Username,
		Email:     u.Email,
		Mobile:    u.Mobile,
		Hospital:  u.Hospital,
		Address:   u.Address,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
