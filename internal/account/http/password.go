package http

import (
	"net/http"

	"github.com/aussiebroadwan/pharmacy/internal/account/service"
	"github.com/aussiebroadwan/pharmacy/pkg/accountsdk"
	"github.com/aussiebroadwan/pharmacy/pkg/httpx"
)

type PasswordHandler struct {
	AccountService *service.AccountService
}

func (h *PasswordHandler) HandleForgot(w http.ResponseWriter, r *http.Request) {
	var req accountsdk.ForgotPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := h.AccountService.ForgotPassword(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, accountsdk.MessageResponse{Message: "OTP sent to your email"})
}

// HandleReset replaces the password of the requested role only.
func (h *PasswordHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	var req accountsdk.ResetPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := h.AccountService.ResetPassword(r.Context(), req.Email, req.OTP, req.NewPassword, req.Role); err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, accountsdk.MessageResponse{Message: "Password updated successfully"})
}
