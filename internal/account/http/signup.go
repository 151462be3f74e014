package http

import (
	"net/http"

	"github.com/aussiebroadwan/pharmacy/internal/account/service"
	"github.com/aussiebroadwan/pharmacy/pkg/accountsdk"
	"github.com/aussiebroadwan/pharmacy/pkg/httpx"
)

type SignupHandler struct {
	AccountService           *service.AccountService
	RequireEmailVerification bool
}

// HandleSignup creates the account right away, or mails a code and answers
// 202 when email verification is required.
func (h *SignupHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req accountsdk.SignupRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if h.RequireEmailVerification {
		if err := h.AccountService.BeginSignup(ctx, toSignupRequest(req)); err != nil {
			writeError(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusAccepted, accountsdk.SignupResponse{
			Pending: true,
			Message: "OTP sent to your email",
		})
		return
	}

	user, err := h.AccountService.Signup(ctx, toSignupRequest(req))
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, accountsdk.SignupResponse{
		UserID:  user.ID,
		Message: "Signup successful",
	})
}

// HandleVerify completes a signup started while verification was required.
func (h *SignupHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var req accountsdk.VerifySignupRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.OTP == "" {
		writeBadRequest(w, "otp is required")
		return
	}

	user, err := h.AccountService.VerifySignup(r.Context(), toSignupRequest(req.SignupRequest), req.OTP)
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, accountsdk.SignupResponse{
		UserID:  user.ID,
		Message: "Signup successful",
	})
}
