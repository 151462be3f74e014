package http

import (
	"net/http"

	"github.com/aussiebroadwan/pharmacy/internal/account/domain"
	"github.com/aussiebroadwan/pharmacy/internal/account/service"
	"github.com/aussiebroadwan/pharmacy/pkg/accountsdk"
	"github.com/aussiebroadwan/pharmacy/pkg/httpx"
)

// ProfileHandler serves the account of the session's user. It must sit
// behind httpx.AuthnMiddleware.
type ProfileHandler struct {
	AccountService *service.AccountService
}

func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.UserIDFromContext(r.Context())
	if !ok {
		accountsdk.ErrInvalidToken.WriteError(w)
		return
	}

	user, err := h.AccountService.GetProfile(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toProfileResponse(user))
}

func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.UserIDFromContext(r.Context())
	if !ok {
		accountsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req accountsdk.ProfileUpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	user, err := h.AccountService.UpdateProfile(r.Context(), userID, domain.ProfilePatch{
		Name:     req.Name,
		Mobile:   req.Mobile,
		Hospital: req.Hospital,
		Address:  req.Address,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toProfileResponse(user))
}
