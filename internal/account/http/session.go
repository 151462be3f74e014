package http

import (
	"net/http"

	"github.com/aussiebroadwan/pharmacy/internal/account/service"
	"github.com/aussiebroadwan/pharmacy/pkg/accountsdk"
	"github.com/aussiebroadwan/pharmacy/pkg/httpx"
	"github.com/aussiebroadwan/pharmacy/pkg/slogx"
)

type SessionHandler struct {
	AccountService *service.AccountService
	SessionService *service.SessionService
}

// HandleLogin checks the credential of the requested role and, on success
// only, replaces the process session.
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req accountsdk.LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	id, err := h.AccountService.Login(ctx, req.Username, req.Password, req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, sess, err := h.SessionService.Start(ctx, id)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to start session", "err", err)
		accountsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, accountsdk.LoginResponse{
		UserID:    id.UserID,
		Username:  id.Username,
		Role:      roleName(id.Role),
		Hospital:  id.Hospital,
		Phone:     id.Phone,
		Address:   id.Address,
		Token:     token,
		ExpiresAt: sess.ExpiresAt,
	})
}

func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.SessionService.End(r.Context())
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleState reports who, if anyone, is logged in.
func (h *SessionHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	sess, err := h.SessionService.Current()
	if err != nil {
		httpx.WriteJSON(w, http.StatusOK, accountsdk.SessionResponse{LoggedIn: false})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, accountsdk.SessionResponse{
		LoggedIn:  true,
		UserID:    sess.UserID,
		Username:  sess.Username,
		Role:      roleName(sess.Role),
		ExpiresAt: sess.ExpiresAt,
	})
}
