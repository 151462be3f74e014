package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/pharmacy/pkg/cryptox"
	"github.com/aussiebroadwan/pharmacy/pkg/slogx"
)

// TokenResolver turns a bearer token into the acting user and session.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (userID, sessionID string, err error)
}

// AuthnMiddleware requires a bearer token accepted by the resolver and puts
// the user and session ids into the request context.
func AuthnMiddleware(res TokenResolver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			userID, sessionID, err := res.ResolveToken(ctx, raw)
			if err != nil {
				log.Warn("session token rejected", "token_fp", cryptox.FingerprintToken(raw), "err", err)
				writeBearerError(w, "session is not active")
				return
			}

			ctx = context.WithValue(ctx, CtxKeyUserID, userID)
			ctx = context.WithValue(ctx, CtxKeySessionID, sessionID)
			ctx = slogx.WithUserID(ctx, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"error":             "invalid_token",
		"error_description": desc,
	})
}
