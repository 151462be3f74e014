package httpx

import "context"

type ctxKey string

const (
	CtxKeyUserID    ctxKey = "user_id"
	CtxKeySessionID ctxKey = "session_id"
	CtxKeyClientIP  ctxKey = "client_ip"
)

// UserIDFromContext returns the acting user placed by AuthnMiddleware.
func UserIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(CtxKeyUserID).(string)
	return v, ok && v != ""
}

// SessionIDFromContext returns the session token id placed by AuthnMiddleware.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(CtxKeySessionID).(string)
	return v, ok && v != ""
}

// ClientIPFromContext returns the address resolved by ClientIPMiddleware.
func ClientIPFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(CtxKeyClientIP).(string)
	return v, ok && v != ""
}
