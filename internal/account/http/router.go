package http

import (
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/aussiebroadwan/pharmacy/internal/account/service"
	"github.com/aussiebroadwan/pharmacy/internal/account/store"
	"github.com/aussiebroadwan/pharmacy/pkg/httpx"
	"github.com/aussiebroadwan/pharmacy/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	AccountService *service.AccountService
	SessionService *service.SessionService

	// RequireEmailVerification routes POST /v1/signup through BeginSignup;
	// the account is only created by POST /v1/signup/verify.
	RequireEmailVerification bool

	// TrustedProxies are the peers whose X-Forwarded-For and X-Real-IP
	// headers name the client. Empty means rate limits key on the peer.
	TrustedProxies []netip.Prefix
}

func NewRouter(st store.Store, buildVersion string, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.middlewares = append(r.middlewares, httpx.ClientIPMiddleware(r.TrustedProxies))

	r.registerSignup()
	r.registerSession()
	r.registerPassword()
	r.registerProfile()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSignup() {
	h := &SignupHandler{
		AccountService:           r.AccountService,
		RequireEmailVerification: r.RequireEmailVerification,
	}

	// Both are public and create accounts, strict by IP.
	r.Mux.Handle("POST /v1/signup",
		httpx.Chain(http.HandlerFunc(h.HandleSignup),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/signup/verify",
		httpx.Chain(http.HandlerFunc(h.HandleVerify),
			httpx.RateLimitByIP(httpx.StrictLimit),
			httpx.RateLimitByJSONField(httpx.StrictLimit, "email"),
		),
	)
}

func (r *Router) registerSession() {
	h := &SessionHandler{
		AccountService: r.AccountService,
		SessionService: r.SessionService,
	}

	// Limited by IP + username so one address cannot spray many accounts
	// and one account cannot be guessed from many addresses at full rate.
	r.Mux.Handle("POST /v1/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "username"),
		),
	)

	r.Mux.Handle("POST /v1/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.AuthnMiddleware(r.SessionService),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("GET /v1/session",
		httpx.Chain(http.HandlerFunc(h.HandleState),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerPassword() {
	h := &PasswordHandler{AccountService: r.AccountService}

	// Both mail or spend one-time codes, strict by IP. Guesses at a code
	// are also capped per email however many addresses send them.
	r.Mux.Handle("POST /v1/password/forgot",
		httpx.Chain(http.HandlerFunc(h.HandleForgot),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/password/reset",
		httpx.Chain(http.HandlerFunc(h.HandleReset),
			httpx.RateLimitByIP(httpx.StrictLimit),
			httpx.RateLimitByJSONField(httpx.StrictLimit, "email"),
		),
	)
}

func (r *Router) registerProfile() {
	h := &ProfileHandler{AccountService: r.AccountService}

	r.Mux.Handle("GET /v1/me",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			httpx.AuthnMiddleware(r.SessionService),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("PATCH /v1/me",
		httpx.Chain(http.HandlerFunc(h.HandleUpdate),
			httpx.AuthnMiddleware(r.SessionService),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.SessionService),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
