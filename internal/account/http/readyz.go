package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aussiebroadwan/pharmacy/internal/account/service"
	"github.com/aussiebroadwan/pharmacy/internal/account/store"
	"github.com/aussiebroadwan/pharmacy/pkg/accountsdk"
	"github.com/aussiebroadwan/pharmacy/pkg/httpx"
)

// readinessTimeout caps how long a probe waits on the store.
const readinessTimeout = 2 * time.Second

// ReadyzHandler reports 200 when the record store answers and a session
// signing key is loaded, 503 "degraded" otherwise.
func ReadyzHandler(
	startTime time.Time,
	version string,
	st store.Store,
	sessions *service.SessionService,
) http.HandlerFunc {
	probes := []struct {
		name  string
		check func(context.Context) error
	}{
		{"database", st.Ping},
		{"signer", func(context.Context) error {
			if sessions == nil || sessions.Signer == nil {
				return errors.New("no signing key loaded")
			}
			return sessions.Signer.Validate()
		}},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		resp := accountsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  make(map[string]string, len(probes)),
		}
		code := http.StatusOK

		for _, p := range probes {
			if err := p.check(ctx); err != nil {
				resp.Checks[p.name] = "error: " + err.Error()
				resp.Status, code = "degraded", http.StatusServiceUnavailable
				continue
			}
			resp.Checks[p.name] = "ok"
		}

		httpx.WriteJSON(w, code, resp)
	}
}
