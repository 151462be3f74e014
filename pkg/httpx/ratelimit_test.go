package httpx_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/pharmacy/pkg/httpx"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func request(remoteAddr string, hdr ...string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remoteAddr
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIPKeyExtractor(t *testing.T) {
	tests := []struct {
		name string
		req  *http.Request
		want string
	}{
		{"remote addr", request("10.0.0.7:5555"), "10.0.0.7"},
		{"remote addr without port", request("10.0.0.7"), "10.0.0.7"},
		{"forwarded ignored", request("10.0.0.7:5555", "X-Forwarded-For", "203.0.113.9"), "10.0.0.7"},
		{"real ip ignored", request("10.0.0.7:5555", "X-Real-IP", "198.51.100.4"), "10.0.0.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, httpx.IPKeyExtractor(tt.req))
		})
	}

	resolved := request("10.0.0.7:5555")
	resolved = resolved.WithContext(context.WithValue(resolved.Context(), httpx.CtxKeyClientIP, "203.0.113.9"))
	require.Equal(t, "203.0.113.9", httpx.IPKeyExtractor(resolved))
}

func TestJSONFieldKeyExtractor(t *testing.T) {
	extract := httpx.JSONFieldKeyExtractor("username")

	body := `{"username":"  DrSmith ","password":"pwd1"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/login", strings.NewReader(body))
	require.Equal(t, "drsmith", extract(req))

	// The handler still sees the whole body.
	rest, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	require.Equal(t, body, string(rest))

	for _, bad := range []string{`{"password":"x"}`, `{"username":42}`, `not json`, ``} {
		req := httptest.NewRequest(http.MethodPost, "/v1/login", strings.NewReader(bad))
		require.Empty(t, extract(req), "body %q", bad)
	}
}

func TestJSONFieldKeyExtractorLargeBody(t *testing.T) {
	extract := httpx.JSONFieldKeyExtractor("username")

	body := `{"username":"drsmith","password":"` + strings.Repeat("x", 70<<10) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/login", strings.NewReader(body))
	require.Equal(t, "drsmith", extract(req), "the field precedes the cut")

	rest, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	require.Len(t, rest, len(body))
	require.Equal(t, body, string(rest))
	require.NoError(t, req.Body.Close())

	late := `{"password":"` + strings.Repeat("x", 70<<10) + `","username":"drsmith"}`
	req = httptest.NewRequest(http.MethodPost, "/v1/login", strings.NewReader(late))
	require.Empty(t, extract(req))
	rest, err = io.ReadAll(req.Body)
	require.NoError(t, err)
	require.Equal(t, late, string(rest))
}

func TestRateLimitMiddlewarePassesLargeBody(t *testing.T) {
	cfg := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
	var got int
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		got = len(b)
		w.WriteHeader(http.StatusOK)
	})
	h := httpx.RateLimitByIPAndJSONField(cfg, "username")(echo)

	body := `{"username":"drsmith","password":"` + strings.Repeat("x", 70<<10) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/login", strings.NewReader(body))
	req.RemoteAddr = "10.0.0.1:4000"
	require.Equal(t, http.StatusOK, serve(h, req).Code)
	require.Equal(t, len(body), got)
}

func TestCompositeKeyExtractor(t *testing.T) {
	fixed := func(v string) httpx.KeyExtractor {
		return func(*http.Request) string { return v }
	}

	req := request("10.0.0.7:5555")
	require.Equal(t, "a:b", httpx.CompositeKeyExtractor(":", fixed("a"), fixed(""), fixed("b"))(req))
	require.Empty(t, httpx.CompositeKeyExtractor(":", fixed(""))(req))
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := httpx.RateLimitConfig{RequestsPerWindow: 3, Window: time.Minute, Burst: 3}
	h := httpx.RateLimitMiddleware(cfg, httpx.IPKeyExtractor)(okHandler)

	for i := range 3 {
		rec := serve(h, request("10.0.0.1:1"))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
		require.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		require.Equal(t, strconv.Itoa(2-i), rec.Header().Get("X-RateLimit-Remaining"))
	}

	rejected := serve(h, request("10.0.0.1:3"))
	require.Equal(t, http.StatusTooManyRequests, rejected.Code)
	require.Equal(t, "20", rejected.Header().Get("Retry-After"))
	require.Equal(t, "1m0s", rejected.Header().Get("X-RateLimit-Window"))
	require.Contains(t, rejected.Body.String(), "rate_limit_exceeded")

	// Other clients have their own bucket.
	require.Equal(t, http.StatusOK, serve(h, request("10.0.0.2:1")).Code)
}

func TestRateLimitMiddlewareWithoutKey(t *testing.T) {
	cfg := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
	h := httpx.RateLimitMiddleware(cfg, func(*http.Request) string { return "" })(okHandler)

	for range 5 {
		rec := serve(h, request("10.0.0.1:1"))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimitByIPAndJSONField(t *testing.T) {
	cfg := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
	h := httpx.RateLimitByIPAndJSONField(cfg, "username")(okHandler)

	login := func(ip, username string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/login", strings.NewReader(`{"username":"`+username+`"}`))
		req.RemoteAddr = ip + ":4000"
		return serve(h, req).Code
	}

	require.Equal(t, http.StatusOK, login("10.0.0.1", "drsmith"))
	require.Equal(t, http.StatusTooManyRequests, login("10.0.0.1", "DRSMITH"))
	require.Equal(t, http.StatusOK, login("10.0.0.1", "nurse"))
	require.Equal(t, http.StatusOK, login("10.0.0.2", "drsmith"))
}

func TestRateLimitByUser(t *testing.T) {
	cfg := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
	h := httpx.RateLimitByUser(cfg)(okHandler)

	as := func(userID string) *http.Request {
		req := request("10.0.0.1:1")
		return req.WithContext(context.WithValue(req.Context(), httpx.CtxKeyUserID, userID))
	}

	require.Equal(t, http.StatusOK, serve(h, as("u1")).Code)
	require.Equal(t, http.StatusTooManyRequests, serve(h, as("u1")).Code)
	require.Equal(t, http.StatusOK, serve(h, as("u2")).Code)
}

func TestRateLimitProfiles(t *testing.T) {
	for name, cfg := range map[string]httpx.RateLimitConfig{
		"strict":   httpx.StrictLimit,
		"moderate": httpx.ModerateLimit,
		"lenient":  httpx.LenientLimit,
	} {
		t.Run(name, func(t *testing.T) {
			require.Positive(t, cfg.RequestsPerWindow)
			require.Positive(t, cfg.Window)
			require.Positive(t, cfg.Burst)
		})
	}

	require.Less(t, httpx.StrictLimit.RequestsPerWindow, httpx.ModerateLimit.RequestsPerWindow)
	require.Less(t, httpx.ModerateLimit.RequestsPerWindow, httpx.LenientLimit.RequestsPerWindow)
}

func TestParseRateLimitFromEnv(t *testing.T) {
	def := httpx.RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5}

	tests := []struct {
		name string
		env  map[string]string
		want httpx.RateLimitConfig
	}{
		{"defaults", nil, def},
		{
			"all overridden",
			map[string]string{"RATELIMIT_TEST_REQUESTS": "50", "RATELIMIT_TEST_WINDOW_SEC": "30", "RATELIMIT_TEST_BURST": "7"},
			httpx.RateLimitConfig{RequestsPerWindow: 50, Window: 30 * time.Second, Burst: 7},
		},
		{
			"burst only",
			map[string]string{"RATELIMIT_TEST_BURST": "9"},
			httpx.RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 9},
		},
		{
			"invalid and non positive ignored",
			map[string]string{"RATELIMIT_TEST_REQUESTS": "lots", "RATELIMIT_TEST_WINDOW_SEC": "0", "RATELIMIT_TEST_BURST": "-3"},
			def,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"RATELIMIT_TEST_REQUESTS", "RATELIMIT_TEST_WINDOW_SEC", "RATELIMIT_TEST_BURST"} {
				t.Setenv(k, tt.env[k])
			}
			require.Equal(t, tt.want, httpx.ParseRateLimitFromEnv("TEST", def))
		})
	}
}
