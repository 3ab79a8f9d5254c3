package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"tryon/internal/http/handlers"
	"tryon/internal/providers/channel3"
	"tryon/internal/providers/glam"
	"tryon/internal/tryon"
)

func newRouter(rateLimit int) http.Handler {
	provider := glam.NewClient(glam.Options{})
	app := handlers.NewApp(
		channel3.NewClient(channel3.Options{}),
		tryon.NewSubmitter(provider, nil, nil),
		tryon.NewUploader(nil),
		tryon.NewProviderStatus(provider),
		nil,
	)
	return NewRouter(app, Options{Logger: zerolog.Nop(), AllowedOrigins: []string{"http://localhost:3000"}, RateLimitPerMin: rateLimit})
}

func TestRoutesAreMounted(t *testing.T) {
	h := newRouter(0)
	cases := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/v1/healthz", http.StatusOK},
		{http.MethodGet, "/v1/openapi.json", http.StatusOK},
		{http.MethodGet, "/v1/docs", http.StatusOK},
		{http.MethodPost, "/api/search", http.StatusBadRequest},
		{http.MethodPost, "/api/upload", http.StatusBadRequest},
		{http.MethodPost, "/api/tryon", http.StatusBadRequest},
		{http.MethodGet, "/api/tryon-status", http.StatusBadRequest},
		{http.MethodGet, "/api/tryon/abc123", http.StatusInternalServerError},
		{http.MethodGet, "/api/unknown", http.StatusNotFound},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, strings.NewReader("{}")))
		if rr.Code != tc.want {
			t.Fatalf("%s %s: status = %d, want %d", tc.method, tc.path, rr.Code, tc.want)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Fatalf("%s %s: missing X-Request-ID", tc.method, tc.path)
		}
	}
}

func TestRateLimitOnlyGuardsSubmit(t *testing.T) {
	h := newRouter(1)
	for i, want := range []int{http.StatusBadRequest, http.StatusTooManyRequests} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/tryon", strings.NewReader("{}")))
		if rr.Code != want {
			t.Fatalf("submit %d: status = %d, want %d", i, rr.Code, want)
		}
	}
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("healthz %d: status = %d", i, rr.Code)
		}
	}
}
