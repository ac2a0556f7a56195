package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"mdm-platform/feedhub/internal/auth"
	"mdm-platform/feedhub/internal/config"
	"mdm-platform/feedhub/internal/logging"
	"mdm-platform/feedhub/internal/metrics"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func newSigner(t *testing.T) *auth.TokenSigner {
	t.Helper()
	signer, err := auth.NewTokenSigner([]byte("test-secret"))
	if err != nil {
		t.Fatalf("Failed to create signer: %v", err)
	}
	return signer
}

func TestAuthMiddleware(t *testing.T) {
	logging.UseLogger(zap.NewNop())
	signer := newSigner(t)
	token, err := signer.Issue("viewer@example.com", auth.RoleViewer, time.Hour)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	var seen auth.UserClaims
	h := AuthMiddleware(signer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.GetUserClaims(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer not-a-token", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/connections", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Errorf("Expected status %d, got %d", tc.want, rec.Code)
			}
		})
	}

	if seen == nil || seen.UserID() != "viewer@example.com" {
		t.Errorf("Expected claims for viewer@example.com, got %v", seen)
	}
}

func TestRequirePermission(t *testing.T) {
	h := RequirePermission(auth.ActionWrite)(http.HandlerFunc(okHandler))

	for role, want := range map[auth.Role]int{
		auth.RoleAdmin:    http.StatusOK,
		auth.RoleOperator: http.StatusForbidden,
		auth.RoleViewer:   http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req = req.WithContext(auth.SetUserClaims(req.Context(), &auth.JWTClaims{RoleValue: role}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("Role %s: expected status %d, got %d", role, want, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected %d without claims, got %d", http.StatusForbidden, rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2, Whitelist: []string{"10.0.0.9"}})
	h := rl.Middleware(http.HandlerFunc(okHandler))

	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if call("10.0.0.1:1000") != http.StatusOK || call("10.0.0.1:1001") != http.StatusOK {
		t.Fatal("Expected the burst to be allowed")
	}
	if code := call("10.0.0.1:1002"); code != http.StatusTooManyRequests {
		t.Errorf("Expected %d after the burst, got %d", http.StatusTooManyRequests, code)
	}
	if code := call("10.0.0.2:1000"); code != http.StatusOK {
		t.Errorf("Expected another client to have its own budget, got %d", code)
	}
	for i := 0; i < 5; i++ {
		if code := call("10.0.0.9:1000"); code != http.StatusOK {
			t.Fatalf("Expected whitelisted client to pass, got %d", code)
		}
	}
}

func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	promReg := prometheus.NewRegistry()
	reg := metrics.NewMetricsRegistryWith(promReg)

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(MetricsMiddleware(reg))
	r.Get("/imports/{id}", okHandler)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/imports/abc", nil))

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("Expected a generated request ID")
	}
	families, err := promReg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() != "feedhub_http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "endpoint" && l.GetValue() == "/imports/{id}" && m.GetCounter().GetValue() == 1 {
					found = true
				}
			}
		}
	}
	if !found {
		t.Error("Expected one request recorded under the route pattern")
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	got := NormalizeEndpoint("/api/v1/imports/123/errors/3f2b8c1e-9d4a-4e5b-8f6a-1b2c3d4e5f60")
	want := "/api/v1/imports/{id}/errors/{id}"
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}
