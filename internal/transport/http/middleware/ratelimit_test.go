package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketingops/internal/domain/auth"
)

func freezeRateClock(t *testing.T, at time.Time) *time.Time {
	t.Helper()
	now := at
	prev := rateNow
	rateNow = func() time.Time { return now }
	t.Cleanup(func() { rateNow = prev })
	return &now
}

func noContent() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func loginRequest(remote, email string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(`{"email":"`+email+`"}`))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remote
	return req
}

func TestRateLimitUsesUserKeyBeforeIPFallback(t *testing.T) {
	limited := RateLimit(1, time.Minute)(noContent())
	userCtx := WithUser(context.Background(), auth.UserContext{UserID: "user-1"})

	first := httptest.NewRequest(http.MethodPost, "/api/v1/compliance/retention/run", nil).WithContext(userCtx)
	first.RemoteAddr = "198.51.100.11:2222"
	if rec := serve(limited, first); rec.Code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/api/v1/compliance/retention/run", nil).WithContext(userCtx)
	second.RemoteAddr = "198.51.100.12:3333"
	if rec := serve(limited, second); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled by user key, got %d", rec.Code)
	}
}

func TestRateLimitFallsBackToIP(t *testing.T) {
	limited := RateLimit(1, time.Minute)(noContent())

	if rec := serve(limited, loginRequest("203.0.113.10:4444", "a@example.com")); rec.Code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}
	if rec := serve(limited, loginRequest("203.0.113.10:5555", "b@example.com")); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled by ip key, got %d", rec.Code)
	}
}

func TestRateLimitCustomKey(t *testing.T) {
	limited := RateLimit(1, time.Minute, WithKeyFunc(AuthEmailOrIPKey("email")))(noContent())

	if rec := serve(limited, loginRequest("203.0.113.20:1", "a@example.com")); rec.Code != http.StatusNoContent {
		t.Fatalf("expected a@ to pass, got %d", rec.Code)
	}
	if rec := serve(limited, loginRequest("203.0.113.20:2", "B@example.com")); rec.Code != http.StatusNoContent {
		t.Fatalf("expected b@ to pass on its own key, got %d", rec.Code)
	}
	if rec := serve(limited, loginRequest("203.0.113.21:3", "b@EXAMPLE.com")); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected email key to be case-insensitive, got %d", rec.Code)
	}
}

func TestRateLimitWindowReset(t *testing.T) {
	now := freezeRateClock(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	limited := RateLimit(1, time.Minute)(noContent())

	if rec := serve(limited, loginRequest("192.0.2.20:1111", "a@example.com")); rec.Code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}
	*now = now.Add(30 * time.Second)
	if rec := serve(limited, loginRequest("192.0.2.20:1111", "a@example.com")); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", rec.Code)
	}
	*now = now.Add(31 * time.Second)
	if rec := serve(limited, loginRequest("192.0.2.20:1111", "a@example.com")); rec.Code != http.StatusNoContent {
		t.Fatalf("expected request after window reset to pass, got %d", rec.Code)
	}
}

func TestRateLimitReturnsRetryMetadata(t *testing.T) {
	now := freezeRateClock(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	limited := RateLimit(1, time.Minute)(noContent())

	first := serve(limited, loginRequest("192.0.2.30:1234", "a@example.com"))
	if got := first.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("expected remaining 0, got %q", got)
	}

	*now = now.Add(20 * time.Second)
	rec := serve(limited, loginRequest("192.0.2.30:1234", "a@example.com"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected throttled response, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "40" {
		t.Fatalf("expected Retry-After 40, got %q", got)
	}
	if got := rec.Header().Get("X-RateLimit-Reset"); got != "40" {
		t.Fatalf("expected X-RateLimit-Reset 40, got %q", got)
	}
}

func TestRateLimitEvictsExpiredWindows(t *testing.T) {
	now := freezeRateClock(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	l := newWindowLimiter("test", 5, time.Minute, actorOrIPKey)

	for _, remote := range []string{"192.0.2.1:1", "192.0.2.2:1", "192.0.2.3:1"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		l.take(req)
	}
	if len(l.windows) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(l.windows))
	}

	*now = now.Add(2 * time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.9:1"
	l.take(req)
	if len(l.windows) != 1 {
		t.Fatalf("expected expired windows to be evicted, got %d", len(l.windows))
	}
}

func TestRouteMatcher(t *testing.T) {
	match := routeMatcher(sensitiveComplianceRoutes...)
	cases := []struct {
		method string
		path   string
		want   bool
	}{
		{http.MethodPost, "/api/v1/compliance/retention/run", true},
		{http.MethodPost, "/api/v1/compliance/retention/run/", true},
		{http.MethodPost, "/api/v1/compliance/requests", true},
		{http.MethodPost, "/api/v1/compliance/requests/req-1/execute", true},
		{http.MethodPost, "/api/v1/compliance/consent/user-9/revoke-all", true},
		{http.MethodGet, "/api/v1/compliance/requests", false},
		{http.MethodPatch, "/api/v1/compliance/requests/req-1", false},
		{http.MethodPost, "/api/v1/compliance/requests/req-1/extra/execute", false},
		{http.MethodPost, "/api/v1/compliance/retention/policies", false},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		if got := match(req); got != tc.want {
			t.Fatalf("%s %s: expected %v, got %v", tc.method, tc.path, tc.want, got)
		}
	}
}

func TestSensitiveMutationRateLimitScope(t *testing.T) {
	limited := SensitiveMutationRateLimit(4, time.Minute)(noContent())

	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/compliance/retention/policies", nil)
		req.RemoteAddr = "198.51.100.40:8888"
		if rec := serve(limited, req); rec.Code != http.StatusNoContent {
			t.Fatalf("expected read route request %d to bypass sensitive limits, got %d", i+1, rec.Code)
		}
	}

	userCtx := WithUser(context.Background(), auth.UserContext{UserID: "officer-1"})
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/compliance/retention/run", nil).WithContext(userCtx)
		req.RemoteAddr = "198.51.100.41:9999"
		rec := serve(limited, req)
		if i < 2 && rec.Code != http.StatusNoContent {
			t.Fatalf("expected sensitive request %d to pass, got %d", i+1, rec.Code)
		}
		if i == 2 && rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected third sensitive request to be throttled, got %d", rec.Code)
		}
	}
}

func TestSensitiveLoginLimitedPerAddress(t *testing.T) {
	limited := SensitiveMutationRateLimit(4, time.Minute)(noContent())

	if rec := serve(limited, loginRequest("198.51.100.50:1", "a@example.com")); rec.Code != http.StatusNoContent {
		t.Fatalf("expected first login to pass, got %d", rec.Code)
	}
	if rec := serve(limited, loginRequest("198.51.100.50:2", "b@example.com")); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second login from same address to be throttled, got %d", rec.Code)
	}
	if rec := serve(limited, loginRequest("198.51.100.51:1", "a@example.com")); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected repeated email from another address to be throttled, got %d", rec.Code)
	}
}
