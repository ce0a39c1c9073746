package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"marketingops/internal/requestctx"
)

func TestRequestIDMiddleware(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := GetRequestID(r.Context())
		if reqID == "" {
			t.Fatal("expected request id in context")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}

func TestRequestIDKeepsCallerValue(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "trace-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "trace-123" {
		t.Fatalf("expected caller request id, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", 500))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); len(got) > maxRequestIDLength {
		t.Fatalf("expected oversized request id to be replaced, got %d chars", len(got))
	}
}

func TestRequestIDRecordsClientMeta(t *testing.T) {
	var meta requestctx.Meta
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta = requestctx.MetaFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.9:5000"
	req.Header.Set("User-Agent", "privacy-portal/2")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if meta.ClientIP != "198.51.100.9" || meta.UserAgent != "privacy-portal/2" || meta.RequestID == "" {
		t.Fatalf("unexpected meta %+v", meta)
	}
}
