package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"marketingops/internal/transport/http/api"
	"marketingops/internal/transport/http/shared"
)

var rateNow = time.Now

type RateLimitKeyFunc func(r *http.Request) string

type RateLimitOption func(*windowLimiter)

func WithKeyFunc(fn RateLimitKeyFunc) RateLimitOption {
	return func(l *windowLimiter) {
		if fn != nil {
			l.keyFn = fn
		}
	}
}

// RateLimit caps every request at limit per window, keyed by the
// authenticated user or the client address.
func RateLimit(limit int, window time.Duration, opts ...RateLimitOption) func(http.Handler) http.Handler {
	l := newWindowLimiter("global", limit, window, actorOrIPKey)
	for _, opt := range opts {
		opt(l)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.apply(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// sensitiveComplianceRoutes trigger deletion, export or bulk revocation.
var sensitiveComplianceRoutes = []string{
	"/compliance/retention/run",
	"/compliance/retention/purge",
	"/compliance/requests",
	"/compliance/requests/*/execute",
	"/compliance/consent/*/revoke-all",
}

type rateRule struct {
	match    func(r *http.Request) bool
	limiters []*windowLimiter
}

// SensitiveMutationRateLimit adds tighter limits on login and on compliance
// mutations. Login is limited per address and per submitted email; the
// compliance routes per actor.
func SensitiveMutationRateLimit(baseLimit int, window time.Duration) func(http.Handler) http.Handler {
	authLimit := max(baseLimit/4, 1)
	mutationLimit := max(baseLimit/2, 1)
	rules := []rateRule{
		{
			match: routeMatcher("/auth/login"),
			limiters: []*windowLimiter{
				newWindowLimiter("login-ip", authLimit, window, shared.ClientIP),
				newWindowLimiter("login-email", authLimit, window, AuthEmailOrIPKey("email")),
			},
		},
		{
			match:    routeMatcher(sensitiveComplianceRoutes...),
			limiters: []*windowLimiter{newWindowLimiter("compliance-mutation", mutationLimit, window, actorOrIPKey)},
		},
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, rule := range rules {
				if !rule.match(r) {
					continue
				}
				for _, l := range rule.limiters {
					if !l.apply(w, r) {
						return
					}
				}
				break
			}
			next.ServeHTTP(w, r)
		})
	}
}

func AuthEmailOrIPKey(field string) RateLimitKeyFunc {
	field = strings.TrimSpace(field)
	if field == "" {
		field = "email"
	}
	return func(r *http.Request) string {
		email := peekJSONString(r, field)
		if email == "" {
			return shared.ClientIP(r)
		}
		return "email:" + strings.ToLower(email)
	}
}

func actorOrIPKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.UserID != "" {
		return "user:" + user.UserID
	}
	return shared.ClientIP(r)
}

// routeMatcher matches mutating requests whose API path fits one of the
// patterns. A "*" pattern segment matches exactly one path segment.
func routeMatcher(patterns ...string) func(r *http.Request) bool {
	split := make([][]string, len(patterns))
	for i, p := range patterns {
		split[i] = strings.Split(strings.Trim(p, "/"), "/")
	}
	return func(r *http.Request) bool {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			return false
		}
		segments := strings.Split(strings.Trim(apiPath(r.URL.Path), "/"), "/")
		for _, pattern := range split {
			if segmentsMatch(pattern, segments) {
				return true
			}
		}
		return false
	}
}

func segmentsMatch(pattern, segments []string) bool {
	if len(pattern) != len(segments) {
		return false
	}
	for i, want := range pattern {
		if want != "*" && want != segments[i] {
			return false
		}
	}
	return true
}

func apiPath(path string) string {
	path = strings.TrimPrefix(strings.TrimSpace(path), "/api/v1")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// peekJSONString reads one string field from a JSON body and restores the
// body for the handler.
func peekJSONString(r *http.Request, field string) string {
	if r.Body == nil || !strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 64*1024))
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))
	var payload map[string]any
	if json.Unmarshal(raw, &payload) != nil {
		return ""
	}
	value, _ := payload[field].(string)
	return strings.TrimSpace(value)
}

type rateWindow struct {
	hits    int
	resetAt time.Time
}

// windowLimiter counts hits per key in fixed windows. Expired windows are
// evicted at most once per window length.
type windowLimiter struct {
	mu        sync.Mutex
	name      string
	limit     int
	window    time.Duration
	keyFn     RateLimitKeyFunc
	windows   map[string]*rateWindow
	nextSweep time.Time
}

func newWindowLimiter(name string, limit int, window time.Duration, keyFn RateLimitKeyFunc) *windowLimiter {
	return &windowLimiter{
		name:    name,
		limit:   limit,
		window:  window,
		keyFn:   keyFn,
		windows: map[string]*rateWindow{},
	}
}

type rateDecision struct {
	key       string
	allowed   bool
	remaining int
	resetIn   time.Duration
}

func (l *windowLimiter) take(r *http.Request) rateDecision {
	key := l.keyFn(r)
	if key == "" {
		key = shared.ClientIP(r)
	}
	now := rateNow()

	l.mu.Lock()
	defer l.mu.Unlock()
	if now.After(l.nextSweep) {
		for k, win := range l.windows {
			if now.After(win.resetAt) {
				delete(l.windows, k)
			}
		}
		l.nextSweep = now.Add(l.window)
	}
	win, ok := l.windows[key]
	if !ok || now.After(win.resetAt) {
		win = &rateWindow{resetAt: now.Add(l.window)}
		l.windows[key] = win
	}
	win.hits++
	return rateDecision{
		key:       key,
		allowed:   win.hits <= l.limit,
		remaining: max(l.limit-win.hits, 0),
		resetIn:   win.resetAt.Sub(now),
	}
}

// apply records the hit, writes the limit headers and rejects the request
// when it is over the limit.
func (l *windowLimiter) apply(w http.ResponseWriter, r *http.Request) bool {
	if l.limit <= 0 {
		return true
	}
	d := l.take(r)
	resetSec := ceilSeconds(d.resetIn)
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(resetSec))
	if d.allowed {
		return true
	}
	w.Header().Set("Retry-After", strconv.Itoa(max(resetSec, 1)))
	slog.Warn("rate limit exceeded", "limiter", l.name, "key", d.key, "method", r.Method, "path", r.URL.Path)
	api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
	return false
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
