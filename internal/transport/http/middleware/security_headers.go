package middleware

import "net/http"

// apiHeaders suit a JSON and PDF API that is never framed or rendered as a page.
var apiHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "no-referrer"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; sandbox"},
	{"Cross-Origin-Resource-Policy", "same-origin"},
	{"Permissions-Policy", "camera=(), microphone=(), geolocation=()"},
	{"Cache-Control", "no-store"},
	{"Pragma", "no-cache"},
}

func SecureHeaders(isProd bool) func(http.Handler) http.Handler {
	headers := apiHeaders
	if isProd {
		headers = append(headers[:len(headers):len(headers)], [2]string{"Strict-Transport-Security", "max-age=63072000; includeSubDomains"})
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, kv := range headers {
				h.Set(kv[0], kv[1])
			}
			next.ServeHTTP(w, r)
		})
	}
}
