package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"marketingops/internal/requestctx"
	"marketingops/internal/transport/http/shared"
)

const maxRequestIDLength = 128

// RequestID assigns the request id and records the caller's address and
// agent for audit attribution further down the stack.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if reqID == "" || len(reqID) > maxRequestIDLength {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		ctx := requestctx.WithMeta(r.Context(), requestctx.Meta{
			RequestID: reqID,
			ClientIP:  shared.ClientIP(r),
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetRequestID(ctx context.Context) string {
	return requestctx.GetRequestID(ctx)
}
