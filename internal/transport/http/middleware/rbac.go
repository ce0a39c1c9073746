package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"marketingops/internal/transport/http/api"
)

type PermissionStore interface {
	HasPermission(ctx context.Context, roleName, permission string) (bool, error)
}

// RequirePermission admits authenticated users whose role holds every one of
// the listed permissions.
func RequirePermission(store PermissionStore, permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := GetRequestID(r.Context())
			user, ok := GetUser(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
				return
			}
			for _, perm := range permissions {
				allowed, err := store.HasPermission(r.Context(), user.RoleName, perm)
				if err != nil {
					slog.Warn("permission lookup failed", "err", err, "role", user.RoleName, "permission", perm)
					api.Fail(w, http.StatusInternalServerError, "permission_error", "permission check failed", reqID)
					return
				}
				if !allowed {
					slog.Warn("permission denied", "userId", user.UserID, "role", user.RoleName, "permission", perm, "path", r.URL.Path)
					api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", reqID)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
