package middleware

import (
	"net/http"
	"time"

	"github.com/escuelalink/parent-gateway/internal/http/response"
	"github.com/escuelalink/parent-gateway/internal/observability"
	"github.com/escuelalink/parent-gateway/internal/permission"
	"github.com/escuelalink/parent-gateway/internal/service"
)

// RequireCollection gates a route on the caller's effective grants.
// Denials are recorded in the debug log with the collection and
// action that failed, so support can see exactly which check blocked
// a user.
func RequireCollection(resolver service.SnapshotResolver, debugLog *permission.DebugLog, collection string, action permission.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
				return
			}
			snap := resolver.Resolve(r.Context(), claims.Subject)
			if !snap.Can(collection, action) {
				observability.RecordPermissionCheck(r.Context(), collection, string(action), "deny")
				if debugLog != nil {
					msg := "not permitted"
					if err := snap.Err(); err != nil {
						msg = "permission load failed: " + err.Error()
					} else if !snap.Loaded() {
						msg = "permissions not loaded"
					}
					debugLog.Record(permission.DeniedCheck{
						Collection: collection,
						Action:     action,
						Message:    msg,
						Timestamp:  time.Now().UTC(),
					})
				}
				response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "insufficient permission", map[string]string{
					"collection": collection,
					"action":     string(action),
				})
				return
			}
			observability.RecordPermissionCheck(r.Context(), collection, string(action), "allow")
			next.ServeHTTP(w, r)
		})
	}
}
