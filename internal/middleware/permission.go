package middleware

import (
	"fmt"
	"net/http"
	"time"

	"mdm-platform/feedhub/internal/auth"
	"mdm-platform/feedhub/internal/common"
)

// RequirePermission rejects callers whose role does not grant action
func RequirePermission(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := auth.GetUserClaims(r.Context())

			if claims == nil || !claims.HasPermission(action) {
				common.RespondError(w, time.Now(), fmt.Errorf("role does not allow %s", action), "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
