package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"mdm-platform/feedhub/internal/auth"
	"mdm-platform/feedhub/internal/common"
	"mdm-platform/feedhub/internal/logging"
)

// AuthMiddleware requires a valid bearer token and stores its claims on the
// request context
func AuthMiddleware(signer *auth.TokenSigner) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			initTime := time.Now()

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				common.RespondError(w, initTime, errors.New("missing bearer token"), "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := signer.Validate(strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")))
			if err != nil {
				logging.Warn("Rejected bearer token", "request_id", auth.GetRequestID(r.Context()), "path", r.URL.Path, "error", err)
				common.RespondError(w, initTime, errors.New("invalid or expired token"), "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := auth.SetUserClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
