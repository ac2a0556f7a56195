package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mdm-platform/feedhub/internal/auth"
	"mdm-platform/feedhub/internal/logging"
)

// Logging writes one structured line per request once the handler returns
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		endpoint := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			endpoint = rc.RoutePattern()
		}

		subject := ""
		if claims := auth.GetUserClaims(r.Context()); claims != nil {
			subject = claims.UserID()
		}

		log := logging.WithRequest(auth.GetRequestID(r.Context()), subject, endpoint)
		fields := []interface{}{
			"method", r.Method,
			"status_code", wrapped.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if wrapped.statusCode >= http.StatusInternalServerError {
			log.Errorw("HTTP request completed", fields...)
			return
		}
		log.Infow("HTTP request completed", fields...)
	})
}
