package middleware

import (
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"mdm-platform/feedhub/internal/common"
	"mdm-platform/feedhub/internal/config"
)

// RateLimiter keeps one token bucket per client IP
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	limit     rate.Limit
	burst     int
	whitelist map[string]bool
}

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		limiters:  make(map[string]*rate.Limiter),
		limit:     rate.Limit(cfg.RequestsPerSecond),
		burst:     cfg.Burst,
		whitelist: map[string]bool{"127.0.0.1": true, "::1": true},
	}
	if rl.limit <= 0 {
		rl.limit = rate.Inf
	}
	if rl.burst <= 0 {
		rl.burst = 1
	}
	for _, ip := range cfg.Whitelist {
		rl.whitelist[ip] = true
	}
	return rl
}

func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, exists := rl.limiters[ip]; exists {
		return limiter
	}
	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.limiters[ip] = limiter
	return limiter
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if rl.whitelist[ip] {
			next.ServeHTTP(w, r)
			return
		}

		if !rl.getLimiter(ip).Allow() {
			common.RespondError(w, time.Now(), errors.New("too many requests"), "Too many requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
