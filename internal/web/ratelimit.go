package web

import (
	"net/http"

	"covertype/internal/metrics"

	"golang.org/x/time/rate"
)

// limiter is a process-wide token bucket in front of the predict routes.
// A nil bucket admits everything.
type limiter struct {
	bucket   *rate.Limiter
	rejected metrics.MetricsCounter
}

func newLimiter(perSecond float64, burst int, rejected metrics.MetricsCounter) *limiter {
	l := &limiter{rejected: rejected}
	if perSecond > 0 {
		if burst < 1 {
			burst = 1
		}
		l.bucket = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
	return l
}

func (l *limiter) allow() bool {
	if l.bucket == nil || l.bucket.Allow() {
		return true
	}
	if l.rejected != nil {
		l.rejected.Inc()
	}
	return false
}

func (l *limiter) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow() {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
