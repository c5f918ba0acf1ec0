package httpadapter

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/Gabothefounder/scanscam/internal/core/domain"
)

// Probes and scrapes bypass ingress throttling.
func throttleExempt(path string) bool {
	switch path {
	case "/healthz", "/metrics", "/openapi.json":
		return true
	default:
		return false
	}
}

// rateLimitMiddleware applies one process-wide token bucket. It sits in front
// of the per-identity guards and protects the collaborators from floods that
// rotate identities.
func rateLimitMiddleware(next http.Handler, rps float64, burst int, catalog *Catalog) http.Handler {
	if rps <= 0 {
		return next
	}
	if burst <= 0 {
		burst = int(math.Ceil(rps))
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if throttleExempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		reservation := limiter.Reserve()
		if !reservation.OK() {
			w.Header().Set("Retry-After", "1")
			writeFailure(r.Context(), w, http.StatusTooManyRequests, string(domain.CodeRateLimited), catalog.Message(string(domain.CodeRateLimited), domain.LanguageEnglish))
			return
		}
		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()
			w.Header().Set("Retry-After", retryAfterSeconds(delay))
			writeFailure(r.Context(), w, http.StatusTooManyRequests, string(domain.CodeRateLimited), catalog.Message(string(domain.CodeRateLimited), domain.LanguageEnglish))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// backpressureMiddleware caps in-flight requests. A request waits up to
// queueTimeout for a slot and is answered 503 when none frees up.
func backpressureMiddleware(next http.Handler, maxInFlight int, queueTimeout time.Duration, catalog *Catalog) http.Handler {
	if maxInFlight <= 0 {
		return next
	}
	slots := make(chan struct{}, maxInFlight)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if throttleExempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		select {
		case slots <- struct{}{}:
		default:
			timer := time.NewTimer(queueTimeout)
			defer timer.Stop()
			select {
			case slots <- struct{}{}:
			case <-timer.C:
				w.Header().Set("Retry-After", "1")
				writeFailure(r.Context(), w, http.StatusServiceUnavailable, codeServerBusy, catalog.Message(codeServerBusy, domain.LanguageEnglish))
				return
			case <-r.Context().Done():
				return
			}
		}
		defer func() { <-slots }()

		next.ServeHTTP(w, r)
	})
}

func retryAfterSeconds(delay time.Duration) string {
	seconds := int(math.Ceil(delay.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}
