package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/JoseRicoK/SecondBrain-sub001/core"
)

// KeyFunc derives the limiter key from a request. Returning "" skips the
// limiter for that request.
type KeyFunc func(*http.Request) string

// Middleware limits requests per key, answering 429 with Retry-After when a
// window is exhausted. Limiter backend failures fail open: an unavailable
// Redis should degrade the guard, not the product.
func Middleware(limiter *FixedWindow, keyFn KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			result, err := limiter.Allow(r.Context(), key)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

			if !result.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter().Seconds())+1))
				core.WriteError(w, core.ErrTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
