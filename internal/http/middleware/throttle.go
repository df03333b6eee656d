package middleware

import (
	"net/http"
	"sync"
	"time"
)

// ipBucket holds token-bucket state for one client address.
type ipBucket struct {
	tokens float64
	seen   time.Time
}

// Throttle rejects requests from any single client address that exceed
// ratePerSecond (with the given burst allowance) with 429. This is edge
// protection only; domain admission control happens in the ingest pipeline.
func Throttle(ratePerSecond float64, burst int) func(http.Handler) http.Handler {
	var mu sync.Mutex
	buckets := make(map[string]*ipBucket)

	// Evict idle buckets so the map does not grow with client churn.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			mu.Lock()
			cutoff := time.Now().Add(-10 * time.Minute)
			for ip, b := range buckets {
				if b.seen.Before(cutoff) {
					delete(buckets, ip)
				}
			}
			mu.Unlock()
		}
	}()

	allow := func(ip string) bool {
		mu.Lock()
		defer mu.Unlock()

		now := time.Now()
		b, ok := buckets[ip]
		if !ok {
			b = &ipBucket{tokens: float64(burst), seen: now}
			buckets[ip] = b
		}
		b.tokens += now.Sub(b.seen).Seconds() * ratePerSecond
		if b.tokens > float64(burst) {
			b.tokens = float64(burst)
		}
		b.seen = now

		if b.tokens < 1 {
			return false
		}
		b.tokens--
		return true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			// chi's RealIP middleware rewrites RemoteAddr from X-Real-Ip, but
			// take the header directly when present in case it runs first.
			if xri := r.Header.Get("X-Real-Ip"); xri != "" {
				ip = xri
			}
			if !allow(ip) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
