package middleware

import (
	"net/http"
	"sync"
	"time"
)

type callerWindow struct {
	count    int
	lastSeen time.Time
}

// RateLimiter caps requests per caller over a sliding window. Callers are
// keyed by their authenticated service identity when present, so sibling
// services behind one proxy IP get independent allowances; unauthenticated
// requests fall back to the remote address.
type RateLimiter struct {
	mu      sync.Mutex
	callers map[string]*callerWindow
	limit   int
	window  time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		callers: make(map[string]*callerWindow),
		limit:   limit,
		window:  window,
	}

	// Cleanup goroutine
	go func() {
		for {
			time.Sleep(window)
			rl.mu.Lock()
			for key, v := range rl.callers {
				if time.Since(v.lastSeen) > window {
					delete(rl.callers, key)
				}
			}
			rl.mu.Unlock()
		}
	}()

	return rl
}

func callerKey(r *http.Request) string {
	if caller := GetCaller(r.Context()); caller != "" {
		return "svc:" + caller
	}
	return "ip:" + r.RemoteAddr
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := callerKey(r)

		rl.mu.Lock()
		v, exists := rl.callers[key]
		if !exists {
			rl.callers[key] = &callerWindow{count: 1, lastSeen: time.Now()}
			rl.mu.Unlock()
			next.ServeHTTP(w, r)
			return
		}

		if time.Since(v.lastSeen) > rl.window {
			v.count = 1
			v.lastSeen = time.Now()
			rl.mu.Unlock()
			next.ServeHTTP(w, r)
			return
		}

		v.count++
		v.lastSeen = time.Now()
		count := v.count
		rl.mu.Unlock()

		if count > rl.limit {
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.", r)
			return
		}

		next.ServeHTTP(w, r)
	})
}
