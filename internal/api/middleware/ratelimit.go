package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter *rate.Limiter
	last    time.Time
}

type visitorTable struct {
	mu       sync.Mutex
	visitors map[string]*limiterEntry
	rps      rate.Limit
	burst    int
}

func (t *visitorTable) allow(ip string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	le, ok := t.visitors[ip]
	if !ok {
		le = &limiterEntry{limiter: rate.NewLimiter(t.rps, t.burst)}
		t.visitors[ip] = le
	}
	le.last = now
	return le.limiter.AllowN(now, 1)
}

func (t *visitorTable) gc(idle time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, v := range t.visitors {
		if time.Since(v.last) > idle {
			delete(t.visitors, k)
		}
	}
}

func getIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit applies an IP-based token bucket limiter. Each call gets its own
// table, so sensitive routes can be limited more tightly than the rest.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	t := &visitorTable{visitors: map[string]*limiterEntry{}, rps: rate.Limit(rps), burst: burst}
	gcTicker := time.NewTicker(5 * time.Minute)
	go func() {
		for range gcTicker.C {
			t.gc(10 * time.Minute)
		}
	}()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !t.allow(getIP(r), time.Now()) {
				w.Header().Set("Retry-After", "1")
				deny(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
