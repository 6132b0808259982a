// Package ratelimit provides a per-client sliding-window request limiter.
// Clients are keyed by origin IP, preferring proxy-forwarded headers over the
// socket peer so the limiter still works behind a CDN.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Limiter admits at most max requests per client within a sliding window.
// Timestamps older than the window are pruned on every check, so a client
// that bursts to the cap regains capacity gradually as old requests age out.
type Limiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	seen   map[string][]time.Time
	now    func() time.Time
}

func New(max int, window time.Duration) *Limiter {
	return &Limiter{
		window: window,
		max:    max,
		seen:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow records a request for key and reports whether it is within the
// window budget. Rejected requests are not recorded.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	stamps := l.seen[key]
	live := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			live = append(live, ts)
		}
	}

	if len(live) >= l.max {
		l.seen[key] = live
		return false
	}
	l.seen[key] = append(live, now)
	return true
}

// ClientKey derives the rate-limit key for a request: CF-Connecting-IP if
// set, else the first entry of X-Forwarded-For, else the peer address.
func ClientKey(r *http.Request) string {
	if ip := r.Header.Get("Cf-Connecting-Ip"); ip != "" {
		return ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

// Middleware rejects over-budget requests with 429. onReject, if non-nil, is
// called once per rejection (metrics hook).
func Middleware(l *Limiter, log zerolog.Logger, onReject func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientKey(r)
			if !l.Allow(key) {
				log.Debug().Str("client", key).Str("path", r.URL.Path).Msg("rate limit exceeded")
				if onReject != nil {
					onReject()
				}
				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte("Rate limit exceeded"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
