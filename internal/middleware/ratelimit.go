// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// visitor holds the request times of one client inside the current
// window.
type visitor struct {
	mu   sync.Mutex
	seen []time.Time
}

// RateLimiter caps each client IP at limit requests per sliding
// window. Both knobs come from config (RATE_LIMIT, RATE_WINDOW).
type RateLimiter struct {
	mu       sync.RWMutex
	visitors map[string]*visitor
	limit    int
	window   time.Duration
	done     chan struct{}
}

// NewRateLimiter creates a limiter allowing limit requests per window
// and starts a background sweep that drops idle visitors.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		window:   window,
		done:     make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

// Stop ends the background sweep goroutine.
func (rl *RateLimiter) Stop() {
	close(rl.done)
}

// sweep periodically evicts visitors with no activity in the window,
// so the map does not grow one entry per client IP forever. The sweep
// interval is the window itself, floored at one minute.
func (rl *RateLimiter) sweep() {
	every := rl.window
	if every < time.Minute {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.evictIdle()
		case <-rl.done:
			return
		}
	}
}

// allow records a request for key and reports whether it fits the
// window.
func (rl *RateLimiter) allow(key string) bool {
	rl.mu.RLock()
	v := rl.visitors[key]
	rl.mu.RUnlock()

	if v == nil {
		rl.mu.Lock()
		// Re-check under the write lock.
		if v = rl.visitors[key]; v == nil {
			v = &visitor{}
			rl.visitors[key] = v
		}
		rl.mu.Unlock()
	}

	now := time.Now()
	cutoff := now.Add(-rl.window)

	v.mu.Lock()
	defer v.mu.Unlock()

	kept := v.seen[:0]
	for _, ts := range v.seen {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	v.seen = kept

	if len(v.seen) >= rl.limit {
		return false
	}
	v.seen = append(v.seen, now)
	return true
}

// evictIdle removes visitors whose every recorded request has aged out.
func (rl *RateLimiter) evictIdle() {
	cutoff := time.Now().Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, v := range rl.visitors {
		v.mu.Lock()
		idle := true
		for _, ts := range v.seen {
			if ts.After(cutoff) {
				idle = false
				break
			}
		}
		v.mu.Unlock()

		if idle {
			delete(rl.visitors, key)
		}
	}
}

// Middleware rejects over-limit clients with 429 and a Retry-After
// hint of one full window.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window/time.Second)))
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP picks the address to limit on: the leftmost X-Forwarded-For
// entry, then X-Real-IP, then the socket address without its port.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(ip)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
