package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	maxEntries      = 10000
	cleanupInterval = time.Minute
	entryTTL        = 5 * time.Minute
	windowDuration  = time.Minute
)

// RequestLimiter throttles operator requests per client key over a sliding
// one-minute window. Implementations must fail open: the operator surface is
// a single dashboard, never worth a lockout on limiter trouble.
type RequestLimiter interface {
	Check(ctx context.Context, key string, limit int) (allowed bool, remaining int, resetAt int64)
}

type rateLimitEntry struct {
	timestamps []time.Time
	lastAccess time.Time
}

// MemoryLimiter is the default RequestLimiter, used when no Redis URL is
// configured.
type MemoryLimiter struct {
	mu          sync.Mutex
	store       map[string]*rateLimitEntry
	lastCleanup time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		store:       make(map[string]*rateLimitEntry),
		lastCleanup: time.Now(),
	}
}

func (rl *MemoryLimiter) cleanup() {
	now := time.Now()
	if now.Sub(rl.lastCleanup) < cleanupInterval {
		return
	}
	rl.lastCleanup = now

	for key, entry := range rl.store {
		if now.Sub(entry.lastAccess) > entryTTL {
			delete(rl.store, key)
		}
	}

	if len(rl.store) > maxEntries {
		evict := make([]string, 0, len(rl.store)/5)
		for key := range rl.store {
			evict = append(evict, key)
			if len(evict) >= len(rl.store)/5 {
				break
			}
		}
		for _, key := range evict {
			delete(rl.store, key)
		}
	}
}

func (rl *MemoryLimiter) Check(_ context.Context, key string, limit int) (allowed bool, remaining int, resetAt int64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.cleanup()

	now := time.Now()
	windowStart := now.Add(-windowDuration)

	entry, exists := rl.store[key]
	if !exists {
		entry = &rateLimitEntry{
			timestamps: make([]time.Time, 0),
			lastAccess: now,
		}
		rl.store[key] = entry
	}

	entry.lastAccess = now

	filtered := entry.timestamps[:0]
	for _, ts := range entry.timestamps {
		if ts.After(windowStart) {
			filtered = append(filtered, ts)
		}
	}
	entry.timestamps = filtered

	remaining = limit - len(entry.timestamps)
	if remaining < 0 {
		remaining = 0
	}

	if len(entry.timestamps) > 0 {
		resetAt = entry.timestamps[0].Add(windowDuration).Unix()
	} else {
		resetAt = now.Add(windowDuration).Unix()
	}

	if len(entry.timestamps) >= limit {
		return false, 0, resetAt
	}

	entry.timestamps = append(entry.timestamps, now)
	return true, remaining - 1, resetAt
}

// RateLimitMiddleware throttles by client IP.
type RateLimitMiddleware struct {
	limiter RequestLimiter
	limit   int
}

func NewRateLimitMiddleware(limiter RequestLimiter, limit int) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter, limit: limit}
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, remaining, resetAt := m.limiter.Check(r.Context(), clientKey(r), m.limit)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt, 10))

		if !allowed {
			log.Warn().Str("client", clientKey(r)).Msg("operator rate limit exceeded")
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "Muitas requisições, tente novamente em instantes",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
