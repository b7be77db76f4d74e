package http

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// RateLimitConfig configures per-client rate limiting.
type RateLimitConfig struct {
	Rate            rate.Limit    // sustained requests per second
	Burst           int           // bucket size
	IdleTTL         time.Duration // limiters unused for this long are dropped
	CleanupInterval time.Duration
}

// DefaultRateLimitConfig allows 30 requests per minute per client with a burst of 10.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Rate:            rate.Limit(30.0 / 60.0),
		Burst:           10,
		IdleTTL:         10 * time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter throttles requests per client IP. It guards the credential
// endpoints (login, callback, API key use) against brute force.
type RateLimiter struct {
	config RateLimitConfig

	mu       sync.Mutex
	limiters map[string]*clientLimiter

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRateLimiter starts a rate limiter and its background cleanup loop.
// Call Stop to release the goroutine.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		config:   config,
		limiters: make(map[string]*clientLimiter),
		stopCh:   make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		go rl.cleanupLoop()
	}

	return rl
}

// Stop halts the cleanup loop. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Middleware rejects requests over the limit with 429 and a Retry-After header.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientIPFromContext(r.Context())
			if key == "" {
				key = ExtractClientIP(r)
			}

			if !rl.allow(key) {
				log.Warn().Str("client_ip", key).Str("path", r.URL.Path).Msg("Rate limit exceeded")
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(rl.config.Rate)))
				WriteError(w, http.StatusTooManyRequests, "too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	cl, ok := rl.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.config.Rate, rl.config.Burst)}
		rl.limiters[key] = cl
	}
	cl.lastAccess = time.Now()
	rl.mu.Unlock()

	return cl.limiter.Allow()
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.cleanup(time.Now())
		}
	}
}

func (rl *RateLimiter) cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, cl := range rl.limiters {
		if now.Sub(cl.lastAccess) > rl.config.IdleTTL {
			delete(rl.limiters, key)
		}
	}
}

func retryAfterSeconds(limit rate.Limit) int {
	if limit <= 0 {
		return 60
	}
	return int(math.Ceil(1 / float64(limit)))
}
