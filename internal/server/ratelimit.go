package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimitConfig tunes the global request limiter and the per-IP login
// throttle. RedisAddr switches the login counter to a shared store.
type RateLimitConfig struct {
	GlobalRPS     float64
	GlobalBurst   int
	LoginLimit    int
	LoginWindow   time.Duration
	RedisAddr     string
	RedisPassword string
	RedisTimeout  time.Duration
}

type tokenStore interface {
	Allow(key string, limit int, window time.Duration) (bool, time.Duration, error)
	Close() error
}

type rateLimiter struct {
	global      *tokenBucket
	loginLimit  int
	loginWindow time.Duration
	store       tokenStore

	loginMu      sync.Mutex
	loginBuckets map[string]*loginBucket
}

type loginBucket struct {
	bucket   *tokenBucket
	lastSeen time.Time
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	rl := &rateLimiter{
		loginLimit:   cfg.LoginLimit,
		loginWindow:  cfg.LoginWindow,
		loginBuckets: make(map[string]*loginBucket),
	}
	if rl.loginLimit < 0 {
		rl.loginLimit = 0
	}
	if rl.loginWindow <= 0 {
		rl.loginWindow = time.Minute
	}

	if cfg.GlobalRPS > 0 {
		burst := cfg.GlobalBurst
		if burst <= 0 {
			burst = max(int(cfg.GlobalRPS), 1)
		}
		rl.global = newTokenBucket(cfg.GlobalRPS, burst)
	}

	if cfg.RedisAddr != "" && rl.loginLimit > 0 {
		timeout := cfg.RedisTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		rl.store = newRedisStore(cfg.RedisAddr, cfg.RedisPassword, timeout)
	}
	return rl
}

func (r *rateLimiter) AllowRequest() bool {
	if r == nil || r.global == nil {
		return true
	}
	return r.global.Allow()
}

// AllowLogin enforces the per-IP login window. With Redis configured the
// counter is shared across instances; otherwise it falls back to in-process
// buckets.
func (r *rateLimiter) AllowLogin(key string) (bool, time.Duration, error) {
	if r == nil || r.loginLimit <= 0 {
		return true, 0, nil
	}
	if r.store != nil {
		return r.store.Allow(fmt.Sprintf("harmonia:login:%s", key), r.loginLimit, r.loginWindow)
	}

	if key == "" {
		key = "unknown"
	}
	bucket := r.bucketFor(key)
	if bucket.Allow() {
		return true, 0, nil
	}
	return false, time.Second, nil
}

// bucketFor returns the caller's login bucket, creating it on first sight and
// sweeping buckets idle for two windows.
func (r *rateLimiter) bucketFor(key string) *tokenBucket {
	r.loginMu.Lock()
	defer r.loginMu.Unlock()

	entry := r.loginBuckets[key]
	if entry == nil {
		perSecond := float64(r.loginLimit) / r.loginWindow.Seconds()
		if perSecond <= 0 {
			perSecond = 1 / r.loginWindow.Seconds()
		}
		entry = &loginBucket{bucket: newTokenBucket(perSecond, r.loginLimit)}
		r.loginBuckets[key] = entry
	}
	entry.lastSeen = time.Now()

	cutoff := time.Now().Add(-2 * r.loginWindow)
	for k, b := range r.loginBuckets {
		if b.lastSeen.Before(cutoff) {
			delete(r.loginBuckets, k)
		}
	}
	return entry.bucket
}

func (r *rateLimiter) Close() {
	if r == nil || r.store == nil {
		return
	}
	_ = r.store.Close()
}

type tokenBucket struct {
	mu       sync.Mutex
	rate     float64
	capacity float64
	tokens   float64
	updated  time.Time
}

func newTokenBucket(rate float64, burst int) *tokenBucket {
	if rate <= 0 {
		rate = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &tokenBucket{
		rate:     rate,
		capacity: float64(burst),
		tokens:   float64(burst),
		updated:  time.Now(),
	}
}

func (tb *tokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	tb.tokens += now.Sub(tb.updated).Seconds() * tb.rate
	tb.updated = now
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	if tb.tokens < 1 {
		return false
	}
	tb.tokens--
	return true
}
