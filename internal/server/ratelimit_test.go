package server

import (
	"testing"
	"time"
)

func TestTokenBucketExhaustsBurst(t *testing.T) {
	bucket := newTokenBucket(1, 2)
	if !bucket.Allow() || !bucket.Allow() {
		t.Fatal("expected the burst to be available")
	}
	if bucket.Allow() {
		t.Fatal("expected the bucket to be exhausted")
	}
}

func TestTokenBucketRefills(t *testing.T) {
	bucket := newTokenBucket(100, 1)
	if !bucket.Allow() {
		t.Fatal("expected the first token")
	}
	if bucket.Allow() {
		t.Fatal("expected the bucket to be empty")
	}
	time.Sleep(20 * time.Millisecond)
	if !bucket.Allow() {
		t.Fatal("expected a refilled token")
	}
}

func TestAllowRequestWithoutGlobalLimit(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{})
	for i := 0; i < 100; i++ {
		if !rl.AllowRequest() {
			t.Fatal("expected unlimited requests without a global limit")
		}
	}
}

func TestAllowLoginFallbackBuckets(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{LoginLimit: 2, LoginWindow: time.Minute})

	for i := 0; i < 2; i++ {
		allowed, _, err := rl.AllowLogin("203.0.113.9")
		if err != nil || !allowed {
			t.Fatalf("attempt %d: allowed=%v err=%v", i, allowed, err)
		}
	}
	allowed, retryAfter, err := rl.AllowLogin("203.0.113.9")
	if err != nil {
		t.Fatalf("AllowLogin returned error: %v", err)
	}
	if allowed {
		t.Fatal("expected the third attempt throttled")
	}
	if retryAfter <= 0 {
		t.Fatalf("expected a retry hint, got %v", retryAfter)
	}

	// Other addresses keep their own budget.
	if allowed, _, _ := rl.AllowLogin("198.51.100.7"); !allowed {
		t.Fatal("expected an unrelated address to pass")
	}
}

func TestAllowLoginDisabledWithoutLimit(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{})
	for i := 0; i < 50; i++ {
		if allowed, _, _ := rl.AllowLogin("203.0.113.9"); !allowed {
			t.Fatal("expected throttling disabled without a login limit")
		}
	}
}

func TestLoginBucketCleanup(t *testing.T) {
	rl := newRateLimiter(RateLimitConfig{LoginLimit: 5, LoginWindow: time.Millisecond})
	if allowed, _, _ := rl.AllowLogin("203.0.113.9"); !allowed {
		t.Fatal("expected the first attempt to pass")
	}
	time.Sleep(5 * time.Millisecond)
	// A fresh address triggers the sweep of idle buckets.
	if allowed, _, _ := rl.AllowLogin("198.51.100.7"); !allowed {
		t.Fatal("expected the new address to pass")
	}
	rl.loginMu.Lock()
	_, stale := rl.loginBuckets["203.0.113.9"]
	rl.loginMu.Unlock()
	if stale {
		t.Fatal("expected the idle bucket swept")
	}
}
