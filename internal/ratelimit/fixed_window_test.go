package ratelimit

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestFixedWindowLimiterEnforcesQuota(t *testing.T) {
	srv := miniredis.RunT(t)
	l, err := NewRedisFixedWindowLimiter(srv.Addr(), "", "test:ratelimit", 2, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	if !l.Allow("ip-1") || !l.Allow("ip-1") {
		t.Fatalf("first two calls must be allowed")
	}
	if l.Allow("ip-1") {
		t.Fatalf("third call in window must be denied")
	}
	if !l.Allow("ip-2") {
		t.Fatalf("other keys must not share the quota")
	}
}

func TestFixedWindowLimiterFailsClosed(t *testing.T) {
	srv := miniredis.RunT(t)
	l, err := NewRedisFixedWindowLimiter(srv.Addr(), "", "", 1, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	srv.Close()
	if l.Allow("ip-1") {
		t.Fatalf("limiter must deny when redis is unreachable")
	}
}

func TestFixedWindowLimiterRejectsBadConfig(t *testing.T) {
	if _, err := NewRedisFixedWindowLimiter("localhost:6379", "", "", 0, time.Minute); err == nil {
		t.Fatalf("zero limit must be rejected")
	}
	if _, err := NewRedisFixedWindowLimiter("", "", "", 1, time.Minute); err == nil {
		t.Fatalf("missing addr must be rejected")
	}
}
