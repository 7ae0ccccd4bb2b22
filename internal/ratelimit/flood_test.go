package ratelimit

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestFloodLimiter(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := NewFloodLimiter(redis.Addr(), "", "test:flood", 2, time.Second)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	if !limiter.Allow(1) {
		t.Fatalf("first message should pass")
	}
	if !limiter.Allow(1) {
		t.Fatalf("second message should pass")
	}
	if limiter.Allow(1) {
		t.Fatalf("third message should be blocked")
	}
	if !limiter.Allow(2) {
		t.Fatalf("other chats have their own budget")
	}
}

func TestFloodLimiterFailsOpen(t *testing.T) {
	redis := miniredis.RunT(t)
	limiter, err := NewFloodLimiter(redis.Addr(), "", "test:flood", 1, time.Second)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	redis.Close()
	if !limiter.Allow(1) {
		t.Fatalf("limiter must fail open on redis errors")
	}
}

func TestFloodLimiterNilAllows(t *testing.T) {
	var limiter *FloodLimiter
	if !limiter.Allow(1) {
		t.Fatalf("nil limiter must allow")
	}
}

func TestFloodLimiterRequiresRedisAddr(t *testing.T) {
	limiter, err := NewFloodLimiter("", "", "test:flood", 1, time.Second)
	if err == nil || limiter != nil {
		t.Fatalf("expected constructor error for empty redis addr")
	}
}
