// Package ratelimit throttles inbound chat traffic per user. This is flood
// protection for the process, separate from the generation quota ledger,
// which stays the sole authority on generation budgets.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// FloodLimiter limits inbound messages per chat in a fixed time window,
// backed by Redis. A nil *FloodLimiter allows everything.
type FloodLimiter struct {
	limit  int
	window time.Duration

	redisClient *redis.Client
	redisPrefix string
}

// NewFloodLimiter creates a Redis-backed limiter.
func NewFloodLimiter(addr, password, prefix string, limit int, window time.Duration) (*FloodLimiter, error) {
	if limit <= 0 || window <= 0 {
		return nil, errors.New("flood limiter requires positive limit and window")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("flood limiter redis addr is required")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "deckforge:flood"
	}
	return &FloodLimiter{
		limit:  limit,
		window: window,
		redisClient: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		redisPrefix: prefix,
	}, nil
}

// Allow returns true when the chat is within its message budget. Unlike the
// quota ledger this fails open: a lost Redis must not take the bot down.
func (l *FloodLimiter) Allow(chatID int64) bool {
	if l == nil {
		return true
	}
	windowMs := l.window.Milliseconds()
	if windowMs <= 0 {
		return true
	}
	windowSlot := time.Now().UTC().UnixMilli() / windowMs
	redisKey := fmt.Sprintf("%s:%d:%d", l.redisPrefix, chatID, windowSlot)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := fixedWindowScript.Run(ctx, l.redisClient, []string{redisKey}, windowMs).Int64()
	if err != nil {
		return true
	}
	return res <= int64(l.limit)
}
