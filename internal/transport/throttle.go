package transport

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Throttle is a sliding window rate limiter kept in Redis, so several
// publishers writing to the same stream share one budget.
// Each admitted message is a sorted set member scored by its timestamp.
type Throttle struct {
	redisClient *redis.Client
	logger      *slog.Logger
	script      *redis.Script
	window      time.Duration
}

// Lua script for atomic sliding window rate limiting.
// Returns 1 and records the message when under the limit, 0 otherwise.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, member)
    redis.call('EXPIRE', key, window / 1000 + 1)
    return 1
else
    return 0
end
`)

func NewThrottle(redisClient *redis.Client, logger *slog.Logger) *Throttle {
	return &Throttle{
		redisClient: redisClient,
		logger:      logger,
		script:      slidingWindowScript,
		window:      time.Second,
	}
}

func throttleKey(streamKey string) string {
	return fmt.Sprintf("throttle:%s", streamKey)
}

// Allow reports whether one more message fits in the current window.
func (t *Throttle) Allow(ctx context.Context, streamKey string, limit int) bool {
	if limit <= 0 {
		return true
	}

	now := time.Now()
	member := fmt.Sprintf("%d", now.UnixNano())

	result, err := t.script.Run(ctx, t.redisClient, []string{throttleKey(streamKey)},
		now.UnixMilli(), t.window.Milliseconds(), limit, member,
	).Int64()
	if err != nil {
		// Fail open, pacing is not worth stopping the run for
		t.logger.Error("throttle script failed", "error", err, "stream", streamKey)
		return true
	}

	return result == 1
}

// Wait blocks until Allow admits a message or ctx is done.
func (t *Throttle) Wait(ctx context.Context, streamKey string, limit int) {
	pause := t.window / 20
	for !t.Allow(ctx, streamKey, limit) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(pause):
		}
	}
}
