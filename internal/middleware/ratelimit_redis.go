package middleware

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const rateLimitKeyPrefix = "ratelimit:"

var rateLimitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

local windowStart = now - window

redis.call('ZREMRANGEBYSCORE', key, '-inf', windowStart)

local count = redis.call('ZCARD', key)

if count >= limit then
    local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
    local resetAt = 0
    if #oldest >= 2 then
        resetAt = tonumber(oldest[2]) + window
    else
        resetAt = now + window
    end
    return {0, 0, resetAt}
end

redis.call('ZADD', key, now, now .. '-' .. math.random())
redis.call('EXPIRE', key, window + 10)

local remaining = limit - count - 1
local resetAt = now + window

return {1, remaining, resetAt}
`)

// RedisLimiter shares the sliding window across replicas. Used when a Redis
// URL is configured.
type RedisLimiter struct {
	client *redis.Client
}

func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

func (rl *RedisLimiter) Check(ctx context.Context, key string, limit int) (allowed bool, remaining int, resetAt int64) {
	now := time.Now().Unix()

	result, err := rateLimitScript.Run(ctx, rl.client, []string{rateLimitKeyPrefix + key}, now, int64(windowDuration.Seconds()), limit).Int64Slice()
	if err != nil {
		log.Warn().Err(err).Str("client", key).Msg("redis rate limit check failed, allowing request")
		return true, limit - 1, now + int64(windowDuration.Seconds())
	}

	if len(result) != 3 {
		log.Warn().Str("client", key).Msg("unexpected redis rate limit result")
		return true, limit - 1, now + int64(windowDuration.Seconds())
	}

	return result[0] == 1, int(result[1]), result[2]
}
