package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// admitScript prunes, counts and records in one atomic step.
// KEYS[1] window key; ARGV: now(us), cutoff(us), limit, ttl(ms), member.
var admitScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[2])
if redis.call('ZCARD', KEYS[1]) >= tonumber(ARGV[3]) then
	return 0
end
redis.call('ZADD', KEYS[1], ARGV[1], ARGV[5])
redis.call('PEXPIRE', KEYS[1], ARGV[4])
return 1
`)

const defaultKeyPrefix = "wiremsg:ratelimit:"

// RedisStore keeps each window in a sorted set scored by acceptance time, so
// every process sharing the Redis instance enforces one limit.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

var _ WindowStore = (*RedisStore)(nil)

// NewRedisStore wraps an existing client. An empty prefix uses the default.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// DialRedis parses url, connects and verifies the server with a ping.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, errors.New("redis: url is empty")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	c := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.Ping(pingCtx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return c, nil
}

// Admit implements WindowStore.
func (r *RedisStore) Admit(ctx context.Context, key string, now time.Time, span time.Duration, limit int) (bool, error) {
	nowUS := now.UnixMicro()
	cutoffUS := now.Add(-span).UnixMicro()
	ttlMS := span.Milliseconds() + 1000

	res, err := admitScript.Run(ctx, r.client,
		[]string{r.prefix + key},
		nowUS, cutoffUS, limit, ttlMS, uuid.NewString(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis admit: %w", err)
	}
	return res == 1, nil
}
