package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// decrScript decrements a counter without letting it drop below zero and
// without creating the key when it has already expired.
var decrScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if v and tonumber(v) > 0 then
	return redis.call('DECR', KEYS[1])
end
return 0
`)

// RedisCounter keeps windows in Redis so several processes share one quota.
// Each window is a single integer key whose TTL is the window length.
type RedisCounter struct {
	rdb    *redis.Client
	prefix string
}

// RedisOption configures a RedisCounter.
type RedisOption func(*RedisCounter)

// WithPrefix namespaces every key (default "ratelimit").
func WithPrefix(prefix string) RedisOption {
	return func(r *RedisCounter) { r.prefix = strings.Trim(prefix, ":") }
}

// NewRedisCounter wraps an existing client.
func NewRedisCounter(rdb *redis.Client, opts ...RedisOption) *RedisCounter {
	r := &RedisCounter{rdb: rdb, prefix: "ratelimit"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisCounter) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

// Incr runs SET NX (start the window), INCR and PTTL inside MULTI/EXEC, so
// the increment and the window start are one atomic step.
func (r *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	k := r.key(key)
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, k, 0, window)
		incr = pipe.Incr(ctx, k)
		ttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, err
	}
	if err := incr.Err(); err != nil {
		return 0, 0, err
	}
	return incr.Val(), positive(ttl.Val()), nil
}

func (r *RedisCounter) Decr(ctx context.Context, key string) error {
	err := decrScript.Run(ctx, r.rdb, []string{r.key(key)}).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

func (r *RedisCounter) Count(ctx context.Context, key string) (int64, time.Duration, error) {
	k := r.key(key)
	var (
		get *redis.StringCmd
		ttl *redis.DurationCmd
	)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.Get(ctx, k)
		ttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, err
	}
	n, err := get.Int64()
	if errors.Is(err, redis.Nil) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	return n, positive(ttl.Val()), nil
}

func (r *RedisCounter) Reset(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, r.key(key)).Err()
}

// positive maps PTTL's "no expiry" and "missing" markers to zero.
func positive(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
