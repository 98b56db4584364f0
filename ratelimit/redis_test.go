package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisCounterIncrStartsWindow(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	counter := NewRedisCounter(rdb, WithPrefix("test"))

	n, ttl, err := counter.Incr(ctx, "contact-form:203.0.113.1", time.Hour)
	if err != nil {
		t.Fatalf("Incr: %v", err)
	}
	if n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
	if ttl <= 0 || ttl > time.Hour {
		t.Fatalf("ttl = %s, want within (0, 1h]", ttl)
	}
	if !mr.Exists("test:contact-form:203.0.113.1") {
		t.Fatalf("expected prefixed key in redis")
	}

	mr.FastForward(20 * time.Minute)
	n, ttl, err = counter.Incr(ctx, "contact-form:203.0.113.1", time.Hour)
	if err != nil {
		t.Fatalf("Incr: %v", err)
	}
	if n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}
	if ttl > 40*time.Minute {
		t.Fatalf("ttl = %s, window must not be extended by later hits", ttl)
	}
}

func TestRedisCounterWindowExpires(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	limiter := New(NewRedisCounter(rdb), 1, time.Hour)

	limiter.Hit(ctx, "k")
	if blocked, err := limiter.TooManyAttempts(ctx, "k"); err != nil || !blocked {
		t.Fatalf("expected blocked, got blocked=%v err=%v", blocked, err)
	}

	mr.FastForward(time.Hour + time.Second)

	if blocked, err := limiter.TooManyAttempts(ctx, "k"); err != nil || blocked {
		t.Fatalf("expected allowed after window, got blocked=%v err=%v", blocked, err)
	}
}

func TestRedisCounterCountMissingKey(t *testing.T) {
	_, rdb := newTestRedis(t)
	counter := NewRedisCounter(rdb)

	n, ttl, err := counter.Count(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 || ttl != 0 {
		t.Fatalf("Count = (%d, %s), want (0, 0)", n, ttl)
	}
}

func TestRedisCounterDecrFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	_, rdb := newTestRedis(t)
	counter := NewRedisCounter(rdb)

	counter.Incr(ctx, "k", time.Hour)
	if err := counter.Decr(ctx, "k"); err != nil {
		t.Fatalf("Decr: %v", err)
	}
	if err := counter.Decr(ctx, "k"); err != nil {
		t.Fatalf("Decr: %v", err)
	}
	if err := counter.Decr(ctx, "never-set"); err != nil {
		t.Fatalf("Decr on missing key: %v", err)
	}

	n, _, err := counter.Count(ctx, "k")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Fatalf("count = %d, want 0", n)
	}
}

func TestRedisCounterReset(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	counter := NewRedisCounter(rdb)

	counter.Incr(ctx, "k", time.Hour)
	if err := counter.Reset(ctx, "k"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if mr.Exists("ratelimit:k") {
		t.Fatalf("expected key to be deleted")
	}
}

func TestRedisAttemptIsAtomicUnderContention(t *testing.T) {
	_, rdb := newTestRedis(t)
	limiter := New(NewRedisCounter(rdb), 3, time.Hour)

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dec, err := limiter.Attempt(context.Background(), "same-ip")
			if err != nil {
				t.Errorf("Attempt: %v", err)
				return
			}
			if dec.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != 3 {
		t.Fatalf("allowed = %d, want exactly 3", got)
	}
}
