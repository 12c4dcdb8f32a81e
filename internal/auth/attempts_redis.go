package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const loginAttemptKeyPrefix = "login_attempts:"

var ErrAttemptStoreUnavailable = errors.New("attempt store unavailable")

// RedisAttempts shares failed login counters between API instances. The
// record TTL is refreshed on every failure, matching AttemptCache.
type RedisAttempts struct {
	redis       redis.UniversalClient
	maxAttempts int
	window      time.Duration
}

func NewRedisAttempts(client redis.UniversalClient, maxAttempts int, window time.Duration) *RedisAttempts {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if window <= 0 {
		window = defaultAttemptWindow
	}

	return &RedisAttempts{
		redis:       client,
		maxAttempts: maxAttempts,
		window:      window,
	}
}

func (r *RedisAttempts) RecordFailure(ctx context.Context, username string) error {
	key := loginAttemptKey(username)
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, key)
		pipe.PExpire(ctx, key, r.window)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAttemptStoreUnavailable, err)
	}

	return nil
}

func (r *RedisAttempts) HasExceededMaxAttempts(ctx context.Context, username string) (bool, error) {
	count, err := r.FailureCount(ctx, username)
	if err != nil {
		return false, err
	}
	return count >= r.maxAttempts, nil
}

func (r *RedisAttempts) FailureCount(ctx context.Context, username string) (int, error) {
	count, err := r.redis.Get(ctx, loginAttemptKey(username)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrAttemptStoreUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return count, nil
}

func (r *RedisAttempts) Evict(ctx context.Context, username string) error {
	if err := r.redis.Del(ctx, loginAttemptKey(username)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrAttemptStoreUnavailable, err)
	}
	return nil
}

func loginAttemptKey(username string) string {
	return loginAttemptKeyPrefix + username
}
