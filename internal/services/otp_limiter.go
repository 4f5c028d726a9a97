package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	otpMaxAttempts = 5
	otpWindow      = 15 * time.Minute
)

// AttemptLimiter bounds how often a key may be tried inside a window
type AttemptLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// RedisAttemptLimiter counts attempts in Redis with a fixed expiry window
type RedisAttemptLimiter struct {
	client *redis.Client
	max    int64
	window time.Duration
	prefix string
}

// NewOTPLimiter creates a limiter for pickup OTP attempts
func NewOTPLimiter(client *redis.Client) *RedisAttemptLimiter {
	return &RedisAttemptLimiter{
		client: client,
		max:    otpMaxAttempts,
		window: otpWindow,
		prefix: "otp:attempts:",
	}
}

// Allow records one attempt and reports whether it is within the limit
func (l *RedisAttemptLimiter) Allow(ctx context.Context, key string) (bool, error) {
	key = l.prefix + key

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, l.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to count attempt: %w", err)
	}

	return incr.Val() <= l.max, nil
}

// Reset forgets the attempts recorded for key
func (l *RedisAttemptLimiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to reset attempts: %w", err)
	}
	return nil
}
