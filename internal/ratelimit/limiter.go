package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"

	"github.com/indielance/cra/internal/config"
)

const keyWritePerActor = "cra:write:actor:%s"

// WriteLimiter throttles mutating report and entry operations per actor.
// A nil limiter is valid and allows everything, so deployments without
// redis simply leave rate limiting off.
type WriteLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewWriteLimiter(cfg config.Config) (*WriteLimiter, error) {
	if !cfg.RateLimitEnabled {
		return nil, nil
	}

	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if cfg.RateLimitWriteRate <= 0 || cfg.RateLimitWriteBurst <= 0 {
		return nil, errors.New("rate limit write rate and burst must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})

	return &WriteLimiter{
		bucket: NewTokenBucket(client),
		rate:   cfg.RateLimitWriteRate,
		burst:  cfg.RateLimitWriteBurst,
	}, nil
}

func (l *WriteLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// AllowWrite reports whether the actor may perform another mutating call.
func (l *WriteLimiter) AllowWrite(ctx context.Context, actorID snowflake.ID) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	key := fmt.Sprintf(keyWritePerActor, actorID.String())
	return l.bucket.Allow(ctx, key, l.rate, l.burst)
}
