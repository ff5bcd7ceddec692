package ratelimit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indielance/cra/internal/config"
)

func TestDisabledLimiterAllowsEverything(t *testing.T) {
	limiter, err := NewWriteLimiter(config.Config{RateLimitEnabled: false})
	require.NoError(t, err)
	require.Nil(t, limiter)

	assert.False(t, limiter.Enabled())

	ok, err := limiter.AllowWrite(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLimiterRequiresRedisAddr(t *testing.T) {
	_, err := NewWriteLimiter(config.Config{RateLimitEnabled: true})
	assert.Error(t, err)
}

func TestLimiterRequiresPositiveRate(t *testing.T) {
	_, err := NewWriteLimiter(config.Config{
		RateLimitEnabled: true,
		RedisAddr:        "localhost:6379",
	})
	assert.Error(t, err)
}
